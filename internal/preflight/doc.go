// Package preflight provides readiness checks for the external services,
// filesystem paths and capture devices shelfscan depends on.
//
// The CLI "shelfscan doctor" command runs RunAll and renders the results.
// "shelfscan scan" uses CheckCaptureDevices before opening a session so a
// missing scanner is reported before any lookup work starts.
package preflight
