// Package scanner runs barcode scanning sessions.
//
// A Session owns the scan state machine (idle, scanning, paused), the set of
// barcodes currently being resolved and the set already completed. Decode
// events from a Source pass through validation, a global rate limit,
// in-flight suppression and duplicate suppression before the caller's
// handler runs. Every decision is returned to the submitter as an Outcome.
// Admissions, completions and failures are also published on the Events
// channel, as are rejections for invalid, in-flight and duplicate barcodes.
//
// Capture devices are discovered with udev (UdevEnumerator) and watched for
// hotplug removal over netlink (DeviceMonitor). LineSource adapts
// keyboard-wedge scanners that type one barcode per line.
package scanner
