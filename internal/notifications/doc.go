// Package notifications pushes scanner alerts to ntfy.
//
// Only events that need a human are published: a resolved barcode that fell
// below the review threshold, a barcode that could not be resolved at all, and
// the end-of-session summary. When no topic is configured NewService returns a
// no-op implementation, so callers never need to check whether alerts are on.
package notifications
