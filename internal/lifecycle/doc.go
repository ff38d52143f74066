// Package lifecycle owns the content item state machine and the observation
// of background jobs.
//
// The Coordinator accepts generation and publish requests, submits jobs to
// the ledger, and tracks at most one unresolved job per (item, kind) pair.
// Each submitted job is observed by a watch: an immediate ledger read, a
// push subscription on the notification channel, and a single safety timer.
// Image jobs have no push channel and are observed by a fixed-interval
// poller instead. Whichever signal arrives first wins; a one-shot guard on
// the watch handle makes every later signal a no-op, so reconciliation is
// applied to the item exactly once per job.
package lifecycle
