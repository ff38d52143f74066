// Package events provides the outcome notification fan-out for job
// reconciliation.
//
// The lifecycle coordinator emits exactly one JobOutcomeEvent per reconciled
// job. The rest of the system (UI refresh, toasts, the progress endpoint)
// registers handlers without the coordinator knowing who is listening,
// keeping the core free of presentation concerns.
//
// The primary components are:
// - JobOutcomeEvent: the terminal outcome of one job for one content item
// - OutcomeHandler: interface for components that consume outcomes
// - Emitter: interface for the component that publishes them
package events
