// Package store defines interfaces for data persistence operations.
// These interfaces abstract the content item store and the job ledger from
// the lifecycle coordination logic, allowing the core to remain independent
// of specific database technologies or queueing details.
package store
