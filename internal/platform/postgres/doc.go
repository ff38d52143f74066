// Package postgres implements the store interfaces on PostgreSQL.
// All mutations from the lifecycle subsystem are additive single-statement
// updates so a stale reconciliation can never erase newer data.
package postgres
