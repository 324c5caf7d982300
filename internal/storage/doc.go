// Package storage persists tasks, standing reminders, per-user pending
// input, chat state and the audit trail in a single sqlite database.
//
// The store is the only place that touches SQL; rows are mapped into the
// entity structs of this package at the boundary.
package storage
