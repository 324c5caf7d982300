// Package reminder is the scheduling core: one-off task reminders with a
// repeating nag loop, and the minute sweep that delivers standing
// monthly/yearly reminders.
//
// All timers live in the Scheduler; the store is the source of truth and the
// timer set is rebuilt from it on every boot.
package reminder
