// Package pkgroutine runs background work under a bounded goroutine manager.
//
// Manager limits concurrency, recovers and logs panics, and collects errors for
// Wait. Every schedules a periodic task such as the upload janitor.
package pkgroutine
