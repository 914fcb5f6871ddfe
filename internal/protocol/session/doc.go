// Package session owns request/response correlation for the mailbox.
//
// Ownership boundary:
// - the single in-flight exchange and its retry budget
// - the one-shot indication waiter registry
// - exchange defaults and read-error backoff
//
// The dispatch loop lives in internal/mailbox; this package holds no
// goroutines.
package session
