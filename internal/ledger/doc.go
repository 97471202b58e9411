// ABOUTME: Package ledger records completed conversation turns to SQLite.
// ABOUTME: A transcript for operators, not a session store.

// Package ledger persists a transcript of conversation turns. It is
// write-behind history for debugging and analysis; the routing core never
// reads from it, and session state itself is deliberately not persisted.
package ledger
