// ABOUTME: Package session tracks per-sender conversation state.
// ABOUTME: Bridges successive stateless calls to the dialog engine and classifier.

// Package session provides the in-memory store of per-sender conversation
// state. Each sender has at most one Session, created on first contact and
// overwritten wholesale from every dialog-engine reply.
package session
