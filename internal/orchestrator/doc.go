// ABOUTME: Package orchestrator runs one conversation turn per inbound event.
// ABOUTME: Owns per-sender ordering and the failure fallbacks of a turn.

// Package orchestrator composes the routing engine, the dialog engine, the
// reply parser, and the action registry into the per-event control flow.
// Turns for the same sender are serialized so a reply's session update is
// always observed by that sender's next turn.
package orchestrator
