// ABOUTME: Package messenger is the platform boundary: inbound webhook, outbound send API.
// ABOUTME: The core never talks HTTP to the platform except through this package.

// Package messenger implements the Messenger platform boundary. Webhook
// validates the subscription handshake and unwraps inbound event envelopes;
// Client delivers plain text, button-template, and generic-card messages
// through the send API.
package messenger
