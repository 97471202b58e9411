// ABOUTME: Package routing decides how each utterance reaches the dialog engine.
// ABOUTME: The classifier may substitute its top class for the raw text.

// Package routing implements the per-utterance decision between sending
// raw text to the dialog engine and screening it through the sender's
// active classifier first. The outcome is always text for the dialog
// engine; the classifier only ever substitutes what that text is.
package routing
