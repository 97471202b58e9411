// ABOUTME: Package protocol decodes the dialog engine's reply mini-language.
// ABOUTME: Replies carry display text plus optional command and classifier directives.

// Package protocol parses the textual directive protocol embedded in dialog
// engine replies. A reply line is display text optionally followed by a
// "$command$args" directive and a "#classifierId" suffix designating the
// classifier that should screen the sender's next utterances.
package protocol
