// ABOUTME: Package actions is the closed registry of named follow-up actions.
// ABOUTME: ExecCode directives resolve here; nothing outside the registry can run.

// Package actions implements the fixed set of side-effecting actions a
// dialog reply may trigger through an ExecCode directive. Descriptors use a
// call syntax like showTweets(sender, "traffic", "positive"); the registry
// resolves the name, validates arity, binds the sender identity, and runs
// the handler. Arbitrary code is never evaluated.
package actions
