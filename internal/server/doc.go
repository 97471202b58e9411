// ABOUTME: Package server assembles the bot's component graph from configuration.
// ABOUTME: Owns the HTTP listener lifecycle and graceful drain on shutdown.
package server
