// Package config handles configuration loading for watson-bot.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	messenger:
//	  access_token: "${MESSENGER_ACCESS_TOKEN}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  turn_timeout: "30s"
//	dialog:
//	  timeout: "10s"
//
// # Configuration Sections
//
// Server and platform:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	messenger:
//	  access_token: "${MESSENGER_ACCESS_TOKEN}"
//	  verify_token: "${MESSENGER_VERIFY_TOKEN}"
//
// Remote AI services:
//
//	dialog:
//	  url: "https://gateway.watsonplatform.net/dialog/api"
//	  username: "${DIALOG_USERNAME}"
//	  password: "${DIALOG_PASSWORD}"
//	  dialog_id: "${DIALOG_ID}"
//	classifier:
//	  url: "https://gateway.watsonplatform.net/natural-language-classifier/api"
//	  username: "${NLC_USERNAME}"
//	  password: "${NLC_PASSWORD}"
//
// Transcript and observability:
//
//	ledger:
//	  enabled: true
//	  path: "/var/lib/watson-bot/ledger.db"
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
