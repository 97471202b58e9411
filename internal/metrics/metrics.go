// ABOUTME: Prometheus counters for conversation turns and remote-service health.
// ABOUTME: Exposed on /metrics when enabled in config.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal counts validated inbound events by source (message, postback).
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_events_total",
		Help: "Inbound events accepted by the webhook, by source.",
	}, []string{"source"})

	// DialogCalls counts dialog engine invocations by result.
	DialogCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_dialog_calls_total",
		Help: "Dialog engine calls, by result (ok, error).",
	}, []string{"result"})

	// ClassifierCalls counts classifier invocations by result.
	ClassifierCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_classifier_calls_total",
		Help: "Classifier calls, by result (ok, error).",
	}, []string{"result"})

	// ClassSubstitutions counts turns where the top class replaced the utterance.
	ClassSubstitutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_class_substitutions_total",
		Help: "Turns where the classifier's top class was routed instead of the raw text.",
	})

	// ProtocolErrors counts unparsable or unrecognized dialog replies.
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_protocol_errors_total",
		Help: "Dialog replies that failed command-protocol parsing.",
	})

	// ActionRuns counts registry action executions by result.
	ActionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_action_runs_total",
		Help: "Named follow-up action executions, by result (ok, error).",
	}, []string{"result"})

	// SessionResets counts reset-trigger utterances.
	SessionResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_session_resets_total",
		Help: "Sessions cleared by the reset trigger.",
	})
)
