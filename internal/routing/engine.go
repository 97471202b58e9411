// ABOUTME: Routing decision engine: raw utterance vs classifier-substituted class name.
// ABOUTME: Applies the reset trigger and the strict 0.7 confidence threshold.

package routing

import (
	"context"
	"log/slog"

	"github.com/nheidloff/facebook-watson-bot/internal/metrics"
	"github.com/nheidloff/facebook-watson-bot/internal/session"
	"github.com/nheidloff/facebook-watson-bot/internal/watson"
)

// ConfidenceThreshold is the cutoff above which the classifier's top class
// is trusted enough to replace the utterance. Strictly greater than; a
// confidence of exactly 0.7 routes the raw text.
const ConfidenceThreshold = 0.7

// ResetTrigger is the utterance that restarts a sender's conversation.
const ResetTrigger = "hi"

// Classifier is what the engine needs from the classifier service.
type Classifier interface {
	Classify(ctx context.Context, classifierID, text string) ([]watson.Class, error)
}

// Decision is the outcome of routing one utterance: the text to hand to the
// dialog engine, plus how it was chosen.
type Decision struct {
	Input       string
	Substituted bool    // true when a class name replaced the raw text
	Confidence  float64 // top-class confidence when the classifier ran
}

// Engine decides per utterance whether the classifier screens the text
// before it reaches the dialog engine.
type Engine struct {
	sessions   *session.Store
	classifier Classifier
	logger     *slog.Logger
}

// NewEngine creates a routing engine over the given session store and
// classifier service.
func NewEngine(sessions *session.Store, classifier Classifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions:   sessions,
		classifier: classifier,
		logger:     logger.With("component", "routing"),
	}
}

// Decide routes one utterance. The reset trigger clears the session before
// any routing, discarding an active classifier. When a classifier is active
// its top class substitutes the text only with at least two candidates and
// confidence strictly above the threshold. A classifier failure is reported
// and the raw utterance falls through unchanged.
func (e *Engine) Decide(ctx context.Context, senderID, text string) Decision {
	if text == ResetTrigger {
		e.sessions.Reset(senderID)
		metrics.SessionResets.Inc()
		e.logger.Info("session reset", "sender", senderID)
		return Decision{Input: text}
	}

	sess := e.sessions.GetOrCreate(senderID)
	if sess.ClassifierID == "" {
		return Decision{Input: text}
	}

	classes, err := e.classifier.Classify(ctx, sess.ClassifierID, text)
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		e.logger.Error("classifier failed, routing raw utterance",
			"sender", senderID,
			"classifier_id", sess.ClassifierID,
			"error", err)
		return Decision{Input: text}
	}
	metrics.ClassifierCalls.WithLabelValues("ok").Inc()

	// A single candidate is not enough signal to trust.
	if len(classes) < 2 {
		return Decision{Input: text}
	}

	top := classes[0]
	if top.Confidence > ConfidenceThreshold {
		metrics.ClassSubstitutions.Inc()
		e.logger.Debug("substituting class for utterance",
			"sender", senderID,
			"class", top.Name,
			"confidence", top.Confidence)
		return Decision{Input: top.Name, Substituted: true, Confidence: top.Confidence}
	}

	return Decision{Input: text, Confidence: top.Confidence}
}
