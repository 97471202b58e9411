// ABOUTME: Tests for the routing decision engine.
// ABOUTME: Covers threshold boundaries, single-class guard, reset trigger, and classifier failure.

package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nheidloff/facebook-watson-bot/internal/session"
	"github.com/nheidloff/facebook-watson-bot/internal/watson"
)

// mockClassifier returns canned classes or an error.
type mockClassifier struct {
	classes []watson.Class
	err     error
	calls   int
}

func (m *mockClassifier) Classify(_ context.Context, _, _ string) ([]watson.Class, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.classes, nil
}

func activeSession(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore()
	store.Update("user-1", "conv-1", "client-1", "nlc-1")
	return store
}

func TestDecide_NoClassifier_RoutesRawText(t *testing.T) {
	store := session.NewStore()
	classifier := &mockClassifier{}
	engine := NewEngine(store, classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", "show me tweets")

	assert.Equal(t, "show me tweets", dec.Input)
	assert.False(t, dec.Substituted)
	assert.Zero(t, classifier.calls, "classifier must not run without an active id")
}

func TestDecide_AboveThreshold_SubstitutesClassName(t *testing.T) {
	classifier := &mockClassifier{classes: []watson.Class{
		{Name: "positive", Confidence: 0.70001},
		{Name: "negative", Confidence: 0.2},
	}}
	engine := NewEngine(activeSession(t), classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", "upbeat ones please")

	assert.Equal(t, "positive", dec.Input)
	assert.True(t, dec.Substituted)
	assert.InDelta(t, 0.70001, dec.Confidence, 1e-9)
}

func TestDecide_ExactThreshold_RoutesRawText(t *testing.T) {
	// 0.7 exactly must not substitute; the threshold is strictly greater.
	classifier := &mockClassifier{classes: []watson.Class{
		{Name: "positive", Confidence: 0.7},
		{Name: "negative", Confidence: 0.2},
	}}
	engine := NewEngine(activeSession(t), classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", "upbeat ones please")

	assert.Equal(t, "upbeat ones please", dec.Input)
	assert.False(t, dec.Substituted)
}

func TestDecide_SingleClass_NeverSubstitutes(t *testing.T) {
	classifier := &mockClassifier{classes: []watson.Class{
		{Name: "positive", Confidence: 0.99},
	}}
	engine := NewEngine(activeSession(t), classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", "upbeat ones please")

	assert.Equal(t, "upbeat ones please", dec.Input)
	assert.False(t, dec.Substituted)
}

func TestDecide_ClassifierFailure_FallsBackToRawText(t *testing.T) {
	classifier := &mockClassifier{err: errors.New("boom")}
	engine := NewEngine(activeSession(t), classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", "upbeat ones please")

	assert.Equal(t, "upbeat ones please", dec.Input)
	assert.False(t, dec.Substituted)
}

func TestDecide_ResetTrigger_ClearsSessionBeforeRouting(t *testing.T) {
	store := activeSession(t)
	classifier := &mockClassifier{classes: []watson.Class{
		{Name: "positive", Confidence: 0.99},
		{Name: "negative", Confidence: 0.01},
	}}
	engine := NewEngine(store, classifier, nil)

	dec := engine.Decide(context.Background(), "user-1", ResetTrigger)

	assert.Equal(t, ResetTrigger, dec.Input)
	assert.Zero(t, classifier.calls, "reset discards the active classifier before routing")

	sess := store.GetOrCreate("user-1")
	assert.Empty(t, sess.ConversationID)
	assert.Empty(t, sess.ClassifierID)
}
