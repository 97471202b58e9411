// ABOUTME: Tests for the conversation orchestrator.
// ABOUTME: Covers full turns, command dispatch, failure fallbacks, and session update rules.

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nheidloff/facebook-watson-bot/internal/actions"
	"github.com/nheidloff/facebook-watson-bot/internal/ledger"
	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
	"github.com/nheidloff/facebook-watson-bot/internal/routing"
	"github.com/nheidloff/facebook-watson-bot/internal/session"
	"github.com/nheidloff/facebook-watson-bot/internal/watson"
)

// passthroughRouter routes the raw utterance unchanged.
type passthroughRouter struct{}

func (passthroughRouter) Decide(_ context.Context, _, text string) routing.Decision {
	return routing.Decision{Input: text}
}

// dialogCall records what one Converse invocation observed.
type dialogCall struct {
	ConversationID string
	ClientID       string
	Input          string
}

// mockDialog returns scripted reply lines in order and records every call.
type mockDialog struct {
	mu      sync.Mutex
	replies []*watson.DialogReply
	err     error
	delay   time.Duration
	calls   []dialogCall
}

func (m *mockDialog) Converse(_ context.Context, conversationID, clientID, input string) (*watson.DialogReply, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dialogCall{ConversationID: conversationID, ClientID: clientID, Input: input})
	if m.err != nil {
		return nil, m.err
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockDialog) recorded() []dialogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dialogCall(nil), m.calls...)
}

type sentMessage struct {
	Recipient string
	Text      string
	Buttons   []messenger.Button
}

// mockSender records outbound messages.
type mockSender struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

func (m *mockSender) SendText(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{Recipient: recipient, Text: text})
	return m.err
}

func (m *mockSender) SendButtons(_ context.Context, recipient, text string, buttons []messenger.Button) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{Recipient: recipient, Text: text, Buttons: buttons})
	return m.err
}

func (m *mockSender) sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.messages...)
}

// mockRecorder captures ledger turns.
type mockRecorder struct {
	mu    sync.Mutex
	turns []*ledger.Turn
}

func (m *mockRecorder) Record(_ context.Context, turn *ledger.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	return nil
}

func reply(conversationID, clientID string, lines ...string) *watson.DialogReply {
	return &watson.DialogReply{ConversationID: conversationID, ClientID: clientID, Lines: lines}
}

func message(sender, text string) messenger.Event {
	return messenger.Event{SenderID: sender, Text: text, Source: messenger.SourceMessage}
}

func newOrchestrator(t *testing.T, sessions *session.Store, dialog DialogEngine, sender MessageSender,
	registry *actions.Registry, recorder TurnRecorder) *Orchestrator {
	t.Helper()
	if registry == nil {
		registry = actions.NewRegistry()
	}
	return New(sessions, passthroughRouter{}, dialog, sender, registry, recorder, 5*time.Second, nil)
}

func TestProcessTurn_PlainReply(t *testing.T) {
	sessions := session.NewStore()
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1", "Hello there")}}
	sender := &mockSender{}
	recorder := &mockRecorder{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, recorder)

	o.Enqueue(message("user-1", "hi there bot"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello there", msgs[0].Text)
	assert.Equal(t, "user-1", msgs[0].Recipient)

	sess := sessions.GetOrCreate("user-1")
	assert.Equal(t, "conv-1", sess.ConversationID)
	assert.Equal(t, "client-1", sess.ClientID)
	assert.Empty(t, sess.ClassifierID)

	require.Len(t, recorder.turns, 1)
	assert.Equal(t, "hi there bot", recorder.turns[0].Utterance)
	assert.Equal(t, "None", recorder.turns[0].Command)
}

func TestProcessTurn_ShowButtonsReplyWithClassifier(t *testing.T) {
	sessions := session.NewStore()
	line := `Positive or negative?$ShowButtons$` +
		`[{"type":"postback","title":"Positive","payload":"positive"}]#nlc-5285`
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1", line)}}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "show me tweets"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Positive or negative?", msgs[0].Text)
	require.Len(t, msgs[0].Buttons, 1)
	assert.Equal(t, "positive", msgs[0].Buttons[0].Payload)

	sess := sessions.GetOrCreate("user-1")
	assert.Equal(t, "nlc-5285", sess.ClassifierID)
}

func TestProcessTurn_ExecCodeRunsRegisteredAction(t *testing.T) {
	sessions := session.NewStore()
	line := `Here are the tweets:$ExecCode$notify(sender, "traffic")`
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1", line)}}
	sender := &mockSender{}

	var gotArgs map[string]string
	registry := actions.NewRegistry()
	require.NoError(t, registry.Register(&actions.Definition{
		Name:   "notify",
		Params: []string{"recipient", "topic"},
		Run: func(_ context.Context, args map[string]string) error {
			gotArgs = args
			return nil
		},
	}))
	o := newOrchestrator(t, sessions, dialog, sender, registry, nil)

	o.Enqueue(message("user-1", "traffic please"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1, "display text precedes the action's own messages")
	assert.Equal(t, "Here are the tweets:", msgs[0].Text)
	require.NotNil(t, gotArgs)
	assert.Equal(t, "user-1", gotArgs["recipient"])
	assert.Equal(t, "traffic", gotArgs["topic"])
}

func TestProcessTurn_UnknownActionIsProtocolFailure(t *testing.T) {
	sessions := session.NewStore()
	line := `Working on it$ExecCode$formatDisk(sender)`
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-9", "client-9", line)}}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "do it"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, fallbackMessage, msgs[0].Text)

	// A turn that failed protocol resolution applies no session update.
	sess := sessions.GetOrCreate("user-1")
	assert.Empty(t, sess.ConversationID)
}

func TestProcessTurn_DialogFailure(t *testing.T) {
	sessions := session.NewStore()
	sessions.Update("user-1", "conv-1", "client-1", "")
	dialog := &mockDialog{err: errors.New("gateway timeout")}
	sender := &mockSender{}
	recorder := &mockRecorder{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, recorder)

	o.Enqueue(message("user-1", "anything"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1, "exactly one fallback message")
	assert.Equal(t, dialogApology, msgs[0].Text)

	// Session is untouched by the failed turn.
	sess := sessions.GetOrCreate("user-1")
	assert.Equal(t, "conv-1", sess.ConversationID)
	assert.Empty(t, recorder.turns)
}

func TestProcessTurn_UnparsableReply(t *testing.T) {
	sessions := session.NewStore()
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1", `Hi$Bogus$x`)}}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "hello"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, fallbackMessage, msgs[0].Text)
	assert.Empty(t, sessions.GetOrCreate("user-1").ConversationID)
}

func TestProcessTurn_EmptyReply(t *testing.T) {
	sessions := session.NewStore()
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1")}}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "hello"))
	o.Drain()

	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, fallbackMessage, msgs[0].Text)
}

func TestEnqueue_PerSenderOrdering(t *testing.T) {
	sessions := session.NewStore()
	dialog := &mockDialog{
		delay: 20 * time.Millisecond,
		replies: []*watson.DialogReply{
			reply("conv-1", "client-1", "first reply"),
			reply("conv-2", "client-2", "second reply"),
		},
	}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "first"))
	o.Enqueue(message("user-1", "second"))
	o.Drain()

	calls := dialog.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Input)
	assert.Empty(t, calls[0].ConversationID, "first turn starts a new conversation")
	assert.Equal(t, "second", calls[1].Input)
	assert.Equal(t, "conv-1", calls[1].ConversationID,
		"second turn must observe the first turn's completed session update")
	assert.Equal(t, "client-1", calls[1].ClientID)
}

// blockingDialog proves distinct senders are processed concurrently: each
// sender's call waits until the other sender's call has started.
type blockingDialog struct {
	arrived chan string
	release chan struct{}
}

func (d *blockingDialog) Converse(ctx context.Context, _, _, input string) (*watson.DialogReply, error) {
	d.arrived <- input
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return reply("conv", "client", "ok"), nil
}

func TestEnqueue_DistinctSendersRunConcurrently(t *testing.T) {
	sessions := session.NewStore()
	dialog := &blockingDialog{arrived: make(chan string, 2), release: make(chan struct{})}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "from one"))
	o.Enqueue(message("user-2", "from two"))

	// Both dialog calls must be in flight before either is released.
	for i := 0; i < 2; i++ {
		select {
		case <-dialog.arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("senders were serialized against each other")
		}
	}
	close(dialog.release)
	o.Drain()

	assert.Len(t, sender.sent(), 2)
}

func TestProcessTurn_ClassifierClearedWhenReplyCarriesNone(t *testing.T) {
	sessions := session.NewStore()
	sessions.Update("user-1", "conv-0", "client-0", "nlc-old")
	dialog := &mockDialog{replies: []*watson.DialogReply{reply("conv-1", "client-1", "Plain text")}}
	sender := &mockSender{}
	o := newOrchestrator(t, sessions, dialog, sender, nil, nil)

	o.Enqueue(message("user-1", "anything"))
	o.Drain()

	sess := sessions.GetOrCreate("user-1")
	assert.Empty(t, sess.ClassifierID, "a reply without a classifier suffix clears the active classifier")
	assert.Equal(t, "conv-1", sess.ConversationID)
}
