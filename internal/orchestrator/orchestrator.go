// ABOUTME: Top-level conversation coordinator: one turn per inbound event.
// ABOUTME: Routes the utterance, calls the dialog engine, and dispatches the reply command.

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nheidloff/facebook-watson-bot/internal/actions"
	"github.com/nheidloff/facebook-watson-bot/internal/ledger"
	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
	"github.com/nheidloff/facebook-watson-bot/internal/metrics"
	"github.com/nheidloff/facebook-watson-bot/internal/protocol"
	"github.com/nheidloff/facebook-watson-bot/internal/routing"
	"github.com/nheidloff/facebook-watson-bot/internal/session"
	"github.com/nheidloff/facebook-watson-bot/internal/watson"
)

// User-facing failure messages. The dialog apology keeps the wording users
// of the original bot already know.
const (
	dialogApology    = "Error occured in Watson Dialog service"
	fallbackMessage  = "Sorry, I could not process that response. Please try again."
	defaultTurnLimit = 30 * time.Second
)

// DialogEngine is what the orchestrator needs from the dialog service.
type DialogEngine interface {
	Converse(ctx context.Context, conversationID, clientID, input string) (*watson.DialogReply, error)
}

// MessageSender is what the orchestrator needs from the outbound boundary.
type MessageSender interface {
	SendText(ctx context.Context, recipient, text string) error
	SendButtons(ctx context.Context, recipient, text string, buttons []messenger.Button) error
}

// Router decides what text each utterance becomes before the dialog call.
type Router interface {
	Decide(ctx context.Context, senderID, text string) routing.Decision
}

// TurnRecorder persists completed turns. May be left nil to disable the
// transcript.
type TurnRecorder interface {
	Record(ctx context.Context, turn *ledger.Turn) error
}

// Orchestrator coordinates one conversation turn per inbound event and
// serializes turns per sender.
type Orchestrator struct {
	sessions *session.Store
	router   Router
	dialog   DialogEngine
	sender   MessageSender
	actions  *actions.Registry
	recorder TurnRecorder
	queues   *senderQueues
	turnTime time.Duration
	logger   *slog.Logger
}

// New creates an orchestrator. recorder may be nil.
func New(sessions *session.Store, router Router, dialog DialogEngine, sender MessageSender,
	registry *actions.Registry, recorder TurnRecorder, turnTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnLimit
	}
	o := &Orchestrator{
		sessions: sessions,
		router:   router,
		dialog:   dialog,
		sender:   sender,
		actions:  registry,
		recorder: recorder,
		turnTime: turnTimeout,
		logger:   logger.With("component", "orchestrator"),
	}
	o.queues = newSenderQueues(o.runTurn)
	return o
}

// Enqueue accepts a validated inbound event for processing. It returns
// immediately; the turn runs on the sender's queue.
func (o *Orchestrator) Enqueue(event messenger.Event) {
	metrics.EventsTotal.WithLabelValues(string(event.Source)).Inc()
	o.queues.enqueue(event)
}

// Drain blocks until all queued turns complete. Called on shutdown.
func (o *Orchestrator) Drain() {
	o.queues.wait()
}

// runTurn processes one event to completion under the per-turn deadline.
func (o *Orchestrator) runTurn(event messenger.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), o.turnTime)
	defer cancel()

	if err := o.processTurn(ctx, event); err != nil {
		o.logger.Error("turn failed",
			"sender", event.SenderID,
			"source", event.Source,
			"error", err)
	}
}

// processTurn is the core control flow: route, converse, parse, update the
// session, dispatch. A failed turn sends at most one fallback message and
// never applies a partial session update.
func (o *Orchestrator) processTurn(ctx context.Context, event messenger.Event) error {
	decision := o.router.Decide(ctx, event.SenderID, event.Text)

	sess := o.sessions.GetOrCreate(event.SenderID)
	reply, err := o.dialog.Converse(ctx, sess.ConversationID, sess.ClientID, decision.Input)
	if err != nil {
		metrics.DialogCalls.WithLabelValues("error").Inc()
		o.apologize(ctx, event.SenderID, dialogApology)
		return fmt.Errorf("dialog call: %w", err)
	}
	metrics.DialogCalls.WithLabelValues("ok").Inc()

	if len(reply.Lines) == 0 || reply.Lines[0] == "" {
		metrics.ProtocolErrors.Inc()
		o.apologize(ctx, event.SenderID, fallbackMessage)
		return fmt.Errorf("dialog reply carried no text")
	}

	env, err := protocol.Parse(reply.Lines[0])
	if err != nil {
		metrics.ProtocolErrors.Inc()
		o.apologize(ctx, event.SenderID, fallbackMessage)
		return fmt.Errorf("parsing dialog reply: %w", err)
	}

	// Resolve any action before touching the session so a bad descriptor
	// leaves the turn without side effects.
	var invocation *actions.Invocation
	if env.Command == protocol.CommandExecCode {
		invocation, err = o.actions.Resolve(event.SenderID, env.ActionCall)
		if err != nil {
			metrics.ProtocolErrors.Inc()
			o.apologize(ctx, event.SenderID, fallbackMessage)
			return fmt.Errorf("resolving action: %w", err)
		}
	}

	// The reply is fully understood; replace the session wholesale.
	o.sessions.Update(event.SenderID, reply.ConversationID, reply.ClientID, env.ClassifierID)

	o.dispatch(ctx, event.SenderID, env, invocation)
	o.record(event, decision.Input, env)
	return nil
}

// dispatch performs the observable actions for a parsed reply.
func (o *Orchestrator) dispatch(ctx context.Context, senderID string, env *protocol.Envelope, invocation *actions.Invocation) {
	switch env.Command {
	case protocol.CommandShowButtons:
		buttons := make([]messenger.Button, len(env.Buttons))
		for i, b := range env.Buttons {
			buttons[i] = messenger.Button{Type: b.Type, Title: b.Title, Payload: b.Payload}
		}
		if err := o.sender.SendButtons(ctx, senderID, env.DisplayText, buttons); err != nil {
			o.logger.Error("button delivery failed", "sender", senderID, "error", err)
		}

	case protocol.CommandExecCode:
		if err := o.sender.SendText(ctx, senderID, env.DisplayText); err != nil {
			o.logger.Error("text delivery failed", "sender", senderID, "error", err)
		}
		if err := invocation.Run(ctx); err != nil {
			metrics.ActionRuns.WithLabelValues("error").Inc()
			o.logger.Error("action failed",
				"sender", senderID,
				"action", invocation.Name,
				"error", err)
			return
		}
		metrics.ActionRuns.WithLabelValues("ok").Inc()

	default:
		if err := o.sender.SendText(ctx, senderID, env.DisplayText); err != nil {
			o.logger.Error("text delivery failed", "sender", senderID, "error", err)
		}
	}
}

// apologize sends the single best-effort failure message for a turn.
func (o *Orchestrator) apologize(ctx context.Context, senderID, message string) {
	if err := o.sender.SendText(ctx, senderID, message); err != nil {
		o.logger.Error("apology delivery failed", "sender", senderID, "error", err)
	}
}

// record writes the completed turn to the ledger with its own timeout so
// transcript latency never holds up the conversation.
func (o *Orchestrator) record(event messenger.Event, routedInput string, env *protocol.Envelope) {
	if o.recorder == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	turn := &ledger.Turn{
		ID:          uuid.New().String(),
		SenderID:    event.SenderID,
		Source:      string(event.Source),
		Utterance:   event.Text,
		RoutedInput: routedInput,
		Reply:       env.DisplayText,
		Command:     env.Command.String(),
		CreatedAt:   time.Now(),
	}
	if err := o.recorder.Record(recordCtx, turn); err != nil {
		o.logger.Error("failed to record turn",
			"sender", event.SenderID,
			"turn_id", turn.ID,
			"error", err)
	}
}
