// ABOUTME: Inbound webhook transport for Messenger events.
// ABOUTME: Verifies the handshake token and unwraps event envelopes before the core sees them.

package messenger

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// EventSource distinguishes typed messages from button selections.
type EventSource string

const (
	// SourceMessage is a message the user typed.
	SourceMessage EventSource = "message"
	// SourcePostback is the payload of a button the user selected.
	SourcePostback EventSource = "postback"
)

// Event is one validated inbound utterance. For postbacks, Text carries the
// button payload, which the core treats exactly like typed text.
type Event struct {
	SenderID string
	Text     string
	Source   EventSource
}

// EventHandler receives validated events. Enqueue must not block on remote
// work; the webhook responds as soon as events are accepted.
type EventHandler interface {
	Enqueue(event Event)
}

// webhook envelope as delivered by the platform
type eventEnvelope struct {
	Entry []struct {
		Messaging []rawEvent `json:"messaging"`
	} `json:"entry"`
}

type rawEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message *struct {
		Text string `json:"text"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
}

// Webhook is the HTTP surface of the bot: the verification handshake, the
// event receiver, and liveness endpoints.
type Webhook struct {
	verifyToken string
	handler     EventHandler
	logger      *slog.Logger
}

// NewWebhook creates the webhook transport. verifyToken is the shared
// secret echoed during the platform's subscription handshake.
func NewWebhook(verifyToken string, handler EventHandler, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		verifyToken: verifyToken,
		handler:     handler,
		logger:      logger.With("component", "webhook"),
	}
}

// Routes registers the webhook endpoints on the given router.
func (w *Webhook) Routes(r *mux.Router) {
	r.HandleFunc("/webhook", w.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/webhook", w.handleEvents).Methods(http.MethodPost)
	r.HandleFunc("/", w.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/healthz", w.handleHealthz).Methods(http.MethodGet)
}

// handleVerify answers the subscription handshake: echo the challenge when
// the verify token matches, reject otherwise.
func (w *Webhook) handleVerify(rw http.ResponseWriter, req *http.Request) {
	if req.URL.Query().Get("hub.verify_token") != w.verifyToken {
		http.Error(rw, "wrong validation token", http.StatusForbidden)
		return
	}
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte(req.URL.Query().Get("hub.challenge")))
}

// handleEvents unwraps the event envelope and enqueues each valid event.
// Malformed envelopes are rejected; malformed individual events are skipped
// so one bad event cannot poison a batch.
func (w *Webhook) handleEvents(rw http.ResponseWriter, req *http.Request) {
	var envelope eventEnvelope
	if err := json.NewDecoder(req.Body).Decode(&envelope); err != nil {
		w.logger.Warn("rejecting malformed envelope", "error", err)
		http.Error(rw, "malformed event envelope", http.StatusBadRequest)
		return
	}

	for _, entry := range envelope.Entry {
		for _, raw := range entry.Messaging {
			event, ok := validate(raw)
			if !ok {
				w.logger.Warn("skipping malformed event", "sender", raw.Sender.ID)
				continue
			}
			w.handler.Enqueue(event)
		}
	}

	rw.WriteHeader(http.StatusOK)
}

func (w *Webhook) handleRoot(rw http.ResponseWriter, _ *http.Request) {
	_, _ = rw.Write([]byte("up"))
}

func (w *Webhook) handleHealthz(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write([]byte(`{"status":"ok"}`))
}

// validate turns a raw platform event into a core Event, rejecting anything
// without a sender or utterance text.
func validate(raw rawEvent) (Event, bool) {
	if raw.Sender.ID == "" {
		return Event{}, false
	}
	if raw.Postback != nil && raw.Postback.Payload != "" {
		return Event{SenderID: raw.Sender.ID, Text: raw.Postback.Payload, Source: SourcePostback}, true
	}
	if raw.Message != nil && raw.Message.Text != "" {
		return Event{SenderID: raw.Sender.ID, Text: raw.Message.Text, Source: SourceMessage}, true
	}
	return Event{}, false
}
