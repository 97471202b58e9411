// ABOUTME: HTTP client for the Watson Dialog v1 conversation endpoint.
// ABOUTME: Carries session handles per call; empty handles start a new conversation.

package watson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrDialogUnavailable indicates the dialog service call failed or timed out.
var ErrDialogUnavailable = errors.New("dialog service unavailable")

// DialogReply is one conversation turn from the dialog engine. The engine
// may return several lines; callers consume the first.
type DialogReply struct {
	ConversationID string
	ClientID       string
	Lines          []string
}

// DialogClient calls the dialog engine's conversation endpoint. The dialog
// id selects which scripted tree the service walks.
type DialogClient struct {
	baseURL    string
	username   string
	password   string
	dialogID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDialogClient creates a dialog engine client with a bounded per-call
// timeout.
func NewDialogClient(baseURL, username, password, dialogID string, timeout time.Duration, logger *slog.Logger) *DialogClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		dialogID:   dialogID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "dialog"),
	}
}

// Converse sends one input to the dialog engine. Empty conversationID and
// clientID signal a new conversation; the reply carries the handles to use
// on the next turn.
func (c *DialogClient) Converse(ctx context.Context, conversationID, clientID, input string) (*DialogReply, error) {
	form := url.Values{}
	form.Set("input", input)
	if conversationID != "" {
		form.Set("conversation_id", conversationID)
	}
	if clientID != "" {
		form.Set("client_id", clientID)
	}

	endpoint := fmt.Sprintf("%s/v1/dialogs/%s/conversation", c.baseURL, url.PathEscape(c.dialogID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building dialog request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("dialog call failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrDialogUnavailable, resp.StatusCode)
	}

	// The service reports the handles as JSON numbers; decode loosely and
	// keep them opaque strings.
	var body struct {
		ConversationID json.Number `json:"conversation_id"`
		ClientID       json.Number `json:"client_id"`
		Response       []string    `json:"response"`
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %v", ErrDialogUnavailable, err)
	}

	return &DialogReply{
		ConversationID: body.ConversationID.String(),
		ClientID:       body.ClientID.String(),
		Lines:          body.Response,
	}, nil
}
