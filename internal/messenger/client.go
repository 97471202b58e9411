// ABOUTME: Outbound Messenger send-API client for text, button, and card messages.
// ABOUTME: Delivery failures are returned to the caller, never silently dropped.

package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrDelivery indicates the platform rejected or failed an outbound message.
var ErrDelivery = errors.New("message delivery failed")

// Button is one selectable option attached to a button-template message.
// Payload comes back verbatim as a postback event when the user picks it.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Card is a generic-template element: a titled content card with an image
// and a link button.
type Card struct {
	Title     string
	Subtitle  string
	ImageURL  string
	LinkURL   string
	LinkTitle string
}

// Client sends messages through the Messenger send API. All sends share one
// rate limiter so a burst of enriched cards cannot trip platform limits.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a send-API client. baseURL is the Graph API messages
// endpoint; timeout bounds each delivery attempt.
func NewClient(baseURL, accessToken string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(20), 40),
		logger:      logger.With("component", "messenger"),
	}
}

// SendText delivers a plain text message to the recipient.
func (c *Client) SendText(ctx context.Context, recipient, text string) error {
	return c.send(ctx, recipient, map[string]any{
		"text": text,
	})
}

// SendButtons delivers text with attached selectable options using the
// button template.
func (c *Client) SendButtons(ctx context.Context, recipient, text string, buttons []Button) error {
	return c.send(ctx, recipient, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type": "button",
				"text":          text,
				"buttons":       buttons,
			},
		},
	})
}

// SendCard delivers a generic-template content card with a single link
// button.
func (c *Client) SendCard(ctx context.Context, recipient string, card Card) error {
	linkTitle := card.LinkTitle
	if linkTitle == "" {
		linkTitle = "View"
	}
	return c.send(ctx, recipient, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type": "generic",
				"elements": []map[string]any{
					{
						"title":     card.Title,
						"subtitle":  card.Subtitle,
						"image_url": card.ImageURL,
						"buttons": []Button{
							{Type: "web_url", URL: card.LinkURL, Title: linkTitle},
						},
					},
				},
			},
		},
	})
}

// sendError mirrors the platform's error envelope.
type sendError struct {
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) send(ctx context.Context, recipient string, message map[string]any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	body, err := json.Marshal(map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   message,
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	url := c.baseURL + "?access_token=" + c.accessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("send rejected",
			"recipient", recipient,
			"status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode)
	}

	// The platform can return 200 with an error envelope.
	var se sendError
	if err := json.Unmarshal(respBody, &se); err == nil && se.Error != nil {
		c.logger.Warn("send rejected",
			"recipient", recipient,
			"code", se.Error.Code,
			"message", se.Error.Message)
		return fmt.Errorf("%w: %s", ErrDelivery, se.Error.Message)
	}

	return nil
}
