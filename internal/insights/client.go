// ABOUTME: HTTP client for the social insights search API.
// ABOUTME: Looks up tweets by topic and sentiment for follow-up content cards.

package insights

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

// ErrSearchUnavailable indicates the insights search call failed.
var ErrSearchUnavailable = errors.New("insights search unavailable")

// Tweet is one search hit, flattened to what the content card needs.
type Tweet struct {
	Author   string
	ImageURL string
	Body     string
	Link     string
}

// Client queries the insights search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an insights search client with a bounded per-call
// timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "insights"),
	}
}

// searchResponse mirrors the API's nested tweet envelope.
type searchResponse struct {
	Tweets []struct {
		Message struct {
			Actor struct {
				DisplayName string `json:"displayName"`
				Image       string `json:"image"`
			} `json:"actor"`
			Body string `json:"body"`
			Link string `json:"link"`
		} `json:"message"`
	} `json:"tweets"`
}

// Search returns tweets matching the topic with the given sentiment, in
// the API's ranking order.
func (c *Client) Search(ctx context.Context, topic, sentiment string) ([]Tweet, error) {
	query := fmt.Sprintf("%s AND sentiment:%s", topic, sentiment)
	endpoint := c.baseURL + "/api/1/messages/search?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("search failed", "status", resp.StatusCode, "topic", topic)
		return nil, fmt.Errorf("%w: status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding results: %v", ErrSearchUnavailable, err)
	}

	tweets := make([]Tweet, 0, len(body.Tweets))
	for _, hit := range body.Tweets {
		tweets = append(tweets, Tweet{
			Author:   hit.Message.Actor.DisplayName,
			ImageURL: hit.Message.Actor.Image,
			Body:     hit.Message.Body,
			Link:     hit.Message.Link,
		})
	}
	return tweets, nil
}
