// ABOUTME: HTTP client for the Watson Natural Language Classifier.
// ABOUTME: Returns ranked candidate classes; the platform sorts by descending confidence.

package watson

import (
	"bytes"
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

// ErrClassifierUnavailable indicates the classifier call failed or timed out.
var ErrClassifierUnavailable = errors.New("language classifier unavailable")

// Class is one ranked classification candidate. Confidence is in [0,1].
type Class struct {
	Name       string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// ClassifierClient calls trained classifiers by id.
type ClassifierClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClassifierClient creates a classifier client with a bounded per-call
// timeout.
func NewClassifierClient(baseURL, username, password string, timeout time.Duration, logger *slog.Logger) *ClassifierClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifierClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "classifier"),
	}
}

// Classify runs text through the named classifier and returns the ranked
// candidates as delivered, already sorted by descending confidence. The
// order is a platform contract and is not re-sorted locally.
func (c *ClassifierClient) Classify(ctx context.Context, classifierID, text string) ([]Class, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encoding classify request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/classifiers/%s/classify", c.baseURL, url.PathEscape(classifierID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building classify request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("classify call failed",
			"classifier_id", classifierID,
			"status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var body struct {
		Classes []Class `json:"classes"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %v", ErrClassifierUnavailable, err)
	}

	return body.Classes, nil
}
