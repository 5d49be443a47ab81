package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"learnassist/internal/config"
	"learnassist/internal/models"
)

// Detail strings surfaced when no real backend response exists.
const (
	detailNoEndpoint    = "Completion endpoint is not defined."
	detailConnectFailed = "Failed to connect to chat completion API."
)

// Result is what the orchestrator consumes: the backend's status code plus
// either a parsed assistant message or a human-readable detail string.
// Network failures are synthesized into a Result, never raised.
type Result struct {
	StatusCode int
	Message    *models.ChatMessage
	Detail     string
}

// requestBody matches the completion service's wire format. The render
// block tells the service which document to pull title and skill names
// from when it fills in the prompt placeholders.
type requestBody struct {
	Context     requestContext       `json:"context"`
	MessageList []models.ChatMessage `json:"message_list"`
}

type requestContext struct {
	Content string        `json:"content"`
	Render  renderContext `json:"render"`
}

type renderContext struct {
	DocID  string   `json:"doc_id"`
	Fields []string `json:"fields"`
}

// Client calls the chat completion backend. Retries are bounded and apply
// to 429 and 5xx responses only.
type Client struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
}

func NewClient(cfg config.CompletionConfig) *Client {
	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	readTimeout := time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		maxAttempts: cfg.MaxAttempts,
		backoff:     time.Duration(cfg.BackoffSeconds) * time.Second,
	}
}

// ChatCompletion posts the prompt and message list to the backend and
// returns its response verbatim. Whatever goes wrong, the Result is always
// well formed.
func (c *Client) ChatCompletion(ctx context.Context, prompt string, messages []models.ChatMessage, courseID string) Result {
	if c.endpoint == "" || c.apiKey == "" {
		return Result{StatusCode: http.StatusNotFound, Detail: detailNoEndpoint}
	}

	payload, err := json.Marshal(requestBody{
		Context: requestContext{
			Content: prompt,
			Render: renderContext{
				DocID:  courseID,
				Fields: []string{"skillNames", "title"},
			},
		},
		MessageList: messages,
	})
	if err != nil {
		return Result{StatusCode: http.StatusInternalServerError, Detail: "could not encode completion request"}
	}

	var last Result
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		last = c.post(ctx, payload)
		if !retryable(last.StatusCode) {
			return last
		}
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return last
}

func (c *Client) post(ctx context.Context, payload []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{StatusCode: http.StatusBadGateway, Detail: detailConnectFailed}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusGatewayTimeout
		}
		log.Printf("completion request failed: %v", err)
		return Result{StatusCode: status, Detail: detailConnectFailed}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("completion response read failed: %v", err)
		return Result{StatusCode: http.StatusBadGateway, Detail: detailConnectFailed}
	}

	var msg models.ChatMessage
	if err := json.Unmarshal(body, &msg); err == nil && msg.Content != "" {
		return Result{StatusCode: resp.StatusCode, Message: &msg}
	}
	return Result{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
}

// retryable reports whether a response class is worth another attempt:
// rate limits and server-side failures only.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
