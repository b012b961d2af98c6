package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/careerpath-ai/internal/ai"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llama3.2"

	tagsPath  = "/api/tags"
	chatPath  = "/api/chat"
	userAgent = "spigell/careerpath-ai"

	defaultProbeTimeout = 5 * time.Second
	maxIdleConnsPerHost = 16
)

// ErrUnexpectedResponse is returned when the chat response lacks a message object.
var ErrUnexpectedResponse = errors.New("unexpected chat response shape")

// StatusError reports a non-successful HTTP status from the service.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Body)
}

// ChatRequest is the wire format of a chat call.
type ChatRequest struct {
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
	Stream   bool         `json:"stream"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message *ai.Message `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// NewChatRequest builds a non-streaming request with a system and a user message.
func NewChatRequest(model, systemPrompt, userPrompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: systemPrompt},
			{Role: ai.RoleUser, Content: userPrompt},
		},
		Stream: false,
	}
}

// Client is a stateless Gateway to an Ollama-compatible server. It is safe for concurrent use;
// all calls share HTTPClient and its connection pool.
type Client struct {
	baseURL string
	model   string
	logger  *zap.Logger

	HTTPClient   *http.Client
	UserAgent    string
	ProbeTimeout time.Duration
}

var _ ai.Gateway = (*Client)(nil)

// New creates a Client. Empty baseURL or model fall back to DefaultURL and DefaultModel.
//
// The HTTP client has no global timeout: every call is bounded by its context, and cancelling the
// context releases the connection back to the pool.
func New(baseURL, model string, logger *zap.Logger) *Client {
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = DefaultURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost

	return &Client{
		baseURL:      baseURL,
		model:        model,
		logger:       logger,
		HTTPClient:   &http.Client{Transport: transport},
		UserAgent:    userAgent,
		ProbeTimeout: defaultProbeTimeout,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) BaseURL() string { return c.baseURL }

// IsAvailable probes the tags endpoint with a short timeout. Any failure yields false.
func (c *Client) IsAvailable(ctx context.Context) bool {
	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.getJSON(ctx, tagsPath, nil); err != nil {
		c.logger.Warn("ollama service unavailable",
			zap.String("url", c.baseURL),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Chat sends the messages and returns the content of the response message. A response with a
// message but no content yields an empty string; transport errors are returned unchanged.
func (c *Client) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	payload := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	var resp chatResponse
	if err := c.postJSON(ctx, chatPath, payload, &resp); err != nil {
		return "", err
	}

	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}

	if resp.Message == nil {
		return "", ErrUnexpectedResponse
	}

	return resp.Message.Content, nil
}
