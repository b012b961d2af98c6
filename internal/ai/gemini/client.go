package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/careerpath-ai/internal/ai"
)

const (
	DefaultModel = "gemini-2.5-flash"

	defaultProbeTimeout = 5 * time.Second

	roleUser  = "user"
	roleModel = "model"
)

// ErrNoCandidates is returned when the response carries no candidate at all. A candidate without
// text is a valid empty answer.
var ErrNoCandidates = errors.New("gemini api returned no candidates")

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type modelGetter interface {
	Get(ctx context.Context, model string) error
}

type genaiChats struct {
	client *genai.Client
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.client.Chats.Create(ctx, model, config, history)
}

type genaiModels struct {
	client *genai.Client
}

func (m genaiModels) Get(ctx context.Context, model string) error {
	_, err := m.client.Models.Get(ctx, model, nil)
	return err
}

// Generator is a Gateway backed by the Gemini API. Every Chat call opens a fresh chat session,
// so a Generator holds no conversation state and is safe for concurrent use.
type Generator struct {
	chats  chatCreator
	models modelGetter
	model  string
	logger *zap.Logger

	ProbeTimeout time.Duration
}

var _ ai.Gateway = (*Generator)(nil)

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:        genaiChats{client: client},
		models:       genaiModels{client: client},
		model:        model,
		logger:       logger,
		ProbeTimeout: defaultProbeTimeout,
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// IsAvailable looks up the configured model with a short timeout. Any failure yields false.
func (g *Generator) IsAvailable(ctx context.Context) bool {
	if g == nil || g.models == nil {
		return false
	}

	timeout := g.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := g.models.Get(ctx, g.model); err != nil {
		g.logger.Warn("gemini model unavailable", zap.String("model", g.model), zap.Error(err))
		return false
	}

	return true
}

// Chat sends the last message of the conversation. System messages become the system
// instruction and the remaining turns are replayed as chat history.
func (g *Generator) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	config, history, last, err := splitMessages(messages)
	if err != nil {
		return "", err
	}

	chat, err := g.chats.Create(ctx, g.model, config, history)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	output, ok := responseText(resp)
	if !ok {
		return "", ErrNoCandidates
	}

	return output, nil
}

func splitMessages(messages []ai.Message) (*genai.GenerateContentConfig, []*genai.Content, string, error) {
	var (
		system []string
		turns  []ai.Message
	)
	for _, msg := range messages {
		if msg.Role == ai.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != ai.RoleUser {
		return nil, nil, "", errors.New("conversation must end with a user message")
	}

	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
			},
		}
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, msg := range turns[:len(turns)-1] {
		role := roleUser
		if msg.Role == ai.RoleAssistant {
			role = roleModel
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return config, history, turns[len(turns)-1].Content, nil
}

// responseText concatenates the text parts of the first candidate unchanged, skipping thought
// parts like genai's Text does. ok is false when there is no candidate.
func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", false
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return "", true
	}

	var builder strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		builder.WriteString(part.Text)
	}

	return builder.String(), true
}
