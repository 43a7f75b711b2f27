package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 256
	defaultHistory   = 10 // exchanges kept in context

	// Replies are spoken aloud, so the prompt pushes the model toward
	// short conversational answers.
	defaultSystemPrompt = "You are a friendly voice assistant. " +
		"Answer in one or two short spoken sentences. " +
		"Do not use markdown, lists, or emoji."
)

// Gemini generates replies with the Gemini API. History is bounded:
// once it exceeds the configured number of exchanges the oldest pair
// is dropped.
type Gemini struct {
	client       *genai.Client
	logger       *slog.Logger
	model        string
	systemPrompt string
	maxTokens    int32
	maxHistory   int

	mu      sync.Mutex
	history []*genai.Content
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithModel overrides the model name.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		g.model = model
	}
}

// WithSystemPrompt overrides the persona prompt.
func WithSystemPrompt(prompt string) GeminiOption {
	return func(g *Gemini) {
		g.systemPrompt = prompt
	}
}

// WithMaxHistory bounds the number of retained exchanges.
func WithMaxHistory(n int) GeminiOption {
	return func(g *Gemini) {
		g.maxHistory = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		g.logger = logger
	}
}

// NewGemini creates a Gemini-backed client authenticated with an API
// key.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	g := &Gemini{
		logger:       slog.Default(),
		model:        defaultModel,
		systemPrompt: defaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
		maxHistory:   defaultHistory,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "llm.gemini")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	g.client = client

	return g, nil
}

// Respond sends the user message with the retained history and returns
// the model's reply.
func (g *Gemini) Respond(ctx context.Context, userText string) (string, error) {
	if userText == "" {
		return "", ErrEmptyPrompt
	}

	g.mu.Lock()
	contents := make([]*genai.Content, 0, len(g.history)+1)
	contents = append(contents, g.history...)
	userContent := genai.NewContentFromText(userText, genai.RoleUser)
	contents = append(contents, userContent)
	g.mu.Unlock()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.7)),
		MaxOutputTokens:   g.maxTokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var reply string
	for _, part := range resp.Candidates[0].Content.Parts {
		reply += part.Text
	}
	if reply == "" {
		return "", ErrEmptyResponse
	}

	g.mu.Lock()
	g.history = append(g.history,
		userContent,
		genai.NewContentFromText(reply, genai.RoleModel),
	)
	for len(g.history) > g.maxHistory*2 {
		g.history = g.history[2:]
	}
	turns := len(g.history) / 2
	g.mu.Unlock()

	g.logger.Info("reply generated",
		"prompt_chars", len(userText),
		"reply_chars", len(reply),
		"history_turns", turns,
	)

	return reply, nil
}

// History returns the retained exchanges, oldest first.
func (g *Gemini) History() []Exchange {
	g.mu.Lock()
	defer g.mu.Unlock()

	exchanges := make([]Exchange, 0, len(g.history)/2)
	for i := 0; i+1 < len(g.history); i += 2 {
		exchanges = append(exchanges, Exchange{
			User:  contentText(g.history[i]),
			Model: contentText(g.history[i+1]),
		})
	}
	return exchanges
}

// Reset clears the conversation history.
func (g *Gemini) Reset() {
	g.mu.Lock()
	g.history = nil
	g.mu.Unlock()
}

// Close releases client resources. The genai client holds no
// persistent connection, so this just drops the reference.
func (g *Gemini) Close() error {
	g.client = nil
	return nil
}

func contentText(c *genai.Content) string {
	var text string
	for _, part := range c.Parts {
		text += part.Text
	}
	return text
}

var _ Client = (*Gemini)(nil)
