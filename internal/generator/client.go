package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/skillforge/backend/internal/config"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/models"
)

var (
	// ErrNoQuestions is returned when a quiz response holds no usable question.
	ErrNoQuestions = errors.New("no usable questions in response")
	// ErrNotObject is returned when an analysis response is not a JSON object.
	ErrNotObject = errors.New("analysis response is not a JSON object")
)

// LLMClient is the interface every model backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator wraps an LLMClient with the quiz and analysis prompts.
type Generator struct {
	llm   LLMClient
	model string
	log   *logger.Logger
}

// NewGenerator picks the backend from configuration: the claude CLI, canned
// mock data, or the Anthropic API.
func NewGenerator(cfg *config.Config, log *logger.Logger) *Generator {
	log = log.With("component", "generator")

	switch {
	case cfg.UseCLIGenerator:
		log.Info("generator using claude CLI", "path", cfg.ClaudeCLIPath)
		return New(NewCLIClient(cfg.ClaudeCLIPath), "claude-cli", log)
	case cfg.MockGenerator:
		log.Info("generator using mock data")
		return New(NewMockClient(), "mock", log)
	default:
		log.Info("generator using Anthropic API", "model", cfg.AnthropicModel)
		return New(NewAPIClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, log), cfg.AnthropicModel, log)
	}
}

func New(llm LLMClient, model string, log *logger.Logger) *Generator {
	return &Generator{llm: llm, model: model, log: log}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GenerateProfileQuiz asks the model for a quiz adapted to the learner.
func (g *Generator) GenerateProfileQuiz(ctx context.Context, pc ProfileContext) ([]models.GeneratedQuestion, error) {
	resp, err := g.llm.Generate(ctx, QuizSystemPrompt(), BuildQuizUserPrompt(pc))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	parsed, err := ExtractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse quiz response: %w", err)
	}

	var items []any
	switch v := parsed.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["questions"].([]any)
	}

	questions := NormalizeQuestions(items)
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	g.log.Debug("quiz generated", "questions", len(questions), "prompt_tokens", resp.PromptTokens, "output_tokens", resp.OutputTokens)
	return questions, nil
}

// AnalyzeProfile asks the model for a deep analysis of a quiz attempt.
func (g *Generator) AnalyzeProfile(ctx context.Context, user any, evaluation any) (map[string]any, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	evalJSON, err := json.Marshal(evaluation)
	if err != nil {
		return nil, fmt.Errorf("encode evaluation: %w", err)
	}

	resp, err := g.llm.Generate(ctx, AnalysisSystemPrompt(), BuildAnalysisUserPrompt(string(userJSON), string(evalJSON)))
	if err != nil {
		return nil, fmt.Errorf("analyze profile: %w", err)
	}

	parsed, err := ExtractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// ── APIClient: Anthropic SDK ────────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
	log    *logger.Logger
}

func NewAPIClient(apiKey, model string, log *logger.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("anthropic api: %w", ErrEmptyResponse)
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn("retrying Anthropic API call", "in", sleepDuration, "attempt", attempt+1)
			select {
			case <-time.After(sleepDuration):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: local development ───────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	content := buildMockQuizJSON()
	if systemPrompt == AnalysisSystemPrompt() {
		content = mockAnalysisJSON
	}
	return &LLMResponse{
		Content:      "```json\n" + content + "\n```",
		PromptTokens: 800,
		OutputTokens: 1200,
	}, nil
}

const mockAnalysisJSON = `{
  "summary": "[Mock] Solid fundamentals with gaps in applied topics.",
  "level_estimate": "intermediate",
  "recommendations": ["[Mock] Schedule two short practice sessions this week"]
}`

func buildMockQuizJSON() string {
	topics := []string{"Go basics", "Concurrency", "Testing", "HTTP", "SQL"}
	types := []models.QuestionType{models.QuestionMultipleChoice, models.QuestionTrueFalse, models.QuestionOpen}

	questions := make([]models.GeneratedQuestion, 10)
	for i := range questions {
		topic := topics[i%len(topics)]
		q := models.GeneratedQuestion{
			Number:       i + 1,
			QuestionText: fmt.Sprintf("[Mock] Question %d about %s?", i+1, topic),
			Type:         types[i%len(types)],
			Topic:        topic,
		}
		switch q.Type {
		case models.QuestionMultipleChoice:
			q.Options = []string{"A. first", "B. second", "C. third", "D. fourth"}
			q.CorrectAnswer = "A"
		case models.QuestionTrueFalse:
			q.Options = []string{"True", "False"}
			q.CorrectAnswer = "True"
		}
		questions[i] = q
	}

	data, _ := json.Marshal(questions)
	return string(data)
}
