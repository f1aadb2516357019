package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const cliTimeout = 2 * time.Minute

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty model response")

// CLIClient runs prompts through a locally installed claude binary. The user
// prompt goes to stdin and the reply is read from stdout.
type CLIClient struct {
	path    string
	timeout time.Duration
}

func NewCLIClient(path string) *CLIClient {
	return &CLIClient{path: path, timeout: cliTimeout}
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, cliArgs(systemPrompt)...)
	cmd.Stdin = strings.NewReader(userPrompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("claude cli: %w", ctx.Err())
		}
		return nil, fmt.Errorf("claude cli: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, fmt.Errorf("claude cli: %w", ErrEmptyResponse)
	}
	return &LLMResponse{Content: text}, nil
}

func cliArgs(systemPrompt string) []string {
	return []string{
		"--print",
		"--output-format", "text",
		"--max-turns", "1",
		"--system-prompt", systemPrompt,
	}
}
