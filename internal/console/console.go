// Package console implements the interactive terminal front end of the agent.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/observability"
	"github.com/davidbz/barista/internal/tool/drinkprice"
)

const (
	// Banner is printed when a chat starts.
	Banner = "Starting barista agent, interactive mode..."

	// PromptLabel asks the user for input.
	PromptLabel = "Your question: "

	// AssistantLabel prefixes assistant text.
	AssistantLabel = "Assistant: "

	// ResultHeading introduces the final result of a successful run.
	ResultHeading = "=== Final result ==="

	defaultWidth = 80
)

// Options control the console output.
type Options struct {
	// Markdown renders assistant text with glamour. Enable it only for terminals.
	Markdown bool

	// Width is the word-wrap width of rendered markdown.
	Width int

	// Once stops the chat after the first question.
	Once bool

	// Model overrides the configured agent model.
	Model string
}

// Console reads questions and prints agent runs.
type Console struct {
	agent    *domain.AgentService
	tools    domain.ToolRegistry
	in       *bufio.Scanner
	out      io.Writer
	opts     Options
	styles   styles
	markdown *glamour.TermRenderer

	sessionID string
	history   []domain.Message
}

// New creates a console reading from in and writing to out.
func New(agent *domain.AgentService, tools domain.ToolRegistry, in io.Reader, out io.Writer, opts Options) *Console {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}

	c := &Console{
		agent:  agent,
		tools:  tools,
		in:     bufio.NewScanner(in),
		out:    out,
		opts:   opts,
		styles: newStyles(out),
	}

	if opts.Markdown {
		renderer, err := newMarkdownRenderer(opts.Width)
		if err != nil {
			observability.FromContext(context.Background()).Warn("markdown rendering disabled", observability.Error(err))
		} else {
			c.markdown = renderer
		}
	}

	return c
}

// Chat asks questions until EOF, "exit" or "quit". Each answer keeps the
// earlier conversation as context.
func (c *Console) Chat(ctx context.Context) error {
	c.println(c.styles.banner.Render(Banner))
	c.println("")

	for {
		c.print(c.styles.prompt.Render(PromptLabel))

		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			c.println("")
			return nil
		}

		question := strings.TrimSpace(c.in.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			c.println(c.styles.muted.Render("Goodbye!"))
			return nil
		}

		result, err := c.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.println(c.styles.err.Render("Error: " + err.Error()))
		} else {
			c.sessionID = result.SessionID
			c.history = result.Messages
		}

		if c.opts.Once {
			return nil
		}
	}
}

// Ask runs one question and prints its events as they arrive.
func (c *Console) Ask(ctx context.Context, question string) (*domain.RunResult, error) {
	events, err := c.agent.Query(ctx, &domain.QueryRequest{
		SessionID: c.sessionID,
		Prompt:    question,
		Model:     c.opts.Model,
		History:   c.history,
	})
	if err != nil {
		return nil, err
	}

	var result *domain.RunResult
	for event := range events {
		switch event.Type {
		case domain.EventAssistant:
			c.println("")
			c.println(c.styles.assistant.Render(AssistantLabel) + c.render(event.Text))
		case domain.EventToolUse:
			c.println(c.styles.tool.Render(fmt.Sprintf("-> %s %s", event.ToolCall.Name, string(event.ToolCall.Input))))
		case domain.EventToolResult:
			style := c.styles.muted
			if event.ToolResult.IsError {
				style = c.styles.err
			}
			c.println(style.Render("<- " + event.ToolResult.Text()))
		case domain.EventResult:
			result = event.Result
			c.printResult(result)
		}
	}

	if result == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.New("run ended without a result")
	}

	return result, nil
}

// Price calls the pricing tool directly and prints its envelope text.
func (c *Console) Price(ctx context.Context, req domain.PriceRequest) (domain.ToolResult, error) {
	args, err := json.Marshal(req)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("failed to encode price request: %w", err)
	}

	result := c.tools.Invoke(ctx, drinkprice.Name, args)

	if result.IsError {
		c.println(c.styles.err.Render(result.Text()))
	} else {
		c.println(result.Text())
	}

	return result, nil
}

func (c *Console) printResult(result *domain.RunResult) {
	if result.Subtype != domain.ResultSuccess {
		c.println("")
		c.println(c.styles.err.Render(fmt.Sprintf("Run stopped (%s): %s", result.Subtype, result.Error)))
		return
	}

	c.println("")
	c.println(c.styles.heading.Render(ResultHeading))
	c.println(result.Result)
	c.println(c.styles.muted.Render(formatStats(result)))
	c.println("")
}

// render formats assistant markdown when a renderer is configured.
func (c *Console) render(text string) string {
	if c.markdown == nil {
		return text
	}

	rendered, err := c.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}

func (c *Console) print(s string) {
	_, _ = io.WriteString(c.out, s)
}

func (c *Console) println(s string) {
	_, _ = io.WriteString(c.out, s+"\n")
}

// formatStats summarizes a run on one line.
func formatStats(result *domain.RunResult) string {
	return fmt.Sprintf("turns: %d | tokens: %d in / %d out | cost: $%.4f | model: %s | duration: %s",
		result.NumTurns,
		result.Usage.PromptTokens,
		result.Usage.CompletionTokens,
		result.Usage.Cost,
		result.Model,
		result.Duration.Round(time.Millisecond),
	)
}
