package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/dig"

	"github.com/davidbz/barista/internal/config"
	"github.com/davidbz/barista/internal/console"
	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/http"
	"github.com/davidbz/barista/internal/mcpserver"
	"github.com/davidbz/barista/internal/observability"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2

	shutdownTimeout = 10 * time.Second
)

const usage = `Usage: barista <command> [flags]

Commands:
  chat    ask questions interactively (default)
  ask     ask one question given as arguments
  price   price one drink with the calculate_drink_price tool
  mcp     serve the tools over MCP on stdin/stdout
  serve   serve the HTTP API
`

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, container *dig.Container, args []string) int {
	command := "chat"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var err error
	code := exitOK

	switch command {
	case "chat":
		err = runChat(ctx, container, args)
	case "ask":
		err = runAsk(ctx, container, args)
	case "price":
		code, err = runPrice(ctx, container, args)
	case "mcp":
		err = runMCP(ctx, container)
	case "serve":
		err = runServe(ctx, container)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return exitUsage
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "barista %s: %v\n", command, err)
		return exitError
	}
	return code
}

func consoleFlags(name string) (*flag.FlagSet, *console.Options) {
	opts := &console.Options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&opts.Model, "model", "", "model to use instead of AGENT_MODEL")
	fs.IntVar(&opts.Width, "width", 0, "word-wrap width of rendered markdown")
	return fs, opts
}

func newConsole(container *dig.Container, opts console.Options) (*console.Console, error) {
	opts.Markdown = isTerminal(os.Stdout)

	var c *console.Console
	err := container.Invoke(func(agent *domain.AgentService, tools domain.ToolRegistry) {
		c = console.New(agent, tools, os.Stdin, os.Stdout, opts)
	})
	return c, err
}

func runChat(ctx context.Context, container *dig.Container, args []string) error {
	fs, opts := consoleFlags("chat")
	fs.BoolVar(&opts.Once, "once", false, "stop after the first question")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newConsole(container, *opts)
	if err != nil {
		return err
	}
	return c.Chat(ctx)
}

func runAsk(ctx context.Context, container *dig.Container, args []string) error {
	fs, opts := consoleFlags("ask")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return domain.ErrEmptyPrompt
	}

	c, err := newConsole(container, *opts)
	if err != nil {
		return err
	}

	result, err := c.Ask(ctx, question)
	if err != nil {
		return err
	}
	if result.IsError {
		return fmt.Errorf("run stopped: %s", result.Subtype)
	}
	return nil
}

func runPrice(ctx context.Context, container *dig.Container, args []string) (int, error) {
	var req domain.PriceRequest
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	fs.Func("drink", "drink type: coffee, tea, smoothie, juice", func(v string) error {
		req.DrinkType = domain.DrinkType(v)
		return nil
	})
	fs.Func("size", "size: small, medium, large", func(v string) error {
		req.Size = domain.Size(v)
		return nil
	})
	fs.Func("currency", "currency: USD, TWD, EUR, JPY (default USD)", func(v string) error {
		req.Currency = domain.Currency(v)
		return nil
	})
	fs.Func("ice", "ice level: no-ice, less-ice, normal, extra-ice (default normal)", func(v string) error {
		req.IceLevel = domain.IceLevel(v)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return exitUsage, nil
	}

	c, err := newConsole(container, console.Options{})
	if err != nil {
		return exitError, err
	}

	result, err := c.Price(ctx, req)
	if err != nil {
		return exitError, err
	}
	if result.IsError {
		return exitError, nil
	}
	return exitOK, nil
}

func runMCP(ctx context.Context, container *dig.Container) error {
	return container.Invoke(func(tools domain.ToolRegistry, agentCfg *config.AgentConfig) error {
		server, err := mcpserver.New(ctx, tools, agentCfg.AllowedTools)
		if err != nil {
			return err
		}
		return server.Serve(ctx, os.Stdin, os.Stdout)
	})
}

func runServe(ctx context.Context, container *dig.Container) error {
	return container.Invoke(func(server *http.Server) error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(ctx)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			observability.FromContext(ctx).Error("shutdown failed", observability.Error(err))
			return err
		}
		return <-errCh
	})
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
