package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/dig"

	"github.com/davidbz/barista/internal/config"
	"github.com/davidbz/barista/internal/domain"
	"github.com/davidbz/barista/internal/http"
	"github.com/davidbz/barista/internal/http/middleware"
	"github.com/davidbz/barista/internal/observability"
	"github.com/davidbz/barista/internal/provider/anthropic"
	"github.com/davidbz/barista/internal/provider/echo"
	"github.com/davidbz/barista/internal/provider/openai"
	"github.com/davidbz/barista/internal/provider/registry"
	"github.com/davidbz/barista/internal/tool/drinkprice"
	toolregistry "github.com/davidbz/barista/internal/tool/registry"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	container := buildContainer()

	code := run(ctx, container, os.Args[1:])
	stop()
	os.Exit(code)
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Invoke(observability.ReplaceLogger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus()
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Pricing tool
	if err := container.Provide(domain.NewDefaultPriceCalculator); err != nil {
		log.Fatalf("Failed to provide price calculator: %v", err)
	}
	if err := container.Provide(drinkprice.NewTool); err != nil {
		log.Fatalf("Failed to provide pricing tool: %v", err)
	}
	if err := container.Provide(func(pricing *drinkprice.Tool) (domain.ToolRegistry, error) {
		reg := toolregistry.NewRegistry()
		if err := reg.Register(context.Background(), pricing); err != nil {
			return nil, fmt.Errorf("failed to register pricing tool: %w", err)
		}
		return reg, nil
	}); err != nil {
		log.Fatalf("Failed to provide tool registry: %v", err)
	}

	// Cost accounting
	if err := container.Provide(func() domain.ModelRateRegistry {
		return domain.NewInMemoryModelRateRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide rate registry: %v", err)
	}
	if err := container.Provide(func(rates domain.ModelRateRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(rates)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	provideProviders(container)
	registerProviders(container)

	// Domain Services
	if err := container.Provide(resolveQueryOptions); err != nil {
		log.Fatalf("Failed to provide query options: %v", err)
	}
	if err := container.Provide(domain.NewAgentService); err != nil {
		log.Fatalf("Failed to provide agent service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

func provideProviders(container *dig.Container) {
	if err := container.Provide(echo.NewProvider); err != nil {
		log.Fatalf("Failed to provide echo provider: %v", err)
	}

	if err := container.Provide(func(cfg *anthropic.Config) (*anthropic.Provider, error) {
		if cfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return anthropic.NewProvider(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide Anthropic provider: %v", err)
	}

	if err := container.Provide(func(cfg *openai.Config) (*openai.Provider, error) {
		if cfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return openai.NewProvider(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide OpenAI provider: %v", err)
	}
}

// registerProviders registers each provider with its rates. Providers are
// registered one by one so an unconfigured one does not block the others.
func registerProviders(container *dig.Container) {
	register := func(ctx context.Context, reg domain.ProviderRegistry, rates domain.ModelRateRegistry, provider domain.Provider, modelRates map[string]domain.ModelRate) error {
		if err := domain.RegisterRates(ctx, rates, modelRates); err != nil {
			return err
		}
		if err := reg.Register(ctx, provider); err != nil {
			return fmt.Errorf("failed to register %s provider: %w", provider.Name(), err)
		}
		return nil
	}

	ctx := context.Background()

	// Anthropic first so it owns Claude models.
	invokeOptional(container, "Anthropic", func(reg domain.ProviderRegistry, rates domain.ModelRateRegistry, p *anthropic.Provider) error {
		return register(ctx, reg, rates, p, anthropic.Rates())
	})
	invokeOptional(container, "OpenAI", func(reg domain.ProviderRegistry, rates domain.ModelRateRegistry, p *openai.Provider) error {
		return register(ctx, reg, rates, p, openai.Rates())
	})
	invokeOptional(container, "echo", func(reg domain.ProviderRegistry, rates domain.ModelRateRegistry, p *echo.Provider) error {
		return register(ctx, reg, rates, p, echo.Rates())
	})
}

func invokeOptional(container *dig.Container, name string, fn any) {
	if err := container.Invoke(fn); err != nil {
		// Ignore ErrProviderNotConfigured as it's expected for optional providers
		if errors.Is(err, ErrProviderNotConfigured) {
			observability.FromContext(context.Background()).Debug("provider skipped", observability.String("provider", name))
			return
		}
		log.Fatalf("Failed to register %s provider: %v", name, err)
	}
}

// resolveQueryOptions builds the agent defaults. When no registered provider
// serves the configured model the echo model is used instead.
func resolveQueryOptions(cfg *config.AgentConfig, providers domain.ProviderRegistry) domain.QueryOptions {
	opts := cfg.QueryOptions()

	ctx := context.Background()
	if _, err := providers.GetByModel(ctx, opts.Model); err != nil {
		observability.FromContext(ctx).Warn("configured model unavailable, falling back to echo",
			observability.String("model", opts.Model),
			observability.Error(err),
		)
		opts.Model = echo.ModelName
	}

	return opts
}
