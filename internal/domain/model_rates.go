package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ModelRate contains the token pricing of a model.
type ModelRate struct {
	InputCostPer1K  float64 // USD per 1K input tokens
	OutputCostPer1K float64 // USD per 1K output tokens
}

// ModelRateRegistry maintains token pricing for models.
type ModelRateRegistry interface {
	// GetRate returns the rate of a model.
	GetRate(ctx context.Context, model string) (ModelRate, error)

	// RegisterRate adds the rate of a model.
	RegisterRate(ctx context.Context, model string, rate ModelRate) error
}

// InMemoryModelRateRegistry stores model rates in memory.
type InMemoryModelRateRegistry struct {
	mu    sync.RWMutex
	rates map[string]ModelRate
}

// NewInMemoryModelRateRegistry creates a new in-memory rate registry.
func NewInMemoryModelRateRegistry() *InMemoryModelRateRegistry {
	return &InMemoryModelRateRegistry{
		mu:    sync.RWMutex{},
		rates: make(map[string]ModelRate),
	}
}

// GetRate retrieves the rate of a model.
func (r *InMemoryModelRateRegistry) GetRate(
	_ context.Context,
	model string,
) (ModelRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rate, exists := r.rates[model]
	if !exists {
		return ModelRate{}, fmt.Errorf("rate not found for model: %s", model)
	}

	return rate, nil
}

// RegisterRate adds the rate of a model, replacing any previous one.
func (r *InMemoryModelRateRegistry) RegisterRate(
	_ context.Context,
	model string,
	rate ModelRate,
) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rates[model] = rate
	return nil
}

// RegisterRates adds several rates at once.
func RegisterRates(ctx context.Context, registry ModelRateRegistry, rates map[string]ModelRate) error {
	for model, rate := range rates {
		if err := registry.RegisterRate(ctx, model, rate); err != nil {
			return fmt.Errorf("failed to register rate for model %s: %w", model, err)
		}
	}
	return nil
}
