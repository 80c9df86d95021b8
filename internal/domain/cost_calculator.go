package domain

import (
	"context"
	"errors"
)

const tokensToPerK = 1000.0

// CostCalculator calculates the USD cost of an agent run.
type CostCalculator interface {
	// Calculate returns the total cost for a given model and usage.
	Calculate(ctx context.Context, model string, usage Usage) (float64, error)
}

// StandardCostCalculator implements token-based cost calculation.
type StandardCostCalculator struct {
	rates ModelRateRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(rates ModelRateRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		rates: rates,
	}
}

// Calculate computes the total cost based on token usage and model rate.
func (c *StandardCostCalculator) Calculate(
	ctx context.Context,
	model string,
	usage Usage,
) (float64, error) {
	if model == "" {
		return 0, errors.New("model cannot be empty")
	}

	rate, err := c.rates.GetRate(ctx, model)
	if err != nil {
		//nolint:nilerr // Unknown models are free rather than failing the run.
		return 0, nil
	}

	inputCost := float64(usage.PromptTokens) / tokensToPerK * rate.InputCostPer1K
	outputCost := float64(usage.CompletionTokens) / tokensToPerK * rate.OutputCostPer1K

	return inputCost + outputCost, nil
}
