package openai

import (
	"slices"

	"github.com/davidbz/barista/internal/domain"
)

const (
	// GPT-4o pricing per 1K tokens
	gpt4oInputCostPer1K  = 0.0025
	gpt4oOutputCostPer1K = 0.01

	// GPT-4o mini pricing per 1K tokens
	gpt4oMiniInputCostPer1K  = 0.00015
	gpt4oMiniOutputCostPer1K = 0.0006

	// GPT-4.1 pricing per 1K tokens
	gpt41InputCostPer1K  = 0.002
	gpt41OutputCostPer1K = 0.008

	// GPT-4 Turbo pricing per 1K tokens
	gpt4TurboInputCostPer1K  = 0.01
	gpt4TurboOutputCostPer1K = 0.03

	// GPT-3.5 Turbo pricing per 1K tokens
	gpt35TurboInputCostPer1K  = 0.0005
	gpt35TurboOutputCostPer1K = 0.0015
)

// Rates returns the token rates of the tool-capable OpenAI models.
func Rates() map[string]domain.ModelRate {
	return map[string]domain.ModelRate{
		"gpt-4o": {
			InputCostPer1K:  gpt4oInputCostPer1K,
			OutputCostPer1K: gpt4oOutputCostPer1K,
		},
		"gpt-4o-mini": {
			InputCostPer1K:  gpt4oMiniInputCostPer1K,
			OutputCostPer1K: gpt4oMiniOutputCostPer1K,
		},
		"gpt-4.1": {
			InputCostPer1K:  gpt41InputCostPer1K,
			OutputCostPer1K: gpt41OutputCostPer1K,
		},
		"gpt-4-turbo": {
			InputCostPer1K:  gpt4TurboInputCostPer1K,
			OutputCostPer1K: gpt4TurboOutputCostPer1K,
		},
		"gpt-3.5-turbo": {
			InputCostPer1K:  gpt35TurboInputCostPer1K,
			OutputCostPer1K: gpt35TurboOutputCostPer1K,
		},
	}
}

// SupportedModels returns the list of models supported by OpenAI provider.
func SupportedModels() []string {
	rates := Rates()
	models := make([]string, 0, len(rates))
	for model := range rates {
		models = append(models, model)
	}
	slices.Sort(models)
	return models
}

// buildModelSet creates a map for O(1) lookup.
func buildModelSet(models []string) map[string]bool {
	set := make(map[string]bool, len(models))
	for _, model := range models {
		set[model] = true
	}
	return set
}
