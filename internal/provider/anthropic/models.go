package anthropic

import (
	"slices"
	"strings"

	"github.com/davidbz/barista/internal/domain"
)

const modelPrefix = "claude-"

// Token rates in USD per 1K tokens.
const (
	sonnetInputCostPer1K  = 0.003
	sonnetOutputCostPer1K = 0.015

	opusInputCostPer1K  = 0.015
	opusOutputCostPer1K = 0.075

	haikuInputCostPer1K  = 0.001
	haikuOutputCostPer1K = 0.005

	haiku35InputCostPer1K  = 0.0008
	haiku35OutputCostPer1K = 0.004
)

// Rates returns the token rates of the known Claude models.
func Rates() map[string]domain.ModelRate {
	sonnet := domain.ModelRate{InputCostPer1K: sonnetInputCostPer1K, OutputCostPer1K: sonnetOutputCostPer1K}
	opus := domain.ModelRate{InputCostPer1K: opusInputCostPer1K, OutputCostPer1K: opusOutputCostPer1K}
	haiku := domain.ModelRate{InputCostPer1K: haikuInputCostPer1K, OutputCostPer1K: haikuOutputCostPer1K}

	return map[string]domain.ModelRate{
		"claude-sonnet-4-5":          sonnet,
		"claude-sonnet-4-5-20250929": sonnet,
		"claude-sonnet-4-0":          sonnet,
		"claude-opus-4-1":            opus,
		"claude-opus-4-1-20250805":   opus,
		"claude-haiku-4-5":           haiku,
		"claude-3-5-haiku-latest": {
			InputCostPer1K:  haiku35InputCostPer1K,
			OutputCostPer1K: haiku35OutputCostPer1K,
		},
	}
}

// SupportedModels returns the Claude models with known rates, sorted.
func SupportedModels() []string {
	rates := Rates()
	models := make([]string, 0, len(rates))
	for model := range rates {
		models = append(models, model)
	}
	slices.Sort(models)
	return models
}

// isClaudeModel accepts any Claude model id so new snapshots route here.
func isClaudeModel(model string) bool {
	return strings.HasPrefix(model, modelPrefix)
}
