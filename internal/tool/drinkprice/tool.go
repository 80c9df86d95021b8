// Package drinkprice exposes the drink price calculator as an agent tool.
package drinkprice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonrepair"

	"github.com/davidbz/barista/internal/domain"
)

const (
	// Name is the tool name seen by models and MCP clients.
	Name = "calculate_drink_price"

	// Description tells the caller which arguments are mandatory.
	Description = "Calculate the price of a drink from its type and size. " +
		"drink_type (coffee/tea/smoothie/juice) and size (small/medium/large) are required."
)

// Tool prices a single drink order.
type Tool struct {
	calculator *domain.PriceCalculator
}

// NewTool creates the pricing tool (DI constructor).
func NewTool(calculator *domain.PriceCalculator) *Tool {
	return &Tool{
		calculator: calculator,
	}
}

// Definition returns the tool schema.
func (t *Tool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        Name,
		Description: Description,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"drink_type": map[string]any{
					"type":        "string",
					"enum":        enumValues(domain.DrinkTypes()),
					"description": "Drink type: coffee, tea, smoothie, juice",
				},
				"size": map[string]any{
					"type":        "string",
					"enum":        enumValues(domain.Sizes()),
					"description": "Size: small, medium, large",
				},
				"currency": map[string]any{
					"type":        "string",
					"enum":        enumValues(domain.Currencies()),
					"default":     string(domain.DefaultCurrency),
					"description": "Currency: USD, TWD, EUR, JPY (defaults to USD)",
				},
				"ice_level": map[string]any{
					"type":        "string",
					"enum":        enumValues(domain.IceLevels()),
					"default":     string(domain.DefaultIceLevel),
					"description": "Ice level (optional): no-ice, less-ice, normal, extra-ice",
				},
			},
			"required": []string{"drink_type", "size"},
		},
	}
}

// Call decodes the arguments, prices the order and renders the envelope.
func (t *Tool) Call(_ context.Context, args json.RawMessage) domain.ToolResult {
	req, err := decodeRequest(args)
	if err != nil {
		return domain.ErrorResult(err)
	}

	result := t.calculator.Calculate(req)
	quote, ok := result.Quote()
	if !ok {
		return domain.ErrorResult(result.Err())
	}

	body, err := json.MarshalIndent(quote, "", "  ")
	if err != nil {
		return domain.ErrorResult(fmt.Errorf("failed to encode quote: %w", err))
	}

	return domain.TextResult(string(body))
}

// decodeRequest parses tool arguments, repairing malformed JSON once.
func decodeRequest(args json.RawMessage) (domain.PriceRequest, error) {
	var req domain.PriceRequest

	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return req, nil
	}

	err := json.Unmarshal(trimmed, &req)
	if err == nil {
		return req, nil
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return domain.PriceRequest{}, fmt.Errorf("invalid arguments: %w", err)
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(trimmed))
	if repairErr != nil {
		return domain.PriceRequest{}, fmt.Errorf("invalid arguments: %w (repair failed: %v)", err, repairErr)
	}

	req = domain.PriceRequest{}
	if retryErr := json.Unmarshal([]byte(repaired), &req); retryErr != nil {
		return domain.PriceRequest{}, fmt.Errorf("invalid arguments after repair: %w", retryErr)
	}

	return req, nil
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
