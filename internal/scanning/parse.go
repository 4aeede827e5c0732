package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// receiptsWrapper matches the {"items": [...]} envelope the prompt asks
// the model to produce.
type receiptsWrapper struct {
	Items []ParsedReceipt `json:"items"`
}

// parseReceiptItems extracts the JSON object from a model reply and
// decodes the product records. Vision models routinely wrap the payload
// in markdown fences or prose, so the object boundaries are located
// explicitly.
func parseReceiptItems(text string) ([]ParsedReceipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: unterminated JSON object", ErrInvalidResponse)
	}

	text = text[startIdx : endIdx+1]

	var wrapper receiptsWrapper
	if err := json.Unmarshal([]byte(text), &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	items := make([]ParsedReceipt, 0, len(wrapper.Items))
	for _, item := range wrapper.Items {
		item.Name = strings.TrimSpace(item.Name)
		item.Brand = strings.TrimSpace(item.Brand)
		item.UnitPriceString = strings.TrimSpace(item.UnitPriceString)
		items = append(items, item)
	}

	return items, nil
}
