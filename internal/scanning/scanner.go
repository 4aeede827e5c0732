package scanning

import (
	"errors"
	"fmt"
)

// ParsedReceipt is one product line extracted from a receipt image. All
// fields are best-effort output from the vision model; absent values stay
// empty/nil and the import layer decides the defaults.
type ParsedReceipt struct {
	Name                   string   `json:"name"`
	Brand                  string   `json:"brand"`
	UnitPriceString        string   `json:"unitPriceString"`
	Quantity               *float64 `json:"quantity"`
	MatchedCategoryName    string   `json:"matchedCategoryName"`
	MatchedSubcategoryName string   `json:"matchedSubcategoryName"`
	TagNames               []string `json:"tagNames"`
	Notes                  string   `json:"notes"`
	AcquiredDateString     string   `json:"acquiredDateString"` // YYYY-MM-DD
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts the product
	// records it contains. categoryContext is a textual description of
	// the existing category tree for the model to match names against.
	ScanReceipt(imageData []byte, contentType string, categoryContext string) ([]ParsedReceipt, error)
	// Close closes the scanner and releases resources
	Close() error
}

// ErrImageProcessing indicates the uploaded image could not be decoded or
// converted for the vision model.
var ErrImageProcessing = errors.New("processing receipt image failed")

// ErrInvalidResponse indicates the vision model replied with something
// that does not contain the expected JSON payload.
var ErrInvalidResponse = errors.New("invalid response from vision model")

// APIError is a non-200 reply from the vision API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vision API request failed with status %d: %s", e.StatusCode, e.Body)
}

// buildPrompt renders the extraction instructions, embedding the caller's
// category tree so the model can match against existing names.
func buildPrompt(categoryContext string) string {
	return fmt.Sprintf(`You are an expert at parsing purchase receipts and invoices. Analyze ALL distinct products visible in the image.

Return ONLY a valid JSON object with an array named "items". Each element represents one product. If only one product is found, still return it inside the array.

Each product object must use exactly these keys: name, brand, unitPriceString, quantity, matchedCategoryName, matchedSubcategoryName, tagNames, notes, acquiredDateString.

Rules:
1. name: the full product name, without the brand.
2. brand: the brand name if it can be determined from the product name or image (e.g. Nike, Apple, Lululemon). Return null if unsure.
3. acquiredDateString: the order or delivery date, strictly formatted YYYY-MM-DD. If the image shows a single overall date, use it for every product.
4. If the image clearly shows a marketplace or platform name (e.g. eBay, Amazon, Taobao, Temu), add it to the tagNames array.
5. Category matching: the existing category tree is [%s]. Pick the best fitting names from this tree for matchedCategoryName and matchedSubcategoryName. If nothing fits, return null. Never invent new category names.
6. unitPriceString: the unit price as a plain numeric string.
7. quantity: a number.

Do not include any text before or after the JSON and do not use markdown code blocks.`, categoryContext)
}
