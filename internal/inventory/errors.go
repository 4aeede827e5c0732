package inventory

import (
	"errors"
	"fmt"
)

// ErrScanInProgress is returned when a receipt scan is requested while a
// previous one is still outstanding. Only one scan runs at a time so two
// completions can never both apply.
var ErrScanInProgress = errors.New("a receipt scan is already in progress")

// RestrictedDeletionError signals an attempt to delete a taxonomy node
// that items still reference. The store is left unchanged.
type RestrictedDeletionError struct {
	Kind      string // "category", "subcategory", "location", "sublocation"
	Name      string
	ItemCount int
}

func (e *RestrictedDeletionError) Error() string {
	return fmt.Sprintf("cannot delete %s %q: %d item(s) still reference it", e.Kind, e.Name, e.ItemCount)
}

// ValidationError signals a rejected mutation, such as saving an item
// without a category. The write is aborted and nothing is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
