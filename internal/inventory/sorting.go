package inventory

import (
	"sort"
	"strings"
	"time"
)

// SortKey selects the field an item listing is ordered by.
type SortKey string

const (
	SortByExpiryDate   SortKey = "expiryDate"
	SortByUnitPrice    SortKey = "unitPrice"
	SortByAcquiredDate SortKey = "acquiredDate"
	SortByQuantity     SortKey = "quantity"
	SortByCreatedAt    SortKey = "createdAt"
)

// ParseSortKey maps a query parameter to a sort key, defaulting to
// newest-first creation order for unknown values.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByExpiryDate, SortByUnitPrice, SortByAcquiredDate, SortByQuantity:
		return SortKey(s)
	default:
		return SortByCreatedAt
	}
}

// SortItems orders items in place by the given key. The sort is stable,
// so equal items keep their incoming order.
//
// Expiry sorting keeps dated items ahead of undated ones whichever
// direction is requested; the direction flips only how two dated items
// compare. Two undated items fall back to newest-created first.
func SortItems(items []*Item, key SortKey, ascending bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch key {
		case SortByExpiryDate:
			return lessByExpiry(a, b, ascending)
		case SortByUnitPrice:
			return lessFloat(priceOrZero(a), priceOrZero(b), ascending)
		case SortByAcquiredDate:
			return lessTime(dateOrZero(a.AcquiredDate), dateOrZero(b.AcquiredDate), ascending)
		case SortByQuantity:
			return lessFloat(a.Quantity, b.Quantity, ascending)
		default:
			return lessTime(a.CreatedAt, b.CreatedAt, ascending)
		}
	})
}

func lessByExpiry(a, b *Item, ascending bool) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate == nil && b.ExpiryDate == nil:
		return a.CreatedAt.After(b.CreatedAt)
	default:
		return lessTime(*a.ExpiryDate, *b.ExpiryDate, ascending)
	}
}

func lessFloat(a, b float64, ascending bool) bool {
	if ascending {
		return a < b
	}
	return b < a
}

func lessTime(a, b time.Time, ascending bool) bool {
	if ascending {
		return a.Before(b)
	}
	return b.Before(a)
}

func priceOrZero(item *Item) float64 {
	if item.UnitPrice == nil {
		return 0
	}
	return *item.UnitPrice
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// NameLookup maps taxonomy and tag IDs to their display names for
// search matching.
type NameLookup struct {
	Categories    map[string]string
	Subcategories map[string]string
	Tags          map[string]string
}

// MatchesQuery reports whether the item matches a free-text search. The
// match is a case-insensitive substring test ORed across the item name,
// its tag names, and its category and subcategory names.
func MatchesQuery(item *Item, query string, names *NameLookup) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}

	if strings.Contains(strings.ToLower(item.Name), query) {
		return true
	}
	for _, tagID := range item.TagIDs {
		if strings.Contains(strings.ToLower(names.Tags[tagID]), query) {
			return true
		}
	}
	if strings.Contains(strings.ToLower(names.Categories[item.CategoryID]), query) {
		return true
	}
	if item.SubcategoryID != "" &&
		strings.Contains(strings.ToLower(names.Subcategories[item.SubcategoryID]), query) {
		return true
	}
	return false
}
