package inventory

import (
	"fmt"
	"sort"
)

// Metric selects what a statistics bucket accumulates.
type Metric string

const (
	// MetricCount sums item quantities.
	MetricCount Metric = "count"
	// MetricValue sums unit price times quantity, converted to the
	// display currency at the current exchange rate.
	MetricValue Metric = "value"
)

// ParseMetric maps a query parameter to a metric, defaulting to count.
func ParseMetric(s string) Metric {
	if Metric(s) == MetricValue {
		return MetricValue
	}
	return MetricCount
}

// UncategorizedLabel names the synthetic bucket for items outside any
// known category or subcategory.
const UncategorizedLabel = "未分类"

// CategoryStat is one category's share of a metric.
type CategoryStat struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Percentage string  `json:"percentage"`
}

// SubcategoryStat is one subcategory's share of a metric within its
// category. Uncategorized marks the synthetic bucket for items that
// carry no subcategory.
type SubcategoryStat struct {
	SubcategoryID string  `json:"subcategory_id"`
	Name          string  `json:"name"`
	Total         float64 `json:"total"`
	Percentage    string  `json:"percentage"`
	Uncategorized bool    `json:"uncategorized"`
}

// FormatPercent renders a share as "12.5%". A zero total yields "0.0%"
// instead of dividing by zero.
func FormatPercent(part, total float64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", part/total*100)
}

func (s *Service) measure(item *Item, metric Metric, settings *Settings) float64 {
	if metric == MetricValue {
		price := Convert(item.UnitPrice, item.OriginalCurrency, settings.DisplayCurrency, settings.USDToCNYRate)
		return price * item.Quantity
	}
	return item.Quantity
}

// CategoryStats accumulates the metric per category across all items.
// Categories holding no items are omitted. Items whose category no
// longer exists land in a synthetic uncategorized bucket. Buckets come
// back largest first; their totals sum exactly to the returned grand
// total.
func (s *Service) CategoryStats(metric Metric) ([]CategoryStat, float64, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	categories, err := s.ListCategories()
	if err != nil {
		return nil, 0, err
	}
	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, 0, fmt.Errorf("loading settings: %w", err)
	}

	totals := make(map[string]float64, len(categories))
	counts := make(map[string]int, len(categories))
	known := make(map[string]bool, len(categories))
	for _, category := range categories {
		known[category.ID] = true
	}

	var grandTotal, orphaned float64
	var orphanCount int
	for _, item := range items {
		amount := s.measure(item, metric, settings)
		grandTotal += amount
		if known[item.CategoryID] {
			totals[item.CategoryID] += amount
			counts[item.CategoryID]++
		} else {
			orphaned += amount
			orphanCount++
		}
	}

	stats := make([]CategoryStat, 0, len(categories)+1)
	for _, category := range categories {
		if counts[category.ID] == 0 {
			continue
		}
		stats = append(stats, CategoryStat{
			CategoryID: category.ID,
			Name:       category.Name,
			Total:      totals[category.ID],
			Percentage: FormatPercent(totals[category.ID], grandTotal),
		})
	}
	if orphanCount > 0 {
		stats = append(stats, CategoryStat{
			Name:       UncategorizedLabel,
			Total:      orphaned,
			Percentage: FormatPercent(orphaned, grandTotal),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Total > stats[j].Total
	})
	return stats, grandTotal, nil
}

// SubcategoryStats accumulates the metric per subcategory within one
// category. Subcategories holding no items are omitted. Items of the
// category without a subcategory form the uncategorized bucket,
// positioned by its total like any other.
func (s *Service) SubcategoryStats(categoryID string, metric Metric) ([]SubcategoryStat, float64, error) {
	category, err := s.db.GetCategory(categoryID)
	if err != nil {
		return nil, 0, fmt.Errorf("getting category: %w", err)
	}
	items, err := s.db.ListItems()
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, 0, fmt.Errorf("loading settings: %w", err)
	}

	totals := make(map[string]float64, len(category.Subcategories))
	counts := make(map[string]int, len(category.Subcategories))
	var categoryTotal, uncategorized float64
	var uncategorizedCount int
	for _, item := range items {
		if item.CategoryID != categoryID {
			continue
		}
		amount := s.measure(item, metric, settings)
		categoryTotal += amount
		if item.SubcategoryID != "" && category.Subcategory(item.SubcategoryID) != nil {
			totals[item.SubcategoryID] += amount
			counts[item.SubcategoryID]++
		} else {
			uncategorized += amount
			uncategorizedCount++
		}
	}

	stats := make([]SubcategoryStat, 0, len(category.Subcategories)+1)
	for _, sub := range category.Subcategories {
		if counts[sub.ID] == 0 {
			continue
		}
		stats = append(stats, SubcategoryStat{
			SubcategoryID: sub.ID,
			Name:          sub.Name,
			Total:         totals[sub.ID],
			Percentage:    FormatPercent(totals[sub.ID], categoryTotal),
		})
	}
	if uncategorizedCount > 0 {
		stats = append(stats, SubcategoryStat{
			Name:          UncategorizedLabel,
			Total:         uncategorized,
			Percentage:    FormatPercent(uncategorized, categoryTotal),
			Uncategorized: true,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Total > stats[j].Total
	})
	return stats, categoryTotal, nil
}
