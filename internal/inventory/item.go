package inventory

import "time"

// ExpiryWarningDays is the window before an expiry date during which an
// item counts as expiring soon.
const ExpiryWarningDays = 7

// SourceType records how an item entered the inventory.
const (
	SourceManual = "manual"
	SourceAI     = "ai"
)

// Item is the central inventory record. Taxonomy and tag membership is
// held as ID references only; the reverse collections are recomputed by
// scanning the item set, never stored.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	CategoryID    string `json:"category_id"`
	SubcategoryID string `json:"subcategory_id,omitempty"`

	LocationID    string `json:"location_id,omitempty"`
	SublocationID string `json:"sublocation_id,omitempty"`

	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	MinQuantity float64 `json:"min_quantity"`

	UnitPrice        *float64 `json:"unit_price,omitempty"`
	OriginalCurrency Currency `json:"original_currency"`
	// NormalizedPrice is UnitPrice converted to USD at the rate in effect
	// when the item was last saved. It exists so stored items can be
	// sorted by price without converting per row.
	NormalizedPrice float64 `json:"normalized_price"`

	Brand      string `json:"brand,omitempty"`
	Barcode    string `json:"barcode,omitempty"`
	URL        string `json:"url,omitempty"`
	IsArchived bool   `json:"is_archived"`
	IsFavorite bool   `json:"is_favorite"`
	SourceType string `json:"source_type"`

	AcquiredDate       *time.Time `json:"acquired_date,omitempty"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	WarrantyExpiryDate *time.Time `json:"warranty_expiry_date,omitempty"`
	ShelfLifeDays      *int       `json:"shelf_life_days,omitempty"`

	RestockIntervalDays *int       `json:"restock_interval_days,omitempty"`
	LastRestockedDate   *time.Time `json:"last_restocked_date,omitempty"`
	IsRestockNotified   bool       `json:"is_restock_notified"`

	TagIDs []string `json:"tag_ids,omitempty"`

	ImageFilename string `json:"image_filename,omitempty"`
	Notes         string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a deduplicated, name-keyed label shared across items.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Settings are the user-editable display preferences read by the sort and
// aggregation engines. They are passed explicitly to call sites rather
// than read from process-wide state.
type Settings struct {
	DisplayCurrency Currency `json:"display_currency"`
	USDToCNYRate    float64  `json:"usd_to_cny_rate"`
}

// DefaultSettings returns the settings used before the user edits them.
func DefaultSettings() *Settings {
	return &Settings{
		DisplayCurrency: USD,
		USDToCNYRate:    DefaultUSDToCNYRate,
	}
}

// calendarDays returns the whole-day difference between the calendar
// dates of from and to, ignoring time of day.
func calendarDays(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(t.Sub(f).Hours() / 24)
}

// IsExpiringSoon reports whether the item expires within the warning
// window: the expiry date is set and lies 0 to ExpiryWarningDays calendar
// days from now, inclusive.
func (i *Item) IsExpiringSoon(now time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	d := calendarDays(now, *i.ExpiryDate)
	return d >= 0 && d <= ExpiryWarningDays
}

// IsExpired reports whether the expiry date is set and strictly in the
// past.
func (i *Item) IsExpired(now time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	return i.ExpiryDate.Before(now)
}

// NeedsRestock reports whether the item is at or below its restock floor,
// or overdue by its restock interval.
func (i *Item) NeedsRestock(now time.Time) bool {
	if i.Quantity <= i.MinQuantity {
		return true
	}
	if i.RestockIntervalDays == nil || i.LastRestockedDate == nil {
		return false
	}
	return calendarDays(*i.LastRestockedDate, now) >= *i.RestockIntervalDays
}

// HasTag reports whether the item references the given tag ID.
func (i *Item) HasTag(tagID string) bool {
	for _, id := range i.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}
