package inventory

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ychen/itemmaster/internal/scanning"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates UUID identifiers
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Default taxonomy seeded on first launch.
var (
	defaultCategoryNames = []string{"食物", "日用品", "服饰", "电子产品"}
	defaultLocationNames = []string{"厨房", "客厅", "卧室", "浴室", "书房"}
)

// Service owns all inventory operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource

	// Guards the single outstanding receipt scan. A second scan started
	// while one is in flight is rejected so two completions can never
	// both mutate state.
	scanInFlight atomic.Bool
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// SeedDefaults inserts the default categories and locations when the
// store holds none.
func (s *Service) SeedDefaults() error {
	categories, err := s.db.ListCategories()
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	if len(categories) == 0 {
		for i, name := range defaultCategoryNames {
			category := &Category{
				ID:            s.idGenerator.Generate(),
				Name:          name,
				IsDefault:     true,
				SortOrder:     i,
				Subcategories: []Subcategory{},
			}
			if err := s.db.SaveCategory(category); err != nil {
				return fmt.Errorf("seeding category %q: %w", name, err)
			}
		}
	}

	locations, err := s.db.ListLocations()
	if err != nil {
		return fmt.Errorf("listing locations: %w", err)
	}
	if len(locations) == 0 {
		for i, name := range defaultLocationNames {
			location := &Location{
				ID:           s.idGenerator.Generate(),
				Name:         name,
				IsDefault:    true,
				SortOrder:    i,
				Sublocations: []Sublocation{},
			}
			if err := s.db.SaveLocation(location); err != nil {
				return fmt.Errorf("seeding location %q: %w", name, err)
			}
		}
	}

	return nil
}

// ItemParams carries the editable fields of an item for create and
// update operations.
type ItemParams struct {
	Name string

	CategoryID    string
	SubcategoryID string
	LocationID    string
	SublocationID string

	Quantity    float64
	Unit        string
	MinQuantity float64

	UnitPrice        *float64
	OriginalCurrency Currency

	Brand   string
	Barcode string
	URL     string
	Notes   string

	SourceType string

	AcquiredDate       *time.Time
	ExpiryDate         *time.Time
	WarrantyExpiryDate *time.Time
	ShelfLifeDays      *int

	RestockIntervalDays *int
	LastRestockedDate   *time.Time
	IsRestockNotified   bool

	IsArchived bool
	IsFavorite bool

	TagIDs []string
}

// validateRefs checks the taxonomy references: the category must exist,
// and a subcategory/sublocation must belong to the item's own parent
// node. The parent/child rule is a correctness invariant here, not a
// stored constraint.
func (s *Service) validateRefs(p *ItemParams) error {
	if p.CategoryID == "" {
		return validationErr("category", "an item requires a category")
	}
	category, err := s.db.GetCategory(p.CategoryID)
	if err != nil {
		return validationErr("category", "unknown category")
	}
	if p.SubcategoryID != "" && category.Subcategory(p.SubcategoryID) == nil {
		return validationErr("subcategory", "does not belong to the item's category")
	}

	if p.LocationID == "" {
		if p.SublocationID != "" {
			return validationErr("sublocation", "requires a location")
		}
		return nil
	}
	location, err := s.db.GetLocation(p.LocationID)
	if err != nil {
		return validationErr("location", "unknown location")
	}
	if p.SublocationID != "" && location.Sublocation(p.SublocationID) == nil {
		return validationErr("sublocation", "does not belong to the item's location")
	}
	return nil
}

// CreateItem validates the params and inserts a new item. The normalized
// USD price is computed at save time with the current exchange rate.
func (s *Service) CreateItem(p ItemParams) (*Item, error) {
	if p.Quantity < 0 {
		return nil, validationErr("quantity", "must not be negative")
	}
	if err := s.validateRefs(&p); err != nil {
		return nil, err
	}

	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = id
	}
	currency := p.OriginalCurrency
	if currency == "" {
		currency = USD
	}
	if !currency.Valid() {
		return nil, validationErr("currency", "must be USD or CNY")
	}
	unit := p.Unit
	if unit == "" {
		unit = "个"
	}
	sourceType := p.SourceType
	if sourceType == "" {
		sourceType = SourceManual
	}
	lastRestocked := p.LastRestockedDate
	if lastRestocked == nil {
		lastRestocked = &now
	}

	item := &Item{
		ID:                  id,
		Name:                name,
		CategoryID:          p.CategoryID,
		SubcategoryID:       p.SubcategoryID,
		LocationID:          p.LocationID,
		SublocationID:       p.SublocationID,
		Quantity:            p.Quantity,
		Unit:                unit,
		MinQuantity:         p.MinQuantity,
		UnitPrice:           p.UnitPrice,
		OriginalCurrency:    currency,
		NormalizedPrice:     Convert(p.UnitPrice, currency, USD, settings.USDToCNYRate),
		Brand:               p.Brand,
		Barcode:             p.Barcode,
		URL:                 p.URL,
		Notes:               p.Notes,
		SourceType:          sourceType,
		AcquiredDate:        p.AcquiredDate,
		ExpiryDate:          p.ExpiryDate,
		WarrantyExpiryDate:  p.WarrantyExpiryDate,
		ShelfLifeDays:       p.ShelfLifeDays,
		RestockIntervalDays: p.RestockIntervalDays,
		LastRestockedDate:   lastRestocked,
		IsRestockNotified:   p.IsRestockNotified,
		IsArchived:          p.IsArchived,
		IsFavorite:          p.IsFavorite,
		TagIDs:              p.TagIDs,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// UpdateItem applies the params to an existing item. Category and
// subcategory reassignment needs no collection bookkeeping: membership
// lives only on the item itself.
func (s *Service) UpdateItem(id string, p ItemParams) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if p.Quantity < 0 {
		return nil, validationErr("quantity", "must not be negative")
	}
	if err := s.validateRefs(&p); err != nil {
		return nil, err
	}

	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	currency := p.OriginalCurrency
	if currency == "" {
		currency = USD
	}
	if !currency.Valid() {
		return nil, validationErr("currency", "must be USD or CNY")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = item.ID
	}

	item.Name = name
	item.CategoryID = p.CategoryID
	item.SubcategoryID = p.SubcategoryID
	item.LocationID = p.LocationID
	item.SublocationID = p.SublocationID
	item.Quantity = p.Quantity
	if p.Unit != "" {
		item.Unit = p.Unit
	}
	item.MinQuantity = p.MinQuantity
	item.UnitPrice = p.UnitPrice
	item.OriginalCurrency = currency
	item.NormalizedPrice = Convert(p.UnitPrice, currency, USD, settings.USDToCNYRate)
	item.Brand = p.Brand
	item.Barcode = p.Barcode
	item.URL = p.URL
	item.Notes = p.Notes
	item.AcquiredDate = p.AcquiredDate
	item.ExpiryDate = p.ExpiryDate
	item.WarrantyExpiryDate = p.WarrantyExpiryDate
	item.ShelfLifeDays = p.ShelfLifeDays
	item.RestockIntervalDays = p.RestockIntervalDays
	if p.LastRestockedDate != nil {
		item.LastRestockedDate = p.LastRestockedDate
	}
	item.IsRestockNotified = p.IsRestockNotified
	item.IsArchived = p.IsArchived
	item.IsFavorite = p.IsFavorite
	item.TagIDs = p.TagIDs
	item.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// GetItem retrieves an item by ID
func (s *Service) GetItem(id string) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item and releases its stored image
func (s *Service) DeleteItem(id string) error {
	item, err := s.db.GetItem(id)
	if err != nil {
		return fmt.Errorf("getting item for deletion: %w", err)
	}

	if item.ImageFilename != "" {
		if err := s.storage.Delete(item.ImageFilename); err != nil {
			// Log but continue with the database deletion
			slog.Warn("Failed to delete item image", "filename", item.ImageFilename, "error", err)
		}
	}

	if err := s.db.DeleteItem(id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// AttachImage stores a new image for the item, releasing any previous one
func (s *Service) AttachImage(id string, data []byte, ext string) (*Item, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	filename, err := s.storage.Save(data, ext)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	if item.ImageFilename != "" {
		if err := s.storage.Delete(item.ImageFilename); err != nil {
			slog.Warn("Failed to delete replaced image", "filename", item.ImageFilename, "error", err)
		}
	}

	item.ImageFilename = filename
	item.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveItem(item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	return item, nil
}

// ItemImage retrieves the stored image bytes for an item
func (s *Service) ItemImage(id string) ([]byte, string, error) {
	item, err := s.db.GetItem(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting item: %w", err)
	}
	if item.ImageFilename == "" {
		return nil, "", fmt.Errorf("item %s has no image", id)
	}
	data, err := s.storage.Get(item.ImageFilename)
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return data, item.ImageFilename, nil
}

// ListOptions scope and order an item listing.
type ListOptions struct {
	CategoryID    string
	SubcategoryID string
	// UncategorizedOnly limits a category scope to items that carry no
	// subcategory.
	UncategorizedOnly bool
	Query             string
	SortKey           SortKey
	Ascending         bool
}

// ListItems returns the items in scope, sorted. Without an explicit sort
// key, the newest items come first.
func (s *Service) ListItems(opts ListOptions) ([]*Item, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	filtered := make([]*Item, 0, len(items))
	for _, item := range items {
		if opts.CategoryID != "" && item.CategoryID != opts.CategoryID {
			continue
		}
		if opts.SubcategoryID != "" && item.SubcategoryID != opts.SubcategoryID {
			continue
		}
		if opts.UncategorizedOnly && item.SubcategoryID != "" {
			continue
		}
		filtered = append(filtered, item)
	}

	if strings.TrimSpace(opts.Query) != "" {
		names, err := s.nameLookup()
		if err != nil {
			return nil, err
		}
		matched := filtered[:0]
		for _, item := range filtered {
			if MatchesQuery(item, opts.Query, names) {
				matched = append(matched, item)
			}
		}
		filtered = matched
	}

	if opts.SortKey != "" {
		SortItems(filtered, opts.SortKey, opts.Ascending)
	} else {
		SortItems(filtered, SortByCreatedAt, false)
	}
	return filtered, nil
}

// nameLookup builds the id-to-name maps the search matcher needs.
func (s *Service) nameLookup() (*NameLookup, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	tags, err := s.db.ListTags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	names := &NameLookup{
		Categories:    make(map[string]string),
		Subcategories: make(map[string]string),
		Tags:          make(map[string]string),
	}
	for _, category := range categories {
		names.Categories[category.ID] = category.Name
		for _, sub := range category.Subcategories {
			names.Subcategories[sub.ID] = sub.Name
		}
	}
	for _, tag := range tags {
		names.Tags[tag.ID] = tag.Name
	}
	return names, nil
}

// ResolveTag returns the tag with the exact name, creating it when
// absent. Resolving the same name twice never yields two tags.
func (s *Service) ResolveTag(name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("tag", "name must not be empty")
	}

	tags, err := s.db.ListTags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	for _, tag := range tags {
		if tag.Name == name {
			return tag, nil
		}
	}

	tag := &Tag{ID: s.idGenerator.Generate(), Name: name}
	if err := s.db.SaveTag(tag); err != nil {
		return nil, fmt.Errorf("saving tag: %w", err)
	}
	return tag, nil
}

// ListTags returns all tags
func (s *Service) ListTags() ([]*Tag, error) {
	tags, err := s.db.ListTags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// Settings returns the current display settings
func (s *Service) Settings() (*Settings, error) {
	settings, err := s.db.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings validates and persists the display settings
func (s *Service) UpdateSettings(settings *Settings) error {
	if !settings.DisplayCurrency.Valid() {
		return validationErr("display currency", "must be USD or CNY")
	}
	if settings.USDToCNYRate <= 0 {
		return validationErr("exchange rate", "must be positive")
	}
	if err := s.db.SaveSettings(settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// ScanReceipt sends a receipt image to the vision scanner and maps the
// parsed records onto item drafts. Only one scan may be outstanding at a
// time; concurrent requests are rejected with ErrScanInProgress.
func (s *Service) ScanReceipt(imageData []byte, contentType string) ([]*ItemDraft, error) {
	if !s.scanInFlight.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.scanInFlight.Store(false)

	categories, err := s.ListCategories()
	if err != nil {
		return nil, err
	}

	parsed, err := s.scanner.ScanReceipt(imageData, contentType, CategoryContext(categories))
	if err != nil {
		slog.Error("Failed to scan receipt",
			"content_type", contentType,
			"image_size", len(imageData),
			"error", err,
		)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	drafts := make([]*ItemDraft, 0, len(parsed))
	for _, record := range parsed {
		drafts = append(drafts, NewItemDraft(record, categories))
	}
	return drafts, nil
}

// CategoryContext renders the category tree as the one-line description
// handed to the vision scanner, e.g. "食物 (零食, 蔬菜); 日用品".
func CategoryContext(categories []*Category) string {
	parts := make([]string, 0, len(categories))
	for _, category := range categories {
		if len(category.Subcategories) == 0 {
			parts = append(parts, category.Name)
			continue
		}
		subs := make([]string, 0, len(category.Subcategories))
		for _, sub := range category.Subcategories {
			subs = append(subs, sub.Name)
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", category.Name, strings.Join(subs, ", ")))
	}
	return strings.Join(parts, "; ")
}
