package inventory

import (
	"fmt"
	"strings"
)

// ListCategories returns all categories in display order
func (s *Service) ListCategories() ([]*Category, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	sortCategories(categories)
	return categories, nil
}

// CreateCategory appends a new category at the end of the display order
func (s *Service) CreateCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("category", "name must not be empty")
	}

	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	order := 0
	for _, existing := range categories {
		if existing.SortOrder >= order {
			order = existing.SortOrder + 1
		}
	}

	category := &Category{
		ID:            s.idGenerator.Generate(),
		Name:          name,
		SortOrder:     order,
		Subcategories: []Subcategory{},
	}
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return category, nil
}

// RenameCategory sets the trimmed name. An empty result leaves the name
// unchanged rather than writing a blank.
func (s *Service) RenameCategory(id, name string) (*Category, error) {
	category, err := s.db.GetCategory(id)
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" || name == category.Name {
		return category, nil
	}

	category.Name = name
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category. The delete is restricted: any item
// still referencing the category, directly or through one of its
// subcategories, blocks it. An empty category takes its subcategory
// records with it.
func (s *Service) DeleteCategory(id string) error {
	category, err := s.db.GetCategory(id)
	if err != nil {
		return fmt.Errorf("getting category: %w", err)
	}

	count, err := s.countItems(func(item *Item) bool {
		return item.CategoryID == id
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return &RestrictedDeletionError{Kind: "category", Name: category.Name, ItemCount: count}
	}

	if err := s.db.DeleteCategory(id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// ReorderCategories assigns contiguous sort orders following ids, which
// must name every category exactly once.
func (s *Service) ReorderCategories(ids []string) error {
	categories, err := s.db.ListCategories()
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	byID := make(map[string]*Category, len(categories))
	for _, category := range categories {
		byID[category.ID] = category
	}
	if len(ids) != len(categories) {
		return validationErr("order", "must list every category exactly once")
	}

	for i, id := range ids {
		category, ok := byID[id]
		if !ok {
			return validationErr("order", "unknown category")
		}
		category.SortOrder = i
		if err := s.db.SaveCategory(category); err != nil {
			return fmt.Errorf("saving category: %w", err)
		}
	}
	return nil
}

// CreateSubcategory appends a subcategory to the category's display order
func (s *Service) CreateSubcategory(categoryID, name string) (*Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("subcategory", "name must not be empty")
	}

	category, err := s.db.GetCategory(categoryID)
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}

	sub := Subcategory{
		ID:        s.idGenerator.Generate(),
		Name:      name,
		SortOrder: category.nextSubcategoryOrder(),
	}
	category.Subcategories = append(category.Subcategories, sub)
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return &sub, nil
}

// RenameSubcategory sets the trimmed name, leaving it unchanged when the
// result is empty.
func (s *Service) RenameSubcategory(categoryID, subID, name string) (*Subcategory, error) {
	category, err := s.db.GetCategory(categoryID)
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	sub := category.Subcategory(subID)
	if sub == nil {
		return nil, validationErr("subcategory", "unknown subcategory")
	}

	name = strings.TrimSpace(name)
	if name == "" || name == sub.Name {
		return sub, nil
	}

	sub.Name = name
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return sub, nil
}

// DeleteSubcategory removes a subcategory unless items still reference it
func (s *Service) DeleteSubcategory(categoryID, subID string) error {
	category, err := s.db.GetCategory(categoryID)
	if err != nil {
		return fmt.Errorf("getting category: %w", err)
	}
	sub := category.Subcategory(subID)
	if sub == nil {
		return validationErr("subcategory", "unknown subcategory")
	}

	count, err := s.countItems(func(item *Item) bool {
		return item.SubcategoryID == subID
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return &RestrictedDeletionError{Kind: "subcategory", Name: sub.Name, ItemCount: count}
	}

	kept := category.Subcategories[:0]
	for _, existing := range category.Subcategories {
		if existing.ID != subID {
			kept = append(kept, existing)
		}
	}
	category.Subcategories = kept
	if err := s.db.SaveCategory(category); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// ReorderSubcategories assigns contiguous sort orders within a category.
// The ids must name every subcategory exactly once and may additionally
// include UncategorizedKey to position the synthetic uncategorized row
// among the real subcategories.
func (s *Service) ReorderSubcategories(categoryID string, ids []string) error {
	category, err := s.db.GetCategory(categoryID)
	if err != nil {
		return fmt.Errorf("getting category: %w", err)
	}

	real := 0
	for _, id := range ids {
		if id != UncategorizedKey {
			real++
		}
	}
	if real != len(category.Subcategories) {
		return validationErr("order", "must list every subcategory exactly once")
	}

	for i, id := range ids {
		if id == UncategorizedKey {
			category.UncategorizedSortOrder = i
			continue
		}
		sub := category.Subcategory(id)
		if sub == nil {
			return validationErr("order", "unknown subcategory")
		}
		sub.SortOrder = i
	}
	sortSubcategories(category.Subcategories)

	if err := s.db.SaveCategory(category); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// ListLocations returns all locations in display order
func (s *Service) ListLocations() ([]*Location, error) {
	locations, err := s.db.ListLocations()
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	sortLocations(locations)
	return locations, nil
}

// CreateLocation appends a new location at the end of the display order
func (s *Service) CreateLocation(name string) (*Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("location", "name must not be empty")
	}

	locations, err := s.db.ListLocations()
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	order := 0
	for _, existing := range locations {
		if existing.SortOrder >= order {
			order = existing.SortOrder + 1
		}
	}

	location := &Location{
		ID:           s.idGenerator.Generate(),
		Name:         name,
		SortOrder:    order,
		Sublocations: []Sublocation{},
	}
	if err := s.db.SaveLocation(location); err != nil {
		return nil, fmt.Errorf("saving location: %w", err)
	}
	return location, nil
}

// RenameLocation sets the trimmed name, leaving it unchanged when the
// result is empty.
func (s *Service) RenameLocation(id, name string) (*Location, error) {
	location, err := s.db.GetLocation(id)
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" || name == location.Name {
		return location, nil
	}

	location.Name = name
	if err := s.db.SaveLocation(location); err != nil {
		return nil, fmt.Errorf("saving location: %w", err)
	}
	return location, nil
}

// DeleteLocation removes a location unless items still reference it
func (s *Service) DeleteLocation(id string) error {
	location, err := s.db.GetLocation(id)
	if err != nil {
		return fmt.Errorf("getting location: %w", err)
	}

	count, err := s.countItems(func(item *Item) bool {
		return item.LocationID == id
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return &RestrictedDeletionError{Kind: "location", Name: location.Name, ItemCount: count}
	}

	if err := s.db.DeleteLocation(id); err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}

// ReorderLocations assigns contiguous sort orders following ids, which
// must name every location exactly once.
func (s *Service) ReorderLocations(ids []string) error {
	locations, err := s.db.ListLocations()
	if err != nil {
		return fmt.Errorf("listing locations: %w", err)
	}
	byID := make(map[string]*Location, len(locations))
	for _, location := range locations {
		byID[location.ID] = location
	}
	if len(ids) != len(locations) {
		return validationErr("order", "must list every location exactly once")
	}

	for i, id := range ids {
		location, ok := byID[id]
		if !ok {
			return validationErr("order", "unknown location")
		}
		location.SortOrder = i
		if err := s.db.SaveLocation(location); err != nil {
			return fmt.Errorf("saving location: %w", err)
		}
	}
	return nil
}

// CreateSublocation appends a sublocation to the location's display order
func (s *Service) CreateSublocation(locationID, name string) (*Sublocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("sublocation", "name must not be empty")
	}

	location, err := s.db.GetLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}

	sub := Sublocation{
		ID:        s.idGenerator.Generate(),
		Name:      name,
		SortOrder: location.nextSublocationOrder(),
	}
	location.Sublocations = append(location.Sublocations, sub)
	if err := s.db.SaveLocation(location); err != nil {
		return nil, fmt.Errorf("saving location: %w", err)
	}
	return &sub, nil
}

// RenameSublocation sets the trimmed name, leaving it unchanged when the
// result is empty.
func (s *Service) RenameSublocation(locationID, subID, name string) (*Sublocation, error) {
	location, err := s.db.GetLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	sub := location.Sublocation(subID)
	if sub == nil {
		return nil, validationErr("sublocation", "unknown sublocation")
	}

	name = strings.TrimSpace(name)
	if name == "" || name == sub.Name {
		return sub, nil
	}

	sub.Name = name
	if err := s.db.SaveLocation(location); err != nil {
		return nil, fmt.Errorf("saving location: %w", err)
	}
	return sub, nil
}

// DeleteSublocation removes a sublocation unless items still reference it
func (s *Service) DeleteSublocation(locationID, subID string) error {
	location, err := s.db.GetLocation(locationID)
	if err != nil {
		return fmt.Errorf("getting location: %w", err)
	}
	sub := location.Sublocation(subID)
	if sub == nil {
		return validationErr("sublocation", "unknown sublocation")
	}

	count, err := s.countItems(func(item *Item) bool {
		return item.SublocationID == subID
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return &RestrictedDeletionError{Kind: "sublocation", Name: sub.Name, ItemCount: count}
	}

	kept := location.Sublocations[:0]
	for _, existing := range location.Sublocations {
		if existing.ID != subID {
			kept = append(kept, existing)
		}
	}
	location.Sublocations = kept
	if err := s.db.SaveLocation(location); err != nil {
		return fmt.Errorf("saving location: %w", err)
	}
	return nil
}

// ReorderSublocations assigns contiguous sort orders within a location.
// The ids must name every sublocation exactly once.
func (s *Service) ReorderSublocations(locationID string, ids []string) error {
	location, err := s.db.GetLocation(locationID)
	if err != nil {
		return fmt.Errorf("getting location: %w", err)
	}

	if len(ids) != len(location.Sublocations) {
		return validationErr("order", "must list every sublocation exactly once")
	}

	for i, id := range ids {
		sub := location.Sublocation(id)
		if sub == nil {
			return validationErr("order", "unknown sublocation")
		}
		sub.SortOrder = i
	}
	sortSublocations(location.Sublocations)

	if err := s.db.SaveLocation(location); err != nil {
		return fmt.Errorf("saving location: %w", err)
	}
	return nil
}

func (s *Service) countItems(match func(*Item) bool) (int, error) {
	items, err := s.db.ListItems()
	if err != nil {
		return 0, fmt.Errorf("listing items: %w", err)
	}
	count := 0
	for _, item := range items {
		if match(item) {
			count++
		}
	}
	return count, nil
}
