package inventory

import "sort"

// UncategorizedKey is the synthetic bucket key used when a category's
// items carry no subcategory. It may appear in a subcategory reorder list
// to position that bucket among real subcategories.
const UncategorizedKey = "uncategorized"

// Subcategory is a second-level classification node. It exists only
// embedded in its parent Category record, so a parentless subcategory or
// a third taxonomy level cannot be represented.
type Subcategory struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Category is a first-level classification node. Deleting the record
// cascades away the embedded subcategories; item membership is recomputed
// from the item set rather than stored as an inverse collection.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	SortOrder int    `json:"sort_order"`
	// UncategorizedSortOrder positions the synthetic uncategorized bucket
	// among the subcategories for display.
	UncategorizedSortOrder int           `json:"uncategorized_sort_order"`
	Subcategories          []Subcategory `json:"subcategories"`
}

// Subcategory returns the embedded subcategory with the given ID, or nil.
func (c *Category) Subcategory(id string) *Subcategory {
	for i := range c.Subcategories {
		if c.Subcategories[i].ID == id {
			return &c.Subcategories[i]
		}
	}
	return nil
}

// SubcategoryByName returns the subcategory with the exact name, or nil.
func (c *Category) SubcategoryByName(name string) *Subcategory {
	for i := range c.Subcategories {
		if c.Subcategories[i].Name == name {
			return &c.Subcategories[i]
		}
	}
	return nil
}

// nextSubcategoryOrder returns max(sortOrder)+1 so insertion order stays
// deterministic even after deletions.
func (c *Category) nextSubcategoryOrder() int {
	next := 0
	for _, s := range c.Subcategories {
		if s.SortOrder >= next {
			next = s.SortOrder + 1
		}
	}
	return next
}

// Sublocation mirrors Subcategory for the physical-placement hierarchy.
type Sublocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Location mirrors Category for the physical-placement hierarchy. Items
// reference locations optionally.
type Location struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IsDefault    bool          `json:"is_default"`
	SortOrder    int           `json:"sort_order"`
	Sublocations []Sublocation `json:"sublocations"`
}

// Sublocation returns the embedded sublocation with the given ID, or nil.
func (l *Location) Sublocation(id string) *Sublocation {
	for i := range l.Sublocations {
		if l.Sublocations[i].ID == id {
			return &l.Sublocations[i]
		}
	}
	return nil
}

func (l *Location) nextSublocationOrder() int {
	next := 0
	for _, s := range l.Sublocations {
		if s.SortOrder >= next {
			next = s.SortOrder + 1
		}
	}
	return next
}

func sortCategories(cats []*Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].SortOrder < cats[j].SortOrder
	})
	for _, c := range cats {
		sortSubcategories(c.Subcategories)
	}
}

func sortSubcategories(subs []Subcategory) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SortOrder < subs[j].SortOrder
	})
}

func sortSublocations(subs []Sublocation) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].SortOrder < subs[j].SortOrder
	})
}

func sortLocations(locs []*Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].SortOrder < locs[j].SortOrder
	})
	for _, l := range locs {
		sortSublocations(l.Sublocations)
	}
}
