package inventory

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	itemBucketName     = "items"
	categoryBucketName = "categories"
	locationBucketName = "locations"
	tagBucketName      = "tags"
	settingsBucketName = "settings"

	settingsKey = "settings"
)

// DB defines the interface for database operations
type DB interface {
	// SaveItem saves an item to the database
	SaveItem(item *Item) error

	// GetItem retrieves an item by ID
	GetItem(id string) (*Item, error)

	// ListItems returns all items
	ListItems() ([]*Item, error)

	// DeleteItem removes an item from the database
	DeleteItem(id string) error

	// SaveCategory saves a category and its embedded subcategories
	SaveCategory(category *Category) error

	// GetCategory retrieves a category by ID
	GetCategory(id string) (*Category, error)

	// ListCategories returns all categories
	ListCategories() ([]*Category, error)

	// DeleteCategory removes a category record. The embedded
	// subcategories go with it; restriction checks happen above this
	// layer.
	DeleteCategory(id string) error

	// SaveLocation saves a location and its embedded sublocations
	SaveLocation(location *Location) error

	// GetLocation retrieves a location by ID
	GetLocation(id string) (*Location, error)

	// ListLocations returns all locations
	ListLocations() ([]*Location, error)

	// DeleteLocation removes a location record
	DeleteLocation(id string) error

	// SaveTag saves a tag to the database
	SaveTag(tag *Tag) error

	// ListTags returns all tags
	ListTags() ([]*Tag, error)

	// GetSettings retrieves the settings, falling back to defaults when
	// none were ever saved
	GetSettings() (*Settings, error)

	// SaveSettings persists the settings
	SaveSettings(settings *Settings) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{itemBucketName, categoryBucketName, locationBucketName, tagBucketName, settingsBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucket, key string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s record: %w", bucket, err)
		}
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (b *BoltDB) delete(bucket, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

// SaveItem saves an item to the database
func (b *BoltDB) SaveItem(item *Item) error {
	return b.put(itemBucketName, item.ID, item)
}

// GetItem retrieves an item by ID
func (b *BoltDB) GetItem(id string) (*Item, error) {
	var item *Item
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(itemBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("item not found: %s", id)
		}
		return json.Unmarshal(data, &item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items
func (b *BoltDB) ListItems() ([]*Item, error) {
	items := make([]*Item, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(itemBucketName)).ForEach(func(k, v []byte) error {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("unmarshaling item: %w", err)
			}
			items = append(items, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem removes an item from the database
func (b *BoltDB) DeleteItem(id string) error {
	return b.delete(itemBucketName, id)
}

// SaveCategory saves a category and its embedded subcategories
func (b *BoltDB) SaveCategory(category *Category) error {
	return b.put(categoryBucketName, category.ID, category)
}

// GetCategory retrieves a category by ID
func (b *BoltDB) GetCategory(id string) (*Category, error) {
	var category *Category
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(categoryBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("category not found: %s", id)
		}
		return json.Unmarshal(data, &category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories returns all categories
func (b *BoltDB) ListCategories() ([]*Category, error) {
	categories := make([]*Category, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(categoryBucketName)).ForEach(func(k, v []byte) error {
			var category Category
			if err := json.Unmarshal(v, &category); err != nil {
				return fmt.Errorf("unmarshaling category: %w", err)
			}
			categories = append(categories, &category)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteCategory removes a category record
func (b *BoltDB) DeleteCategory(id string) error {
	return b.delete(categoryBucketName, id)
}

// SaveLocation saves a location and its embedded sublocations
func (b *BoltDB) SaveLocation(location *Location) error {
	return b.put(locationBucketName, location.ID, location)
}

// GetLocation retrieves a location by ID
func (b *BoltDB) GetLocation(id string) (*Location, error) {
	var location *Location
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(locationBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("location not found: %s", id)
		}
		return json.Unmarshal(data, &location)
	})
	if err != nil {
		return nil, err
	}
	return location, nil
}

// ListLocations returns all locations
func (b *BoltDB) ListLocations() ([]*Location, error) {
	locations := make([]*Location, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(locationBucketName)).ForEach(func(k, v []byte) error {
			var location Location
			if err := json.Unmarshal(v, &location); err != nil {
				return fmt.Errorf("unmarshaling location: %w", err)
			}
			locations = append(locations, &location)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}

// DeleteLocation removes a location record
func (b *BoltDB) DeleteLocation(id string) error {
	return b.delete(locationBucketName, id)
}

// SaveTag saves a tag to the database
func (b *BoltDB) SaveTag(tag *Tag) error {
	return b.put(tagBucketName, tag.ID, tag)
}

// ListTags returns all tags
func (b *BoltDB) ListTags() ([]*Tag, error) {
	tags := make([]*Tag, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tagBucketName)).ForEach(func(k, v []byte) error {
			var tag Tag
			if err := json.Unmarshal(v, &tag); err != nil {
				return fmt.Errorf("unmarshaling tag: %w", err)
			}
			tags = append(tags, &tag)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// GetSettings retrieves the settings, falling back to defaults
func (b *BoltDB) GetSettings() (*Settings, error) {
	var settings *Settings
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(settingsBucketName)).Get([]byte(settingsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &settings)
	})
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if settings == nil {
		return DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings persists the settings
func (b *BoltDB) SaveSettings(settings *Settings) error {
	return b.put(settingsBucketName, settingsKey, settings)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
