package inventory

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("items", func() {
		var item *Item

		BeforeEach(func() {
			expiry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			item = &Item{
				ID:               "item-1",
				Name:             "全脂鲜牛奶",
				CategoryID:       "cat-1",
				Quantity:         2,
				Unit:             "瓶",
				UnitPrice:        floatPtr(12.50),
				OriginalCurrency: CNY,
				NormalizedPrice:  12.50 / 7.0,
				ExpiryDate:       &expiry,
				TagIDs:           []string{"tag-1"},
				CreatedAt:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				UpdatedAt:        time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			}
		})

		It("round-trips an item with optional fields intact", func() {
			Expect(db.SaveItem(item)).To(Succeed())

			loaded, err := db.GetItem("item-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Name).To(Equal("全脂鲜牛奶"))
			Expect(loaded.UnitPrice).To(HaveValue(Equal(12.5)))
			Expect(loaded.ExpiryDate).NotTo(BeNil())
			Expect(loaded.ExpiryDate.Equal(*item.ExpiryDate)).To(BeTrue())
			Expect(loaded.TagIDs).To(Equal([]string{"tag-1"}))
		})

		It("returns an error for an unknown item", func() {
			_, err := db.GetItem("missing")
			Expect(err).To(MatchError(ContainSubstring("not found")))
		})

		It("lists all saved items", func() {
			Expect(db.SaveItem(item)).To(Succeed())
			second := *item
			second.ID = "item-2"
			Expect(db.SaveItem(&second)).To(Succeed())

			items, err := db.ListItems()
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		It("deletes an item", func() {
			Expect(db.SaveItem(item)).To(Succeed())
			Expect(db.DeleteItem("item-1")).To(Succeed())

			_, err := db.GetItem("item-1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("categories", func() {
		It("persists embedded subcategories with the record", func() {
			category := &Category{
				ID:   "cat-1",
				Name: "食物",
				Subcategories: []Subcategory{
					{ID: "sub-1", Name: "乳制品", SortOrder: 0},
					{ID: "sub-2", Name: "零食", SortOrder: 1},
				},
			}
			Expect(db.SaveCategory(category)).To(Succeed())

			loaded, err := db.GetCategory("cat-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Subcategories).To(HaveLen(2))
			Expect(loaded.Subcategory("sub-2").Name).To(Equal("零食"))
		})

		It("removes the subcategories when the category record goes", func() {
			category := &Category{
				ID:            "cat-1",
				Name:          "食物",
				Subcategories: []Subcategory{{ID: "sub-1", Name: "乳制品"}},
			}
			Expect(db.SaveCategory(category)).To(Succeed())
			Expect(db.DeleteCategory("cat-1")).To(Succeed())

			_, err := db.GetCategory("cat-1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("locations", func() {
		It("round-trips a location with sublocations", func() {
			location := &Location{
				ID:           "loc-1",
				Name:         "厨房",
				Sublocations: []Sublocation{{ID: "subloc-1", Name: "冰箱"}},
			}
			Expect(db.SaveLocation(location)).To(Succeed())

			loaded, err := db.GetLocation("loc-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Sublocation("subloc-1").Name).To(Equal("冰箱"))
		})
	})

	Describe("tags", func() {
		It("lists saved tags", func() {
			Expect(db.SaveTag(&Tag{ID: "tag-1", Name: "光明"})).To(Succeed())
			Expect(db.SaveTag(&Tag{ID: "tag-2", Name: "乳制品"})).To(Succeed())

			tags, err := db.ListTags()
			Expect(err).NotTo(HaveOccurred())
			Expect(tags).To(HaveLen(2))
		})
	})

	Describe("settings", func() {
		It("falls back to defaults when nothing was saved", func() {
			settings, err := db.GetSettings()
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.DisplayCurrency).To(Equal(USD))
			Expect(settings.USDToCNYRate).To(Equal(DefaultUSDToCNYRate))
		})

		It("round-trips saved settings", func() {
			Expect(db.SaveSettings(&Settings{DisplayCurrency: CNY, USDToCNYRate: 7.3})).To(Succeed())

			settings, err := db.GetSettings()
			Expect(err).NotTo(HaveOccurred())
			Expect(settings.DisplayCurrency).To(Equal(CNY))
			Expect(settings.USDToCNYRate).To(Equal(7.3))
		})
	})
})
