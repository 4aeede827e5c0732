package inventory

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Taxonomy", func() {
	var (
		db      *mockDB
		service *Service
	)

	BeforeEach(func() {
		db = newMockDB()
		service = NewServiceWithDeps(db, newMockScanner(), newMockStorage(),
			&mockIDGenerator{prefix: "id"},
			&mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
	})

	Describe("CreateCategory", func() {
		It("trims the name", func() {
			category, err := service.CreateCategory("  食物  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(category.Name).To(Equal("食物"))
		})

		It("rejects a name that is empty after trimming", func() {
			_, err := service.CreateCategory("   ")
			var invalid *ValidationError
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("appends after the current maximum sort order", func() {
			db.categories["a"] = &Category{ID: "a", Name: "食物", SortOrder: 0}
			db.categories["b"] = &Category{ID: "b", Name: "日用品", SortOrder: 4}

			category, err := service.CreateCategory("服饰")
			Expect(err).NotTo(HaveOccurred())
			Expect(category.SortOrder).To(Equal(5))
		})
	})

	Describe("RenameCategory", func() {
		BeforeEach(func() {
			db.categories["a"] = &Category{ID: "a", Name: "食物"}
		})

		It("applies a trimmed rename", func() {
			category, err := service.RenameCategory("a", " 食品 ")
			Expect(err).NotTo(HaveOccurred())
			Expect(category.Name).To(Equal("食品"))
		})

		It("leaves the name unchanged when the new one trims to empty", func() {
			category, err := service.RenameCategory("a", "   ")
			Expect(err).NotTo(HaveOccurred())
			Expect(category.Name).To(Equal("食物"))
		})
	})

	Describe("DeleteCategory", func() {
		BeforeEach(func() {
			db.categories["a"] = &Category{
				ID:   "a",
				Name: "食物",
				Subcategories: []Subcategory{
					{ID: "sub-1", Name: "乳制品"},
				},
			}
		})

		When("items still reference the category", func() {
			BeforeEach(func() {
				db.items["item-1"] = &Item{ID: "item-1", CategoryID: "a"}
			})

			It("refuses with a restricted deletion error", func() {
				err := service.DeleteCategory("a")
				var restricted *RestrictedDeletionError
				Expect(errors.As(err, &restricted)).To(BeTrue())
				Expect(restricted.Kind).To(Equal("category"))
				Expect(restricted.ItemCount).To(Equal(1))
				Expect(db.categories).To(HaveKey("a"))
			})
		})

		When("items reference the category only through a subcategory", func() {
			BeforeEach(func() {
				db.items["item-1"] = &Item{ID: "item-1", CategoryID: "a", SubcategoryID: "sub-1"}
			})

			It("still refuses", func() {
				err := service.DeleteCategory("a")
				var restricted *RestrictedDeletionError
				Expect(errors.As(err, &restricted)).To(BeTrue())
			})
		})

		When("the category is empty", func() {
			It("deletes it together with its subcategory records", func() {
				Expect(service.DeleteCategory("a")).To(Succeed())
				Expect(db.categories).NotTo(HaveKey("a"))
			})
		})
	})

	Describe("ReorderCategories", func() {
		BeforeEach(func() {
			db.categories["a"] = &Category{ID: "a", SortOrder: 0}
			db.categories["b"] = &Category{ID: "b", SortOrder: 1}
			db.categories["c"] = &Category{ID: "c", SortOrder: 2}
		})

		It("assigns contiguous orders following the given sequence", func() {
			Expect(service.ReorderCategories([]string{"c", "a", "b"})).To(Succeed())
			Expect(db.categories["c"].SortOrder).To(Equal(0))
			Expect(db.categories["a"].SortOrder).To(Equal(1))
			Expect(db.categories["b"].SortOrder).To(Equal(2))
		})

		It("rejects an incomplete sequence", func() {
			err := service.ReorderCategories([]string{"c", "a"})
			var invalid *ValidationError
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})
	})

	Describe("Subcategories", func() {
		BeforeEach(func() {
			db.categories["a"] = &Category{
				ID:   "a",
				Name: "食物",
				Subcategories: []Subcategory{
					{ID: "sub-1", Name: "乳制品", SortOrder: 0},
					{ID: "sub-2", Name: "零食", SortOrder: 3},
				},
			}
		})

		It("appends a new subcategory after the current maximum order", func() {
			sub, err := service.CreateSubcategory("a", "蔬菜")
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.SortOrder).To(Equal(4))
			Expect(db.categories["a"].Subcategories).To(HaveLen(3))
		})

		It("renames with trimming and keeps the old name on empty input", func() {
			sub, err := service.RenameSubcategory("a", "sub-1", "  奶制品 ")
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Name).To(Equal("奶制品"))

			sub, err = service.RenameSubcategory("a", "sub-1", " ")
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Name).To(Equal("奶制品"))
		})

		It("refuses to delete a subcategory that still has items", func() {
			db.items["item-1"] = &Item{ID: "item-1", CategoryID: "a", SubcategoryID: "sub-1"}
			err := service.DeleteSubcategory("a", "sub-1")
			var restricted *RestrictedDeletionError
			Expect(errors.As(err, &restricted)).To(BeTrue())
			Expect(restricted.Kind).To(Equal("subcategory"))
		})

		It("deletes an empty subcategory", func() {
			Expect(service.DeleteSubcategory("a", "sub-1")).To(Succeed())
			Expect(db.categories["a"].Subcategory("sub-1")).To(BeNil())
			Expect(db.categories["a"].Subcategories).To(HaveLen(1))
		})

		It("positions the uncategorized row during a reorder", func() {
			Expect(service.ReorderSubcategories("a", []string{"sub-2", UncategorizedKey, "sub-1"})).To(Succeed())
			Expect(db.categories["a"].Subcategory("sub-2").SortOrder).To(Equal(0))
			Expect(db.categories["a"].UncategorizedSortOrder).To(Equal(1))
			Expect(db.categories["a"].Subcategory("sub-1").SortOrder).To(Equal(2))
		})

		It("lists subcategories in their reordered sequence", func() {
			Expect(service.ReorderSubcategories("a", []string{"sub-2", "sub-1"})).To(Succeed())

			categories, err := service.ListCategories()
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(1))
			Expect(categories[0].Subcategories[0].ID).To(Equal("sub-2"))
			Expect(categories[0].Subcategories[1].ID).To(Equal("sub-1"))
		})

		It("rejects a reorder naming only some subcategories", func() {
			err := service.ReorderSubcategories("a", []string{"sub-2"})
			var invalid *ValidationError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(db.categories["a"].Subcategory("sub-2").SortOrder).To(Equal(3))
		})
	})

	Describe("Locations", func() {
		BeforeEach(func() {
			db.locations["loc-1"] = &Location{
				ID:   "loc-1",
				Name: "厨房",
				Sublocations: []Sublocation{
					{ID: "subloc-1", Name: "冰箱", SortOrder: 0},
				},
			}
		})

		It("creates, renames and reorders like categories", func() {
			location, err := service.CreateLocation("客厅")
			Expect(err).NotTo(HaveOccurred())
			Expect(location.SortOrder).To(Equal(1))

			renamed, err := service.RenameLocation(location.ID, " 大客厅 ")
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Name).To(Equal("大客厅"))
		})

		It("refuses to delete a location that still has items", func() {
			db.items["item-1"] = &Item{ID: "item-1", CategoryID: "x", LocationID: "loc-1"}
			err := service.DeleteLocation("loc-1")
			var restricted *RestrictedDeletionError
			Expect(errors.As(err, &restricted)).To(BeTrue())
			Expect(restricted.Kind).To(Equal("location"))
		})

		It("refuses to delete a sublocation that still has items", func() {
			db.items["item-1"] = &Item{ID: "item-1", CategoryID: "x", LocationID: "loc-1", SublocationID: "subloc-1"}
			err := service.DeleteSublocation("loc-1", "subloc-1")
			var restricted *RestrictedDeletionError
			Expect(errors.As(err, &restricted)).To(BeTrue())
			Expect(restricted.Kind).To(Equal("sublocation"))
		})

		It("deletes an empty sublocation", func() {
			Expect(service.DeleteSublocation("loc-1", "subloc-1")).To(Succeed())
			Expect(db.locations["loc-1"].Sublocations).To(BeEmpty())
		})

		It("lists sublocations in their reordered sequence", func() {
			_, err := service.CreateSublocation("loc-1", "冷冻层")
			Expect(err).NotTo(HaveOccurred())
			second := db.locations["loc-1"].Sublocations[1].ID

			Expect(service.ReorderSublocations("loc-1", []string{second, "subloc-1"})).To(Succeed())

			locations, err := service.ListLocations()
			Expect(err).NotTo(HaveOccurred())
			Expect(locations[0].Sublocations[0].ID).To(Equal(second))
			Expect(locations[0].Sublocations[1].ID).To(Equal("subloc-1"))
		})

		It("rejects a sublocation reorder naming only some sublocations", func() {
			_, err := service.CreateSublocation("loc-1", "冷冻层")
			Expect(err).NotTo(HaveOccurred())

			err = service.ReorderSublocations("loc-1", []string{"subloc-1"})
			var invalid *ValidationError
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})
	})
})
