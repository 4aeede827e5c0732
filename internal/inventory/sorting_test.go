package inventory

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SortItems", func() {
	day := func(d int) time.Time {
		return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
	}

	ids := func(items []*Item) []string {
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = item.ID
		}
		return out
	}

	Describe("by expiry date", func() {
		var items []*Item

		BeforeEach(func() {
			items = []*Item{
				{ID: "undated-old", CreatedAt: day(1)},
				{ID: "late", ExpiryDate: timePtr(day(20)), CreatedAt: day(2)},
				{ID: "undated-new", CreatedAt: day(5)},
				{ID: "early", ExpiryDate: timePtr(day(10)), CreatedAt: day(3)},
			}
		})

		It("keeps dated items ahead of undated ones ascending", func() {
			SortItems(items, SortByExpiryDate, true)
			Expect(ids(items)).To(Equal([]string{"early", "late", "undated-new", "undated-old"}))
		})

		It("keeps dated items ahead of undated ones descending too", func() {
			SortItems(items, SortByExpiryDate, false)
			Expect(ids(items)).To(Equal([]string{"late", "early", "undated-new", "undated-old"}))
		})

		It("orders undated items newest-created first regardless of direction", func() {
			SortItems(items, SortByExpiryDate, true)
			ascTail := ids(items)[2:]
			SortItems(items, SortByExpiryDate, false)
			descTail := ids(items)[2:]
			Expect(ascTail).To(Equal(descTail))
		})
	})

	Describe("by unit price", func() {
		It("treats a missing price as zero", func() {
			items := []*Item{
				{ID: "pricey", UnitPrice: floatPtr(9.99)},
				{ID: "unpriced"},
				{ID: "cheap", UnitPrice: floatPtr(0.5)},
			}
			SortItems(items, SortByUnitPrice, true)
			Expect(ids(items)).To(Equal([]string{"unpriced", "cheap", "pricey"}))
		})
	})

	Describe("by acquired date", func() {
		It("sinks undated items to the oldest end", func() {
			items := []*Item{
				{ID: "recent", AcquiredDate: timePtr(day(9))},
				{ID: "unknown"},
				{ID: "old", AcquiredDate: timePtr(day(2))},
			}
			SortItems(items, SortByAcquiredDate, true)
			Expect(ids(items)).To(Equal([]string{"unknown", "old", "recent"}))

			SortItems(items, SortByAcquiredDate, false)
			Expect(ids(items)).To(Equal([]string{"recent", "old", "unknown"}))
		})
	})

	Describe("by quantity", func() {
		It("compares numerically", func() {
			items := []*Item{
				{ID: "few", Quantity: 2},
				{ID: "many", Quantity: 12},
				{ID: "one", Quantity: 1},
			}
			SortItems(items, SortByQuantity, false)
			Expect(ids(items)).To(Equal([]string{"many", "few", "one"}))
		})
	})

	It("keeps equal items in their incoming order", func() {
		items := []*Item{
			{ID: "a", Quantity: 3},
			{ID: "b", Quantity: 3},
			{ID: "c", Quantity: 3},
		}
		SortItems(items, SortByQuantity, true)
		Expect(ids(items)).To(Equal([]string{"a", "b", "c"}))
	})
})

var _ = Describe("MatchesQuery", func() {
	var (
		names *NameLookup
		item  *Item
	)

	BeforeEach(func() {
		names = &NameLookup{
			Categories:    map[string]string{"cat-food": "食物"},
			Subcategories: map[string]string{"sub-dairy": "乳制品"},
			Tags:          map[string]string{"tag-1": "eBay"},
		}
		item = &Item{
			Name:          "全脂鲜牛奶",
			CategoryID:    "cat-food",
			SubcategoryID: "sub-dairy",
			TagIDs:        []string{"tag-1"},
		}
	})

	It("matches a substring of the item name", func() {
		Expect(MatchesQuery(item, "牛奶", names)).To(BeTrue())
	})

	It("matches tag names case-insensitively", func() {
		Expect(MatchesQuery(item, "ebay", names)).To(BeTrue())
	})

	It("matches the category name", func() {
		Expect(MatchesQuery(item, "食物", names)).To(BeTrue())
	})

	It("matches the subcategory name", func() {
		Expect(MatchesQuery(item, "乳制品", names)).To(BeTrue())
	})

	It("is an OR across fields, so one hit is enough", func() {
		item.Name = "something else"
		Expect(MatchesQuery(item, "EBAY", names)).To(BeTrue())
	})

	It("rejects an item with no matching field", func() {
		Expect(MatchesQuery(item, "洗衣液", names)).To(BeFalse())
	})

	It("matches everything on a blank query", func() {
		Expect(MatchesQuery(item, "  ", names)).To(BeTrue())
	})
})
