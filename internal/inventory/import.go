package inventory

import (
	"strings"
	"time"

	"github.com/ychen/itemmaster/internal/scanning"
)

// acquiredDateLayout is the only date format accepted from scanned
// receipts.
const acquiredDateLayout = "2006-01-02"

// ItemDraft is a pre-filled item awaiting user confirmation after a
// receipt scan. It references taxonomy by ID like a saved item; empty
// IDs mean the scanner's suggestion matched nothing and the user has to
// pick.
type ItemDraft struct {
	Name          string     `json:"name"`
	UnitPrice     *float64   `json:"unit_price"`
	Quantity      float64    `json:"quantity"`
	Unit          string     `json:"unit"`
	CategoryID    string     `json:"category_id"`
	SubcategoryID string     `json:"subcategory_id"`
	TagNames      []string   `json:"tag_names"`
	Notes         string     `json:"notes"`
	AcquiredDate  *time.Time `json:"acquired_date"`
	Selected      bool       `json:"selected"`
}

// NewItemDraft maps one parsed receipt record onto a draft. Category and
// subcategory names resolve by exact match against the current taxonomy;
// suggestions that match nothing are dropped, never auto-created. A
// brand joins the tag list unless a case-insensitive duplicate is
// already there. Dates parse strictly as YYYY-MM-DD.
func NewItemDraft(record scanning.ParsedReceipt, categories []*Category) *ItemDraft {
	draft := &ItemDraft{
		Name:     record.Name,
		Quantity: 1,
		Unit:     "个",
		TagNames: record.TagNames,
		Notes:    record.Notes,
		Selected: true,
	}

	if record.Quantity != nil && *record.Quantity > 0 {
		draft.Quantity = *record.Quantity
	}
	draft.UnitPrice = ParseAmount(record.UnitPriceString)

	if brand := strings.TrimSpace(record.Brand); brand != "" {
		duplicate := false
		for _, name := range draft.TagNames {
			if strings.EqualFold(name, brand) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			draft.TagNames = append(draft.TagNames, brand)
		}
	}

	if record.AcquiredDateString != "" {
		if date, err := time.Parse(acquiredDateLayout, record.AcquiredDateString); err == nil {
			draft.AcquiredDate = &date
		}
	}

	if record.MatchedCategoryName != "" {
		for _, category := range categories {
			if category.Name != record.MatchedCategoryName {
				continue
			}
			draft.CategoryID = category.ID
			if record.MatchedSubcategoryName != "" {
				if sub := category.SubcategoryByName(record.MatchedSubcategoryName); sub != nil {
					draft.SubcategoryID = sub.ID
				}
			}
			break
		}
	}

	return draft
}

// ImportResult reports how a committed batch went.
type ImportResult struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// CommitDrafts saves the selected drafts as items priced in the given
// currency. Drafts without a category are skipped and counted, not
// saved and not rolled back against the rest of the batch. Tag names
// resolve to existing tags or create new ones.
func (s *Service) CommitDrafts(drafts []*ItemDraft, currency Currency) (*ImportResult, error) {
	if currency == "" {
		settings, err := s.db.GetSettings()
		if err != nil {
			return nil, err
		}
		currency = settings.DisplayCurrency
	}
	if !currency.Valid() {
		return nil, validationErr("currency", "must be USD or CNY")
	}

	result := &ImportResult{}
	for _, draft := range drafts {
		if !draft.Selected {
			continue
		}
		if draft.CategoryID == "" {
			result.Skipped++
			continue
		}

		tagIDs := make([]string, 0, len(draft.TagNames))
		for _, name := range draft.TagNames {
			if strings.TrimSpace(name) == "" {
				continue
			}
			tag, err := s.ResolveTag(name)
			if err != nil {
				return result, err
			}
			tagIDs = append(tagIDs, tag.ID)
		}

		_, err := s.CreateItem(ItemParams{
			Name:             draft.Name,
			CategoryID:       draft.CategoryID,
			SubcategoryID:    draft.SubcategoryID,
			Quantity:         draft.Quantity,
			Unit:             draft.Unit,
			UnitPrice:        draft.UnitPrice,
			OriginalCurrency: currency,
			Notes:            draft.Notes,
			AcquiredDate:     draft.AcquiredDate,
			SourceType:       SourceAI,
			TagIDs:           tagIDs,
		})
		if err != nil {
			return result, err
		}
		result.Saved++
	}
	return result, nil
}
