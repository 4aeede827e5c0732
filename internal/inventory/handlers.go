package inventory

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ychen/itemmaster/internal/scanning"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeServiceError maps service errors onto HTTP statuses: restricted
// deletions and a scan already in flight conflict (409), validation
// failures are unprocessable (422), upstream scanner failures are a bad
// gateway (502), everything else is internal.
func writeServiceError(w http.ResponseWriter, err error) {
	setCORSHeaders(w)

	status := http.StatusInternalServerError
	var restricted *RestrictedDeletionError
	var invalid *ValidationError
	var apiErr *scanning.APIError
	switch {
	case errors.As(err, &restricted):
		status = http.StatusConflict
	case errors.As(err, &invalid):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ErrScanInProgress):
		status = http.StatusConflict
	case errors.As(err, &apiErr),
		errors.Is(err, scanning.ErrInvalidResponse),
		errors.Is(err, scanning.ErrImageProcessing):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// itemRequest is the JSON body for item create and update. Quantity is
// a pointer so an absent field defaults to 1 instead of 0.
type itemRequest struct {
	Name                string     `json:"name"`
	CategoryID          string     `json:"category_id"`
	SubcategoryID       string     `json:"subcategory_id"`
	LocationID          string     `json:"location_id"`
	SublocationID       string     `json:"sublocation_id"`
	Quantity            *float64   `json:"quantity"`
	Unit                string     `json:"unit"`
	MinQuantity         float64    `json:"min_quantity"`
	UnitPrice           *float64   `json:"unit_price"`
	OriginalCurrency    string     `json:"original_currency"`
	Brand               string     `json:"brand"`
	Barcode             string     `json:"barcode"`
	URL                 string     `json:"url"`
	Notes               string     `json:"notes"`
	AcquiredDate        *time.Time `json:"acquired_date"`
	ExpiryDate          *time.Time `json:"expiry_date"`
	WarrantyExpiryDate  *time.Time `json:"warranty_expiry_date"`
	ShelfLifeDays       *int       `json:"shelf_life_days"`
	RestockIntervalDays *int       `json:"restock_interval_days"`
	LastRestockedDate   *time.Time `json:"last_restocked_date"`
	IsRestockNotified   bool       `json:"is_restock_notified"`
	IsArchived          bool       `json:"is_archived"`
	IsFavorite          bool       `json:"is_favorite"`
	TagIDs              []string   `json:"tag_ids"`
}

func (r *itemRequest) params() ItemParams {
	quantity := 1.0
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	return ItemParams{
		Name:                r.Name,
		CategoryID:          r.CategoryID,
		SubcategoryID:       r.SubcategoryID,
		LocationID:          r.LocationID,
		SublocationID:       r.SublocationID,
		Quantity:            quantity,
		Unit:                r.Unit,
		MinQuantity:         r.MinQuantity,
		UnitPrice:           r.UnitPrice,
		OriginalCurrency:    Currency(r.OriginalCurrency),
		Brand:               r.Brand,
		Barcode:             r.Barcode,
		URL:                 r.URL,
		Notes:               r.Notes,
		AcquiredDate:        r.AcquiredDate,
		ExpiryDate:          r.ExpiryDate,
		WarrantyExpiryDate:  r.WarrantyExpiryDate,
		ShelfLifeDays:       r.ShelfLifeDays,
		RestockIntervalDays: r.RestockIntervalDays,
		LastRestockedDate:   r.LastRestockedDate,
		IsRestockNotified:   r.IsRestockNotified,
		IsArchived:          r.IsArchived,
		IsFavorite:          r.IsFavorite,
		TagIDs:              r.TagIDs,
	}
}

// itemView wraps an item with its derived flags for list and detail
// responses. The flags are recomputed on every read, never stored.
type itemView struct {
	*Item
	IsExpiringSoon bool `json:"is_expiring_soon"`
	IsExpired      bool `json:"is_expired"`
	NeedsRestock   bool `json:"needs_restock"`
}

func newItemView(item *Item, now time.Time) itemView {
	return itemView{
		Item:           item,
		IsExpiringSoon: item.IsExpiringSoon(now),
		IsExpired:      item.IsExpired(now),
		NeedsRestock:   item.NeedsRestock(now),
	}
}

// handleListItems returns items scoped by the query parameters
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := ListOptions{
		CategoryID:        q.Get("category"),
		SubcategoryID:     q.Get("subcategory"),
		UncategorizedOnly: q.Get("uncategorized") == "true",
		Query:             q.Get("q"),
		SortKey:           ParseSortKey(q.Get("sort")),
		Ascending:         q.Get("order") == "asc",
	}

	items, err := s.service.ListItems(opts)
	if err != nil {
		slog.Error("Error listing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item, now))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleCreateItem creates a new item
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.service.CreateItem(req.params())
	if err != nil {
		slog.Error("Error creating item", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newItemView(item, time.Now()))
}

// handleGetItem returns a single item
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.PathValue("id"))
	if err != nil {
		corsError(w, "Item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item, time.Now()))
}

// handleUpdateItem applies edits to an item
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.service.UpdateItem(r.PathValue("id"), req.params())
	if err != nil {
		slog.Error("Error updating item", "id", r.PathValue("id"), "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item, time.Now()))
}

// handleDeleteItem deletes an item and its stored image
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetItemImage returns the stored image for an item
func (s *Server) handleGetItemImage(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.service.ItemImage(r.PathValue("id"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleUploadItemImage stores a new image for an item
func (s *Server) handleUploadItemImage(w http.ResponseWriter, r *http.Request) {
	data, filename, _, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	item, err := s.service.AttachImage(r.PathValue("id"), data, strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		slog.Error("Error attaching image", "id", r.PathValue("id"), "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(item, time.Now()))
}

// handleListCategories returns all categories in display order
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.ListCategories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type nameRequest struct {
	Name string `json:"name"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

// handleCreateCategory creates a new category
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := s.service.CreateCategory(req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// handleRenameCategory renames a category
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := s.service.RenameCategory(r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// handleDeleteCategory deletes a category when no items reference it
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCategory(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderCategories applies a new category display order
func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.ReorderCategories(req.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateSubcategory adds a subcategory to a category
func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.service.CreateSubcategory(r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handleRenameSubcategory renames a subcategory
func (s *Server) handleRenameSubcategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.service.RenameSubcategory(r.PathValue("id"), r.PathValue("subID"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleDeleteSubcategory deletes a subcategory when no items reference it
func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSubcategory(r.PathValue("id"), r.PathValue("subID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderSubcategories applies a new subcategory display order
func (s *Server) handleReorderSubcategories(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.ReorderSubcategories(r.PathValue("id"), req.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListLocations returns all locations in display order
func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.service.ListLocations()
	if err != nil {
		slog.Error("Error listing locations", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

// handleCreateLocation creates a new location
func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	location, err := s.service.CreateLocation(req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

// handleRenameLocation renames a location
func (s *Server) handleRenameLocation(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	location, err := s.service.RenameLocation(r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

// handleDeleteLocation deletes a location when no items reference it
func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLocation(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderLocations applies a new location display order
func (s *Server) handleReorderLocations(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.ReorderLocations(req.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateSublocation adds a sublocation to a location
func (s *Server) handleCreateSublocation(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.service.CreateSublocation(r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handleRenameSublocation renames a sublocation
func (s *Server) handleRenameSublocation(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.service.RenameSublocation(r.PathValue("id"), r.PathValue("subID"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleDeleteSublocation deletes a sublocation when no items reference it
func (s *Server) handleDeleteSublocation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSublocation(r.PathValue("id"), r.PathValue("subID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderSublocations applies a new sublocation display order
func (s *Server) handleReorderSublocations(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.ReorderSublocations(r.PathValue("id"), req.IDs); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTags returns all tags
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.ListTags()
	if err != nil {
		slog.Error("Error listing tags", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if tags == nil {
		tags = []*Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// handleResolveTag returns the tag with the given name, creating it if
// needed
func (s *Server) handleResolveTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tag, err := s.service.ResolveTag(req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// handleCategoryStats returns the per-category dashboard breakdown
func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	metric := ParseMetric(r.URL.Query().Get("metric"))
	stats, total, err := s.service.CategoryStats(metric)
	if err != nil {
		slog.Error("Error computing stats", "metric", metric, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"total":   total,
		"buckets": stats,
	})
}

// handleSubcategoryStats returns the drill-down breakdown for one category
func (s *Server) handleSubcategoryStats(w http.ResponseWriter, r *http.Request) {
	metric := ParseMetric(r.URL.Query().Get("metric"))
	stats, total, err := s.service.SubcategoryStats(r.PathValue("id"), metric)
	if err != nil {
		corsError(w, "Category not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"total":   total,
		"buckets": stats,
	})
}

// handleGetSettings returns the display settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.Settings()
	if err != nil {
		slog.Error("Error loading settings", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings validates and stores the display settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.UpdateSettings(&settings); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// maxUploadSize bounds receipt and item photos (high-resolution phone
// photos can run large).
const maxUploadSize = int64(50 << 20) // 50MB

// readUpload pulls the uploaded file out of a multipart form
func readUpload(r *http.Request) (data []byte, filename, contentType string, err error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		if err.Error() == "http: request body too large" {
			return nil, "", "", errors.New("file is too large, maximum size is 50MB")
		}
		return nil, "", "", errors.New("error parsing form")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		return nil, "", "", errors.New("no file provided")
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		return nil, "", "", errors.New("file is too large, maximum size is 50MB")
	}

	data, err = io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		return nil, "", "", errors.New("error reading file")
	}

	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	return data, header.Filename, contentType, nil
}

// handleScanReceipt sends an uploaded receipt image to the vision
// scanner and returns the pre-filled drafts
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	data, filename, contentType, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	drafts, err := s.service.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", filename, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

// handleImportDrafts saves a batch of confirmed drafts as items
func (s *Server) handleImportDrafts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Drafts   []*ItemDraft `json:"drafts"`
		Currency string       `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.CommitDrafts(req.Drafts, Currency(req.Currency))
	if err != nil {
		slog.Error("Error importing drafts", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
