package inventory

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/ychen/itemmaster/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		scanner     *mockScanner
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		scanner = newMockScanner()
		service = NewServiceWithDeps(db, scanner, newMockStorage(),
			&mockIDGenerator{prefix: "id"},
			&mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())

		db.categories["cat-food"] = &Category{
			ID:   "cat-food",
			Name: "食物",
			Subcategories: []Subcategory{
				{ID: "sub-dairy", Name: "乳制品"},
			},
		}

		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("items", func() {
		It("creates an item from JSON", func() {
			body, _ := json.Marshal(map[string]any{
				"name":              "全脂鲜牛奶",
				"category_id":       "cat-food",
				"unit_price":        12.50,
				"original_currency": "CNY",
			})

			resp, err := http.Post(ghttpServer.URL()+"/api/items", "application/json", bytes.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var created itemView
			Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
			Expect(created.Quantity).To(Equal(1.0))
			Expect(created.NormalizedPrice).To(BeNumerically("~", 12.50/7.0, 1e-9))
		})

		It("rejects an item without a category as unprocessable", func() {
			body, _ := json.Marshal(map[string]any{"name": "孤儿物品"})

			resp, err := http.Post(ghttpServer.URL()+"/api/items", "application/json", bytes.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})

		It("serves an item with its derived flags", func() {
			expiry := time.Now().Add(48 * time.Hour)
			db.items["item-1"] = &Item{ID: "item-1", Name: "全脂鲜牛奶", CategoryID: "cat-food", ExpiryDate: &expiry}

			resp, err := http.Get(ghttpServer.URL() + "/api/items/item-1")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var view struct {
				IsExpiringSoon bool `json:"is_expiring_soon"`
				IsExpired      bool `json:"is_expired"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&view)).To(Succeed())
			Expect(view.IsExpiringSoon).To(BeTrue())
			Expect(view.IsExpired).To(BeFalse())
		})

		It("returns 404 for an unknown item", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/items/missing")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("category deletion", func() {
		It("maps a restricted deletion onto 409", func() {
			db.items["item-1"] = &Item{ID: "item-1", CategoryID: "cat-food"}

			req, _ := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/categories/cat-food", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))

			var payload map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
			Expect(payload["error"]).To(ContainSubstring("食物"))
		})

		It("deletes an empty category", func() {
			req, _ := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/categories/cat-food", nil)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.categories).NotTo(HaveKey("cat-food"))
		})
	})

	Describe("stats", func() {
		It("serves the category breakdown without empty categories", func() {
			db.items["item-1"] = &Item{ID: "item-1", CategoryID: "cat-food", Quantity: 3}
			db.categories["cat-idle"] = &Category{ID: "cat-idle", Name: "闲置", SortOrder: 1}

			resp, err := http.Get(ghttpServer.URL() + "/api/stats?metric=count")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var payload struct {
				Metric  string         `json:"metric"`
				Total   float64        `json:"total"`
				Buckets []CategoryStat `json:"buckets"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
			Expect(payload.Metric).To(Equal("count"))
			Expect(payload.Total).To(Equal(3.0))
			Expect(payload.Buckets).To(HaveLen(1))
			Expect(payload.Buckets[0].Percentage).To(Equal("100.0%"))
		})
	})

	Describe("settings", func() {
		It("rejects a non-positive exchange rate", func() {
			body, _ := json.Marshal(map[string]any{
				"display_currency": "USD",
				"usd_to_cny_rate":  -1,
			})

			req, _ := http.NewRequest(http.MethodPut, ghttpServer.URL()+"/api/settings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("scanning", func() {
		scanRequest := func() *http.Request {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", "receipt.png")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("fake image"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+"/api/scan", &buf)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())
			return req
		}

		It("returns drafts for a scanned receipt", func() {
			resp, err := http.DefaultClient.Do(scanRequest())
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var payload struct {
				Drafts []*ItemDraft `json:"drafts"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&payload)).To(Succeed())
			Expect(payload.Drafts).To(HaveLen(1))
			Expect(payload.Drafts[0].CategoryID).To(Equal("cat-food"))
		})

		It("maps an upstream failure onto 502", func() {
			scanner.scanErr = &scanning.APIError{StatusCode: 500, Body: "boom"}

			resp, err := http.DefaultClient.Do(scanRequest())
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("import", func() {
		It("saves selected drafts and reports skips", func() {
			body, _ := json.Marshal(map[string]any{
				"currency": "CNY",
				"drafts": []map[string]any{
					{"name": "milk", "category_id": "cat-food", "quantity": 1, "selected": true},
					{"name": "mystery", "quantity": 1, "selected": true},
				},
			})

			resp, err := http.Post(ghttpServer.URL()+"/api/import", "application/json", bytes.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var result ImportResult
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Saved).To(Equal(1))
			Expect(result.Skipped).To(Equal(1))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "secret"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/items")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts valid credentials", func() {
			req, _ := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/items", nil)
			credentials := base64.StdEncoding.EncodeToString([]byte("user:secret"))
			req.Header.Set("Authorization", "Basic "+credentials)

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(MatchJSON("[]"))
		})
	})
})
