package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RedHatInsights/sync-connector/internal/controller"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"

	"github.com/gorilla/mux"
)

const (
	WEBHOOK_ENDPOINT = URL_BASE_PATH + "/webhooks/" + MOCK_PROVIDER_NAME
	EVENTS_ENDPOINT  = URL_BASE_PATH + "/webhooks/events"
)

var _ = Describe("WebhookReceiver", func() {

	var (
		router    *mux.Router
		mockProv  *MockProvider
		processor *MockWebhookProcessor
		events    *MockEventStore
		event     *domain.WebhookEvent
	)

	BeforeEach(func() {
		event = &domain.WebhookEvent{
			ID:         "evt_1",
			Provider:   MOCK_PROVIDER_NAME,
			Type:       "customer.updated",
			ObjectType: "customers",
			ObjectID:   "cus_1",
			ReceivedAt: time.Now().UTC(),
		}

		mockProv = &MockProvider{event: event}
		processor = &MockWebhookProcessor{replayed: map[string]*domain.WebhookEvent{}}
		events = &MockEventStore{}

		router = mux.NewRouter()
		apiRouter := router.PathPrefix(URL_BASE_PATH).Subrouter()
		NewWebhookReceiver(mockProv, processor, events, apiRouter, testConfig()).Routes()
	})

	postWebhook := func(url string, body string) *httptest.ResponseRecorder {
		req, err := http.NewRequest("POST", url, strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	Describe("Receiving a webhook", func() {

		It("Should reconcile a verified event without PSK credentials", func() {
			rr := postWebhook(WEBHOOK_ENDPOINT, `{"id": "evt_1"}`)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(processor.reconciled).To(HaveLen(1))
			Expect(processor.reconciled[0].ID).To(Equal("evt_1"))

			var resp webhookResponse
			Expect(json.NewDecoder(rr.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Received).To(BeTrue())
		})

		It("Should return a 401 when the signature does not verify", func() {
			mockProv.verifyErr = provider.ErrInvalidSignature

			rr := postWebhook(WEBHOOK_ENDPOINT, `{"id": "evt_1"}`)

			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
			Expect(processor.reconciled).To(BeEmpty())
		})

		It("Should return a 400 for a malformed event", func() {
			mockProv.parseErr = fmt.Errorf("%w: missing id", provider.ErrMalformedEvent)

			rr := postWebhook(WEBHOOK_ENDPOINT, `{}`)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			Expect(processor.reconciled).To(BeEmpty())
		})

		It("Should return a 500 when the handler fails so the provider redelivers", func() {
			processor.reconcileErr = controller.HandlerError{EventID: "evt_1", Err: errors.New("provider unavailable")}

			rr := postWebhook(WEBHOOK_ENDPOINT, `{"id": "evt_1"}`)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))

			var errResp errorResponse
			Expect(json.NewDecoder(rr.Body).Decode(&errResp)).To(Succeed())
			Expect(errResp.Title).To(Equal("Webhook handler failed"))
		})

		It("Should return a 500 when the event cannot be recorded", func() {
			processor.reconcileErr = errors.New("database unavailable")

			rr := postWebhook(WEBHOOK_ENDPOINT, `{"id": "evt_1"}`)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		})

		It("Should return a 404 for a provider that is not configured", func() {
			rr := postWebhook(URL_BASE_PATH+"/webhooks/shopify", `{"id": "evt_1"}`)

			Expect(rr.Code).To(Equal(http.StatusNotFound))
			Expect(processor.reconciled).To(BeEmpty())
		})

		It("Should return a 413 when the body is over the limit", func() {
			rr := postWebhook(WEBHOOK_ENDPOINT, strings.Repeat("x", 1048577))

			Expect(rr.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(processor.reconciled).To(BeEmpty())
		})

		It("Should only accept POST", func() {
			req, err := http.NewRequest("GET", WEBHOOK_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Describe("Listing webhook events", func() {

		BeforeEach(func() {
			for i := 0; i < 11; i++ {
				events.events = append(events.events, domain.WebhookEvent{
					ID:       fmt.Sprintf("evt_%d", i),
					Provider: MOCK_PROVIDER_NAME,
					Type:     "customer.updated",
				})
			}
		})

		It("Should require credentials", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("Meta count should be 11, links should be populated", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT+"?offset=0&limit=5", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))

			var resp struct {
				Meta  meta                  `json:"meta"`
				Links navigationLinks       `json:"links"`
				Data  []domain.WebhookEvent `json:"data"`
			}
			Expect(json.NewDecoder(rr.Body).Decode(&resp)).To(Succeed())

			Expect(resp.Meta.Count).To(Equal(int64(11)))
			Expect(resp.Data).To(HaveLen(5))
			Expect(resp.Links.First).To(ContainSubstring("offset=0"))
			Expect(resp.Links.Next).To(ContainSubstring("offset=5"))
			Expect(resp.Links.Last).To(ContainSubstring("offset=10"))
			Expect(resp.Links.Prev).To(BeEmpty())
		})

		It("Should translate the query parameters into a filter", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT+"?processed=true&failed=true&type=customer.deleted", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(events.lastFilter.Provider).To(Equal(domain.ProviderName(MOCK_PROVIDER_NAME)))
			Expect(events.lastFilter.Processed).NotTo(BeNil())
			Expect(*events.lastFilter.Processed).To(BeTrue())
			Expect(events.lastFilter.Failed).To(BeTrue())
			Expect(events.lastFilter.Type).To(Equal("customer.deleted"))
		})

		It("Should leave the processed filter open when it is not given", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(events.lastFilter.Processed).To(BeNil())
			Expect(events.lastFilter.Failed).To(BeFalse())
		})

		It("Should return a 400 for invalid pagination", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT+"?limit=0", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return a 400 for an invalid boolean", func() {
			req, err := http.NewRequest("GET", EVENTS_ENDPOINT+"?processed=maybe", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return a 500 when the store fails", func() {
			events.listErr = errors.New("database unavailable")

			req, err := http.NewRequest("GET", EVENTS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Replaying a webhook event", func() {

		It("Should return the refreshed event", func() {
			processed := *event
			processed.Processed = true
			processor.replayed["evt_1"] = &processed

			req, err := http.NewRequest("POST", EVENTS_ENDPOINT+"/evt_1/replay", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))

			var replayed domain.WebhookEvent
			Expect(json.NewDecoder(rr.Body).Decode(&replayed)).To(Succeed())
			Expect(replayed.ID).To(Equal("evt_1"))
			Expect(replayed.Processed).To(BeTrue())
		})

		It("Should return a 404 for an unknown event", func() {
			req, err := http.NewRequest("POST", EVENTS_ENDPOINT+"/evt_missing/replay", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusNotFound))
		})

		It("Should return a 500 when the handler fails again", func() {
			processor.replayErr = controller.HandlerError{EventID: "evt_1", Err: errors.New("provider unavailable")}

			req, err := http.NewRequest("POST", EVENTS_ENDPOINT+"/evt_1/replay", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		})

		It("Should require credentials", func() {
			req, err := http.NewRequest("POST", EVENTS_ENDPOINT+"/evt_1/replay", nil)
			Expect(err).NotTo(HaveOccurred())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})

var _ = Describe("OpenAPI", func() {

	It("Should return a 404 when the openapi file is missing", func() {
		req, err := http.NewRequest("GET", "/openapi.json", nil)
		Expect(err).NotTo(HaveOccurred())

		rr := httptest.NewRecorder()

		apiMux := mux.NewRouter()
		apiSpecServer := NewApiSpecServer(apiMux, "invalid-file-name")
		apiSpecServer.Routes()

		apiSpecServer.router.ServeHTTP(rr, req)

		Expect(rr.Code).To(Equal(http.StatusNotFound))
	})
})
