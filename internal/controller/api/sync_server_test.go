package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RedHatInsights/sync-connector/internal/controller"
	"github.com/RedHatInsights/sync-connector/internal/domain"

	"github.com/gorilla/mux"
)

const (
	SYNC_ENDPOINT   = URL_BASE_PATH + "/sync"
	STATUS_ENDPOINT = URL_BASE_PATH + "/status"
)

var _ = Describe("SyncServer", func() {

	var (
		router    *mux.Router
		syncer    *MockSyncManager
		records   *MockRecordStore
		runs      *MockSyncRunStore
		syncRoute = SYNC_ENDPOINT
	)

	BeforeEach(func() {
		syncer = &MockSyncManager{}
		records = &MockRecordStore{counts: map[domain.ResourceType]int64{"customers": 4}}
		runs = &MockSyncRunStore{}

		router = mux.NewRouter()
		apiRouter := router.PathPrefix(URL_BASE_PATH).Subrouter()
		NewSyncServer(&MockProvider{}, syncer, records, runs, apiRouter, testConfig()).Routes()
	})

	Describe("Triggering a sync", func() {

		It("Should reject a request without credentials", func() {
			req, err := http.NewRequest("POST", syncRoute, strings.NewReader(`{}`))
			Expect(err).NotTo(HaveOccurred())

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("Should run the default plan when no body is sent", func() {
			req, err := http.NewRequest("POST", syncRoute, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(syncer.requested).To(BeEmpty())

			var run domain.SyncRun
			Expect(json.NewDecoder(rr.Body).Decode(&run)).To(Succeed())
			Expect(run.Success).To(BeTrue())
			Expect(run.Stats).To(HaveKeyWithValue(domain.ResourceType("customers"), 3))
		})

		It("Should pass the requested resource types through", func() {
			req, err := http.NewRequest("POST", syncRoute, strings.NewReader(`{"resources": ["customers", "payment_methods"]}`))
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(syncer.requested).To(Equal([]domain.ResourceType{"customers", "payment_methods"}))
		})

		It("Should return a 400 for an unknown resource type", func() {
			req, err := http.NewRequest("POST", syncRoute, strings.NewReader(`{"resources": ["widgets"]}`))
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))

			var errResp errorResponse
			Expect(json.NewDecoder(rr.Body).Decode(&errResp)).To(Succeed())
			Expect(errResp.Detail).To(ContainSubstring("widgets"))
		})

		It("Should keep running when the caller disconnects", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, "POST", syncRoute, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			syncer.onSync = cancel

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(req.Context().Err()).To(MatchError(context.Canceled))
			Expect(syncer.syncCtxErr).NotTo(HaveOccurred())
			Expect(rr.Code).To(Equal(http.StatusOK))
		})

		It("Should return a 400 for malformed json", func() {
			req, err := http.NewRequest("POST", syncRoute, strings.NewReader(`{"resources": [`))
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return a 409 while a sync is running", func() {
			syncer.syncErr = controller.AlreadySyncingError{Provider: MOCK_PROVIDER_NAME}

			req, err := http.NewRequest("POST", syncRoute, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusConflict))
		})

		It("Should return a 500 for any other failure", func() {
			syncer.syncErr = errors.New("boom")

			req, err := http.NewRequest("POST", syncRoute, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Syncing a single resource", func() {

		It("Should report a found object", func() {
			syncer.singleFound = true

			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/customers/cus_1", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(syncer.singleRef).To(Equal(domain.ObjectRef{Type: "customers", ID: "cus_1"}))

			var resp syncResourceResponse
			Expect(json.NewDecoder(rr.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Found).To(BeTrue())
		})

		It("Should report a vanished object", func() {
			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/customers/cus_gone", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(ContainSubstring(`"found":false`))
		})

		It("Should pass the parent through for dependent types", func() {
			syncer.singleFound = true

			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/payment_methods/pm_1?parent=cus_1", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(syncer.singleRef).To(Equal(domain.ObjectRef{Type: "payment_methods", ID: "pm_1", ParentID: "cus_1"}))
		})

		It("Should require the parent for dependent types", func() {
			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/payment_methods/pm_1", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return a 400 for an unknown resource type", func() {
			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/widgets/w_1", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("Should return a 502 when the provider call fails", func() {
			syncer.singleErr = errors.New("provider unavailable")

			req, err := http.NewRequest("POST", SYNC_ENDPOINT+"/customers/cus_1", nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("Reading the status", func() {

		It("Should return counts and no last run before the first sync", func() {
			req, err := http.NewRequest("GET", STATUS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))

			var status statusResponse
			Expect(json.NewDecoder(rr.Body).Decode(&status)).To(Succeed())
			Expect(status.Provider).To(Equal(domain.ProviderName(MOCK_PROVIDER_NAME)))
			Expect(status.Counts).To(HaveKeyWithValue(domain.ResourceType("customers"), int64(4)))
			Expect(status.Syncing).To(BeFalse())
			Expect(status.LastRun).To(BeNil())
		})

		It("Should include the latest run and the syncing flag", func() {
			syncer.syncing = true
			runs.latest = &domain.SyncRun{Provider: MOCK_PROVIDER_NAME, Success: true, Errors: []string{}}

			req, err := http.NewRequest("GET", STATUS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusOK))

			var status statusResponse
			Expect(json.NewDecoder(rr.Body).Decode(&status)).To(Succeed())
			Expect(status.Syncing).To(BeTrue())
			Expect(status.LastRun).NotTo(BeNil())
			Expect(status.LastRun.Success).To(BeTrue())
		})

		It("Should return a 500 when the counts cannot be read", func() {
			records.err = errors.New("database unavailable")

			req, err := http.NewRequest("GET", STATUS_ENDPOINT, nil)
			Expect(err).NotTo(HaveOccurred())
			addPSKHeaders(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			Expect(rr.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
