package middlewares_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/RedHatInsights/sync-connector/internal/middlewares"
)

var _ = Describe("Metrics", func() {
	It("Should pass the handler's status code through", func() {
		mmw := &middlewares.MetricsMiddleware{Route: "test"}
		handler := mmw.RecordHTTPMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))

		req, err := http.NewRequest("POST", "/sync", nil)
		Expect(err).NotTo(HaveOccurred())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		Expect(rr.Code).To(Equal(http.StatusConflict))
	})
})
