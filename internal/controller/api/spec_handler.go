package api

import (
	"net/http"
	"os"

	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type ApiSpecServer struct {
	router       *mux.Router
	specFileName string
}

func NewApiSpecServer(r *mux.Router, f string) *ApiSpecServer {
	return &ApiSpecServer{
		router:       r,
		specFileName: f,
	}
}

func (s *ApiSpecServer) Routes() {
	s.router.HandleFunc("/openapi.json", s.handleApiSpec()).Methods(http.MethodGet)
}

func (s *ApiSpecServer) handleApiSpec() http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {
		file, err := os.ReadFile(s.specFileName)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err, "spec_file": s.specFileName}).Error("Unable to read API spec file")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(file)
	}
}
