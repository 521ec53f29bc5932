package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type errorResponse struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Unable to encode payload!", http.StatusUnprocessableEntity)
		logger.LogError("Unable to encode payload!", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, title string, detail string) {
	errorResponse := errorResponse{Title: title,
		Status: status,
		Detail: detail}
	writeJSONResponse(w, errorResponse.Status, errorResponse)
}

func decodeJSON(body io.ReadCloser, data interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(&data); err != nil {
		return errors.New("Request body includes malformed json")
	}

	v := validator.New()
	if err := v.Struct(data); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, e := range validationErrors {
				logger.Log.WithFields(logrus.Fields{"field": e.Namespace(), "tag": e.Tag()}).Debug("Request validation failed")
			}
		}
		return errors.New("Request body is missing required fields")
	} else if dec.More() {
		return errors.New("Request body must only contain one json object")
	}

	return nil
}

func getOffsetAndLimitFromQueryParams(req *http.Request) (offset int, limit int, err error) {
	offset, err = getIntQueryParam(req, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, errors.New("offset must be zero or greater")
	}

	limit, err = getIntQueryParam(req, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, errors.New("limit must be between 1 and " + strconv.Itoa(maxLimit))
	}

	return offset, limit, nil
}

func getIntQueryParam(req *http.Request, name string, defaultValue int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + " query parameter: " + raw)
	}

	return value, nil
}

func getBoolQueryParam(req *http.Request, name string) (*bool, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New("invalid " + name + " query parameter: " + raw)
	}

	return &value, nil
}
