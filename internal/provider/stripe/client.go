package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/ratelimit"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize      = 100
	maxRateLimitRetries  = 3
	defaultRetryAfter    = time.Second
	maxErrorMessageBytes = 4096
)

type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

func NewClient(baseURL string, apiKey string, httpClient *http.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		pageSize:   defaultPageSize,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

type listResponse struct {
	Data    []json.RawMessage `json:"data"`
	HasMore bool              `json:"has_more"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) ListPages(ctx context.Context, resourceType domain.ResourceType, parentID string, page provider.PageFunc) error {
	spec, ok := resources[resourceType]
	if !ok {
		return provider.UnknownResourceTypeError{ResourceType: resourceType}
	}

	path := spec.listPath
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	for k, v := range spec.listQuery {
		query.Set(k, v)
	}

	if def, _ := Graph.Definition(resourceType); def.IsDependent() {
		if parentID == "" {
			return fmt.Errorf("listing %s requires a parent id", resourceType)
		}
		if spec.parentQueryParam != "" {
			query.Set(spec.parentQueryParam, parentID)
		} else {
			path = fmt.Sprintf(spec.listPath, url.PathEscape(parentID))
		}
	}

	for {
		var list listResponse
		if err := c.get(ctx, path, query, &list); err != nil {
			return err
		}

		fetchedAt := time.Now().UTC()
		records := make([]domain.ExternalRecord, 0, len(list.Data))
		for _, raw := range list.Data {
			record, err := toRecord(resourceType, spec, raw, parentID, fetchedAt)
			if err != nil {
				return err
			}
			records = append(records, *record)
		}

		if len(records) > 0 {
			if err := page(records); err != nil {
				return err
			}
		}

		if !list.HasMore || len(records) == 0 {
			return nil
		}

		query.Set("starting_after", records[len(records)-1].ID)
	}
}

func (c *Client) GetOne(ctx context.Context, ref domain.ObjectRef) (*domain.ExternalRecord, error) {
	spec, ok := resources[ref.Type]
	if !ok {
		return nil, provider.UnknownResourceTypeError{ResourceType: ref.Type}
	}

	var path string
	if spec.getNeedsParent {
		if ref.ParentID == "" {
			return nil, fmt.Errorf("fetching %s %s requires a parent id", ref.Type, ref.ID)
		}
		path = fmt.Sprintf(spec.getPath, url.PathEscape(ref.ParentID), url.PathEscape(ref.ID))
	} else {
		path = fmt.Sprintf(spec.getPath, url.PathEscape(ref.ID))
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}

	var deleted struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(raw, &deleted); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", ref.Type, ref.ID, err)
	}
	if deleted.Deleted {
		return nil, provider.ErrNotFound
	}

	return toRecord(ref.Type, spec, raw, ref.ParentID, time.Now().UTC())
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := retryAfter(resp.Header)
			drain(resp)

			logger.Log.WithFields(logrus.Fields{"provider": Name, "path": path, "wait": wait, "attempt": attempt + 1}).Warn("Stripe rate limited the request, backing off")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		return decodeResponse(resp, out)
	}
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return provider.ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorMessageBytes))
		message := string(body)

		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}

		return &provider.APIError{Provider: Name, StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding stripe response: %w", err)
	}

	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func retryAfter(header http.Header) time.Duration {
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultRetryAfter
}

func toRecord(resourceType domain.ResourceType, spec resourceSpec, raw json.RawMessage, parentID string, fetchedAt time.Time) (*domain.ExternalRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding %s object: %w", resourceType, err)
	}

	id := stringField(fields["id"])
	if id == "" {
		return nil, fmt.Errorf("%s object without an id", resourceType)
	}

	if spec.parentField != "" {
		if p := stringField(fields[spec.parentField]); p != "" {
			parentID = p
		}
	}

	return &domain.ExternalRecord{
		Type:      resourceType,
		ID:        id,
		ParentID:  parentID,
		Data:      raw,
		FetchedAt: fetchedAt,
	}, nil
}

// stringField reads a reference that Stripe renders either as a bare id or,
// when expanded, as an object carrying an id
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return expanded.ID
	}

	return ""
}
