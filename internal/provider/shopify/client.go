package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/ratelimit"

	"github.com/sirupsen/logrus"
)

const (
	accessTokenHeader    = "X-Shopify-Access-Token"
	defaultPageSize      = 250
	maxRateLimitRetries  = 3
	defaultRetryAfter    = 2 * time.Second
	maxErrorMessageBytes = 4096
)

// AdminURL builds the versioned admin REST base url for a shop
func AdminURL(shopDomain string, apiVersion string) string {
	return fmt.Sprintf("https://%s/admin/api/%s", shopDomain, apiVersion)
}

type Client struct {
	baseURL     string
	accessToken string
	pageSize    int
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
}

func NewClient(baseURL string, accessToken string, httpClient *http.Client, limiter *ratelimit.Limiter) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		pageSize:    defaultPageSize,
		httpClient:  httpClient,
		limiter:     limiter,
	}
}

func (c *Client) ListPages(ctx context.Context, resourceType domain.ResourceType, parentID string, page provider.PageFunc) error {
	spec, ok := resources[resourceType]
	if !ok {
		return provider.UnknownResourceTypeError{ResourceType: resourceType}
	}

	path := spec.path
	if def, _ := Graph.Definition(resourceType); def.IsDependent() {
		if parentID == "" {
			return fmt.Errorf("listing %s requires a parent id", resourceType)
		}
		path = fmt.Sprintf(spec.path, url.PathEscape(parentID))
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	for k, v := range spec.listQuery {
		query.Set(k, v)
	}

	next := c.baseURL + "/" + path + ".json?" + query.Encode()

	for next != "" {
		var body map[string]json.RawMessage
		header, err := c.get(ctx, next, &body)
		if err != nil {
			return err
		}

		var objects []json.RawMessage
		if raw, ok := body[spec.collection]; ok {
			if err := json.Unmarshal(raw, &objects); err != nil {
				return fmt.Errorf("decoding %s page: %w", resourceType, err)
			}
		}

		fetchedAt := time.Now().UTC()
		records := make([]domain.ExternalRecord, 0, len(objects))
		for _, raw := range objects {
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

		// page_info cursors are only ever handed out through the Link header
		next = nextPageURL(header.Get("Link"))
	}

	return nil
}

func (c *Client) GetOne(ctx context.Context, ref domain.ObjectRef) (*domain.ExternalRecord, error) {
	spec, ok := resources[ref.Type]
	if !ok {
		return nil, provider.UnknownResourceTypeError{ResourceType: ref.Type}
	}

	path := spec.path
	if def, _ := Graph.Definition(ref.Type); def.IsDependent() {
		if ref.ParentID == "" {
			return nil, fmt.Errorf("fetching %s %s requires a parent id", ref.Type, ref.ID)
		}
		path = fmt.Sprintf(spec.path, url.PathEscape(ref.ParentID))
	}

	var body map[string]json.RawMessage
	if _, err := c.get(ctx, c.baseURL+"/"+path+"/"+url.PathEscape(ref.ID)+".json", &body); err != nil {
		return nil, err
	}

	raw, ok := body[spec.member]
	if !ok || string(raw) == "null" {
		return nil, provider.ErrNotFound
	}

	return toRecord(ref.Type, spec, raw, ref.ParentID, time.Now().UTC())
}

func (c *Client) get(ctx context.Context, target string, out interface{}) (http.Header, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(accessTokenHeader, c.accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := retryAfter(resp.Header)
			drain(resp)

			logger.Log.WithFields(logrus.Fields{"provider": Name, "url": target, "wait": wait, "attempt": attempt + 1}).Warn("Shopify rate limited the request, backing off")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		return resp.Header, decodeResponse(resp, out)
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

		var errResp struct {
			Errors json.RawMessage `json:"errors"`
		}
		if json.Unmarshal(body, &errResp) == nil && len(errResp.Errors) > 0 {
			message = string(errResp.Errors)
		}

		return &provider.APIError{Provider: Name, StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding shopify response: %w", err)
	}

	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Shopify sends fractional seconds in Retry-After
func retryAfter(header http.Header) time.Duration {
	if seconds, err := strconv.ParseFloat(header.Get("Retry-After"), 64); err == nil && seconds >= 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultRetryAfter
}

// nextPageURL extracts the rel="next" target from a Link header such as
// <https://shop/admin/api/2024-07/orders.json?limit=250&page_info=abc>; rel="next"
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range segments[1:] {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if found && key == "rel" && strings.Trim(value, `"`) == "next" {
				return target[1 : len(target)-1]
			}
		}
	}

	return ""
}

func toRecord(resourceType domain.ResourceType, spec resourceSpec, raw json.RawMessage, parentID string, fetchedAt time.Time) (*domain.ExternalRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding %s object: %w", resourceType, err)
	}

	id := idField(fields["id"])
	if id == "" {
		return nil, fmt.Errorf("%s object without an id", resourceType)
	}

	if spec.parentField != "" {
		if p := idField(fields[spec.parentField]); p != "" {
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

// idField accepts Shopify's numeric ids as well as quoted ones
func idField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return ""
}
