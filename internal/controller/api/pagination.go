package api

import (
	"net/url"
	"strconv"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

type meta struct {
	Count int64 `json:"count"`
}

type navigationLinks struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// paginatedResponse is the meta/links/data envelope of every listing endpoint
type paginatedResponse[T any] struct {
	Meta  meta            `json:"meta"`
	Links navigationLinks `json:"links"`
	Data  []T             `json:"data"`
}

type webhookEventPage = paginatedResponse[domain.WebhookEvent]

func buildWebhookEventPage(u *url.URL, offset int, limit int, total int64, events []domain.WebhookEvent) *webhookEventPage {
	return buildPaginatedResponse(u, offset, limit, total, events)
}

func buildPaginatedResponse[T any](u *url.URL, offset int, limit int, total int64, data []T) *paginatedResponse[T] {
	if data == nil {
		// render an empty page as [] rather than null
		data = []T{}
	}

	return &paginatedResponse[T]{
		Meta:  meta{Count: total},
		Links: buildNavigationLinks(u, offset, limit, total),
		Data:  data,
	}
}

func buildNavigationLink(originalUrl *url.URL, offset int, limit int) string {
	copiedUrl := *originalUrl
	values := copiedUrl.Query()
	values.Set("offset", strconv.Itoa(offset))
	values.Set("limit", strconv.Itoa(limit))
	copiedUrl.RawQuery = values.Encode()
	return copiedUrl.String()
}

func buildNavigationLinks(u *url.URL, offset int, limit int, total int64) navigationLinks {
	if total == 0 {
		return navigationLinks{}
	}

	links := navigationLinks{
		First: buildNavigationLink(u, 0, limit),
		Last:  buildNavigationLink(u, lastPageOffset(total, limit), limit),
	}

	if int64(offset+limit) < total {
		links.Next = buildNavigationLink(u, offset+limit, limit)
	}

	if offset > 0 {
		links.Prev = buildNavigationLink(u, max(offset-limit, 0), limit)
	}

	return links
}

func lastPageOffset(total int64, limit int) int {
	return int((total-1)/int64(limit)) * limit
}
