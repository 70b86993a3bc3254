package platsbanken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		BaseURL: srv.URL + "/",
		Now:     func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return client
}

func TestListIDsPages(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var requests []searchRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		var resp searchResponse
		resp.NumberOfAds = 250
		count := PageSize
		if req.StartIndex == 200 {
			count = 50
		}
		for i := 0; i < count; i++ {
			resp.Ads = append(resp.Ads, struct {
				ID string `json:"id"`
			}{ID: fmt.Sprintf("%d", req.StartIndex+i)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	ids, err := client.ListIDs(context.Background(), "apaJ_2ja_LuF", "CifL_Rzy_Mku")
	require.NoError(t, err)
	require.Len(t, ids, 250)
	require.Equal(t, "0", ids[0])
	require.Equal(t, "249", ids[249])

	require.Len(t, requests, 3)
	for i, req := range requests {
		require.Equal(t, i*PageSize, req.StartIndex)
		require.Equal(t, PageSize, req.MaxRecords)
		require.Equal(t, "relevance", req.Order)
		require.Equal(t, "pb", req.Source)
		require.Nil(t, req.FromDate)
		require.Equal(t, "2025-01-02T03:04:05Z", req.ToDate)
		require.Equal(t, []searchFilter{
			{Type: "occupationField", Value: "apaJ_2ja_LuF"},
			{Type: "region", Value: "CifL_Rzy_Mku"},
		}, req.Filters)
	}
}

func TestListIDsEmpty(t *testing.T) {
	t.Parallel()

	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"ads": [], "numberOfAds": 0}`))
	}))

	ids, err := client.ListIDs(context.Background(), "f", "r")
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Equal(t, 1, calls)
}

func TestListIDsPropagatesErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))

	_, err := client.ListIDs(context.Background(), "f", "r")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
	require.Contains(t, statusErr.Body, "upstream broke")
}

func TestListIDsDecodeError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))

	_, err := client.ListIDs(context.Background(), "f", "r")
	require.ErrorContains(t, err, "decode response")
}

func TestPosting(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/job/29001234", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "29001234",
			"title": "Backend Developer",
			"description": "<p>Go och Postgres</p>",
			"languages": [{"name": "Svenska", "required": true}, {"name": "Engelska", "required": false}],
			"workExperiences": [{"name": "Systemutvecklare", "required": true}],
			"lastApplicationDate": "2025-02-28T23:59:59",
			"application": {"webAddress": "https://example.com/apply"}
		}`))
	}))

	posting, err := client.Posting(context.Background(), "29001234")
	require.NoError(t, err)
	require.Equal(t, "29001234", posting.ID)
	require.Equal(t, "Backend Developer", posting.Title)
	require.Equal(t, []string{"Svenska"}, posting.RequiredLanguages())
	require.Equal(t, []string{"Systemutvecklare"}, posting.RequiredExperiences())
	require.Equal(t, "https://example.com/apply", posting.ApplicationURL)
	_, ok := posting.Deadline()
	require.True(t, ok)
}

func TestPostingNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.NotFoundHandler())
	_, err := client.Posting(context.Background(), "missing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}
