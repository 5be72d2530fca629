// SPDX-License-Identifier: MIT

package watchapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chasut/eplustv-ah4c/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "data": {
    "airings": [
      {
        "id": "airing-1",
        "shortName": "Rangers vs Devils",
        "name": "New York Rangers vs New Jersey Devils",
        "type": "LIVE",
        "startDateTime": "2026-03-14T18:00:00Z",
        "endDateTime": "2026-03-14T20:00:00Z",
        "sport": {"name": "Hockey", "abbreviation": "HKY"},
        "league": {"name": "National Hockey League", "abbreviation": "NHL"},
        "network": {"name": "ESPN Plus", "shortName": "ESPN+"},
        "packages": [{"name": "ESPN_PLUS"}]
      },
      {
        "airingId": "fallback-2",
        "name": "Studio Show",
        "startDateTime": "2026-03-14T21:00:00Z",
        "endDateTime": "2026-03-14T22:00:00Z",
        "sport": null,
        "league": null,
        "network": null,
        "packages": []
      }
    ]
  }
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.APIConfig{
		Base:     srv.URL,
		Key:      "test-key",
		Features: "pbov7",
		Region:   "US",
		TZ:       "UTC",
		Device:   "DESKTOP",
	}, 100, "eplustv-ah4c/test")
	c.http.RetryMax = 0
	return c
}

func TestAiringsParsesResponse(t *testing.T) {
	var gotBody []byte
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "pbov7", r.URL.Query().Get("features"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	})

	airings, err := c.Airings(context.Background(), "2026-03-14")
	require.NoError(t, err)
	require.Len(t, airings, 2)

	var req struct {
		Variables map[string]any `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &req))
	assert.Equal(t, "US", req.Variables["countryCode"])
	assert.Equal(t, "2026-03-14", req.Variables["day"])
	assert.Equal(t, "UTC", req.Variables["tz"])

	a := airings[0]
	assert.Equal(t, "airing-1", a.ID)
	assert.Equal(t, "Rangers vs Devils", a.ShortName)
	assert.Equal(t, "Hockey", a.SportName)
	assert.Equal(t, "NHL", a.LeagueAbbrev)
	assert.Equal(t, "ESPN+", a.NetworkShort)
	assert.Equal(t, []string{"ESPN_PLUS"}, a.Packages)
	assert.Equal(t, "2026-03-14T18:00:00Z", a.Start)

	// nullable branches come back empty, not as errors
	b := airings[1]
	assert.Empty(t, b.ID)
	assert.Equal(t, "fallback-2", b.AiringID)
	assert.Empty(t, b.SportName)
	assert.Empty(t, b.Packages)
}

func TestAiringsNon200(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := c.Airings(context.Background(), "2026-03-14")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "403")
}

func TestAiringsGraphQLErrors(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors": [{"message": "invalid day"}], "data": null}`))
	})

	_, err := c.Airings(context.Background(), "not-a-day")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "invalid day")
}

func TestAiringsRequiresKey(t *testing.T) {
	c := New(config.APIConfig{Base: "https://example.com/api"}, 1, "test")
	_, err := c.Airings(context.Background(), "2026-03-14")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestParseAiringsMissingData(t *testing.T) {
	assert.Empty(t, parseAirings([]byte(`{}`)))
	assert.Empty(t, parseAirings([]byte(`{"data": {"airings": null}}`)))
}
