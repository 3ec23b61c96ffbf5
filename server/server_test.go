package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/asaidimu/go-ninja/core"
	"github.com/asaidimu/go-ninja/core/cache"
	"github.com/asaidimu/go-ninja/core/schema"
	"github.com/asaidimu/go-ninja/core/view"
	"github.com/asaidimu/go-ninja/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orb struct {
	Name  string  `json:"name"`
	Chaos float64 `json:"chaos_value"`
}

var orbModel = schema.MustModel("orb", func(o orb) string { return o.Name },
	schema.Binding[orb]{
		Field: schema.FieldDefinition{Name: "name", Type: schema.FieldTypeString, Filterable: true, Sortable: true},
		Get:   func(o orb) schema.Value { return schema.Scalar(o.Name) },
	},
	schema.Binding[orb]{
		Field: schema.FieldDefinition{Name: "chaos_value", Type: schema.FieldTypeNumber, Filterable: true, Sortable: true},
		Get:   func(o orb) schema.Value { return schema.Scalar(o.Chaos) },
	},
)

type fixture struct {
	server  *Server
	fetches atomic.Int32
	leagues chan string
	fail    error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{leagues: make(chan string, 16)}
	v := &view.View[orb]{
		Model:         orbModel,
		Cache:         cache.New[[]orb]("orb", cache.NewMemoryStore()),
		DefaultLeague: "Standard",
		Leagues:       []string{"Standard", "Settlers"},
		Source: func(_ context.Context, league string) ([]orb, error) {
			f.fetches.Add(1)
			f.leagues <- league
			if f.fail != nil {
				return nil, f.fail
			}
			return []orb{
				{Name: "Exalted Orb", Chaos: 12.5},
				{Name: "Chaos Orb", Chaos: 1},
				{Name: "Divine Orb", Chaos: 150},
			}, nil
		},
	}
	f.server = New(Config{Collections: []Collection{Bind(v)}, Metrics: metrics.New()})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

type response struct {
	Data   []orb          `json:"data"`
	Count  int            `json:"count"`
	Error  string         `json:"error"`
	Issues []schema.Issue `json:"issues"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	return r
}

func names(orbs []orb) []string {
	out := make([]string, len(orbs))
	for i, o := range orbs {
		out[i] = o.Name
	}
	return out
}

func TestServer_Query(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected []string
	}{
		{name: "empty body sorts by name", body: "", expected: []string{"Chaos Orb", "Divine Orb", "Exalted Orb"}},
		{name: "empty object", body: "{}", expected: []string{"Chaos Orb", "Divine Orb", "Exalted Orb"}},
		{
			name:     "filter and order",
			body:     `{"where":{"chaos_value":{"_gt":5}},"orderby":[{"chaos_value":"desc"}]}`,
			expected: []string{"Divine Orb", "Exalted Orb"},
		},
		{
			name:     "logical groups",
			body:     `{"where":{"or":[{"name":{"_eq":"Chaos Orb"}},{"name":{"_iregex":"^div"}}]}}`,
			expected: []string{"Chaos Orb", "Divine Orb"},
		},
		{name: "no match is an empty list", body: `{"where":{"name":{"_eq":"Mirror"}}}`, expected: []string{}},
		{name: "null orderby sorts by name", body: `{"orderby":null}`, expected: []string{"Chaos Orb", "Divine Orb", "Exalted Orb"}},
		{name: "empty orderby keeps snapshot order", body: `{"orderby":[]}`, expected: []string{"Exalted Orb", "Chaos Orb", "Divine Orb"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/v1/orb", tc.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			r := decode(t, rec)
			assert.Equal(t, tc.expected, names(r.Data))
			assert.Equal(t, len(tc.expected), r.Count)
			assert.NotContains(t, rec.Body.String(), `"data":null`)
		})
	}
}

func TestServer_QueryLeague(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/orb", `{"league":"Settlers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Settlers", <-f.leagues)

	rec = f.do(t, http.MethodPost, "/v1/orb", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Standard", <-f.leagues)

	// Both leagues are cached now.
	rec = f.do(t, http.MethodPost, "/v1/orb", `{"league":"Settlers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), f.fetches.Load())
}

func TestServer_UnknownLeague(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/v1/orb", fmt.Sprintf(`{"league":"made-up-%d"}`, i))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		r := decode(t, rec)
		require.Len(t, r.Issues, 1)
		assert.Equal(t, "league", r.Issues[0].Path)
		assert.Equal(t, schema.IssueUnknownLeague, r.Issues[0].Code)
	}
	assert.Equal(t, int32(0), f.fetches.Load(), "unlisted leagues never reach the source")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "made-up")
}

func TestServer_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		paths []string
	}{
		{name: "unknown field", body: `{"where":{"nope":{"_eq":1}}}`, paths: []string{"where.nope"}},
		{name: "wrong operator family", body: `{"where":{"name":{"_gt":1}}}`, paths: []string{"where.name"}},
		{name: "bad regex", body: `{"where":{"name":{"_regex":"("}}}`, paths: []string{"where.name._regex"}},
		{name: "bad direction", body: `{"orderby":[{"name":"up"}]}`, paths: []string{"orderby[0]"}},
		{
			name:  "issues from both halves",
			body:  `{"where":{"nope":{"_eq":1}},"orderby":"name"}`,
			paths: []string{"where.nope", "orderby"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/v1/orb", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			r := decode(t, rec)
			assert.Equal(t, core.ErrValidation.Error(), r.Error)
			var paths []string
			for _, issue := range r.Issues {
				paths = append(paths, issue.Path)
			}
			assert.Equal(t, tc.paths, paths)
			assert.Equal(t, int32(0), f.fetches.Load(), "validation happens before any fetch")
		})
	}
}

func TestServer_BadRequests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/orb", `{"where":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/orb", `{"limit":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/gems", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/orb", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ErrorStatuses(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "upstream", err: core.UpstreamError("Currency", errors.New("503")), status: http.StatusBadGateway},
		{name: "numeric", err: fmt.Errorf("%w: pivot is zero", core.ErrNumericDomain), status: http.StatusInternalServerError},
		{name: "cache", err: core.CacheError("save", "orb:Standard", errors.New("disk full")), status: http.StatusInternalServerError},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), status: http.StatusGatewayTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.fail = tc.err
			rec := f.do(t, http.MethodPost, "/v1/orb", `{}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, decode(t, rec).Error, tc.err.Error())
		})
	}
}

func TestServer_Schema(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/orb/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var def schema.SchemaDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.Equal(t, "orb", def.Name)
	require.NotNil(t, def.FindField("chaos_value"))
	assert.Equal(t, schema.FieldTypeNumber, def.FindField("chaos_value").Type)

	rec = f.do(t, http.MethodGet, "/v1/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"collections":["orb"]}`, rec.Body.String())
}

func TestServer_HealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f.do(t, http.MethodPost, "/v1/orb", `{}`)
	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ninja_http_requests_total{method="POST",route="/v1/{collection}",status="200"} 1`)
}

func TestServer_RequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}
