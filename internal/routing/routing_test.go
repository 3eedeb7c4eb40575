package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/travel-bot/internal/models"
	"github.com/ukydev/travel-bot/internal/polyline"
)

var (
	origin      = models.Location{Latitude: 38.5, Longitude: -120.2}
	destination = models.Location{Latitude: 43.252, Longitude: -126.453}
)

const samplePath = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestGoogleDirections_EncodedRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "38.500000,-120.200000", r.URL.Query().Get("origin"))
		assert.Equal(t, "43.252000,-126.453000", r.URL.Query().Get("destination"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","routes":[{"overview_polyline":{"points":"` + samplePath + `"}}]}`))
	}))
	defer server.Close()

	g := &GoogleDirections{Client: server.Client(), BaseURL: server.URL, APIKey: "secret"}
	encoded, err := g.EncodedRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, samplePath, encoded)
}

func TestGoogleDirections_Errors(t *testing.T) {
	testCases := []struct {
		name      string
		code      int
		body      string
		wantNoRte bool
	}{
		{"zero results", http.StatusOK, `{"status":"ZERO_RESULTS","routes":[]}`, true},
		{"no routes", http.StatusOK, `{"status":"OK","routes":[]}`, true},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key","routes":[{}]}`, false},
		{"server error", http.StatusInternalServerError, ``, false},
		{"bad json", http.StatusOK, `{bad json`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			g := &GoogleDirections{Client: server.Client(), BaseURL: server.URL}
			_, err := g.EncodedRoute(context.Background(), origin, destination)
			require.Error(t, err)
			assert.Equal(t, tc.wantNoRte, errors.Is(err, ErrNoRoute))
		})
	}
}

func TestOSRM_EncodedRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-120.200000,38.500000;-126.453000,43.252000", r.URL.Path)
		assert.Equal(t, "polyline", r.URL.Query().Get("geometries"))
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"` + samplePath + `"}]}`))
	}))
	defer server.Close()

	o := &OSRM{Client: server.Client(), BaseURL: server.URL + "/"}
	encoded, err := o.EncodedRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, samplePath, encoded)
}

func TestOSRM_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	}))
	defer server.Close()

	o := &OSRM{Client: server.Client(), BaseURL: server.URL}
	_, err := o.EncodedRoute(context.Background(), origin, destination)
	assert.ErrorIs(t, err, ErrNoRoute)
}

type stubProvider struct {
	encoded string
	err     error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) EncodedRoute(ctx context.Context, origin, destination models.Location) (string, error) {
	return s.encoded, s.err
}

func TestService_FetchRoute(t *testing.T) {
	path := NewService(stubProvider{encoded: samplePath}).FetchRoute(context.Background(), origin, destination)
	require.Len(t, path, 3)
	assert.InDelta(t, 40.7, path[1].Latitude, 1e-6)
	assert.InDelta(t, -120.95, path[1].Longitude, 1e-6)
}

func TestService_FetchRoute_CollapsesFailures(t *testing.T) {
	testCases := []struct {
		name     string
		provider stubProvider
	}{
		{"no route", stubProvider{err: ErrNoRoute}},
		{"transport error", stubProvider{err: errors.New("connection refused")}},
		{"malformed polyline", stubProvider{encoded: "_p~iF~ps|"}},
		{"empty polyline", stubProvider{encoded: ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := NewService(tc.provider).FetchRoute(context.Background(), origin, destination)
			assert.NotNil(t, path)
			assert.Empty(t, path)
		})
	}
}

func TestService_FetchRoute_Unreachable(t *testing.T) {
	g := &GoogleDirections{Client: http.DefaultClient, BaseURL: "http://127.0.0.1:1"}
	path := NewService(g).FetchRoute(context.Background(), origin, destination)
	assert.Empty(t, path)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "no_route", reason(ErrNoRoute))
	assert.Equal(t, "decode", reason(&polyline.DecodeError{Input: "x", Err: errors.New("bad")}))
	assert.Equal(t, "transport", reason(errors.New("timeout")))
}

func TestNew(t *testing.T) {
	p, err := New("google", nil, "", "key", "")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	p, err = New("osrm", nil, "", "", "http://osrm")
	require.NoError(t, err)
	assert.Equal(t, "osrm", p.Name())

	_, err = New("here", nil, "", "", "")
	assert.Error(t, err)
}
