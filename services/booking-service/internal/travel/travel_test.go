package travel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

func TestGoogleMatrix_ParsesDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") != "driving" {
			t.Errorf("expected driving mode, got %q", r.URL.Query().Get("mode"))
		}
		w.Header().Set("Content-Type", "application/json")
		// 1530 seconds rounds to 26 minutes.
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":1530}}]}]}`))
	}))
	defer srv.Close()

	g := NewGoogleMatrix("test-key")
	g.baseURL = srv.URL

	minutes, err := g.Estimate(context.Background(), model.GeoPoint{Lat: 1, Lng: 1}, model.GeoPoint{Lat: 2, Lng: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minutes != 26 {
		t.Fatalf("expected 26 minutes, got %d", minutes)
	}
}

func TestGoogleMatrix_UnconfiguredKey(t *testing.T) {
	g := NewGoogleMatrix("")
	if _, err := g.Estimate(context.Background(), model.GeoPoint{}, model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGoogleMatrix_FailuresResolveToUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		},
		"empty rows": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","rows":[]}`))
		},
		"element not found": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			g := NewGoogleMatrix("test-key")
			g.baseURL = srv.URL

			if _, err := g.Estimate(context.Background(), model.GeoPoint{}, model.GeoPoint{}); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestGoogleMatrix_SingleAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewGoogleMatrix("test-key")
	g.baseURL = srv.URL

	_, _ = g.Estimate(context.Background(), model.GeoPoint{}, model.GeoPoint{})
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestFallbackMinutes_OneDegreeLatitude(t *testing.T) {
	// ~111 km at 30 km/h is 222 minutes.
	got := FallbackMinutes(model.GeoPoint{Lat: 0, Lng: 0}, model.GeoPoint{Lat: 1, Lng: 0})
	if got != 222 {
		t.Fatalf("expected 222 minutes, got %d", got)
	}
}

func TestFallbackMinutes_SamePoint(t *testing.T) {
	if got := FallbackMinutes(model.GeoPoint{Lat: 5, Lng: 5}, model.GeoPoint{Lat: 5, Lng: 5}); got != 0 {
		t.Fatalf("expected 0 minutes, got %d", got)
	}
}
