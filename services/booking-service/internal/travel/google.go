package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/model"
)

const defaultMatrixBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// GoogleMatrix queries the Google Distance Matrix API (driving mode,
// departing now). Any failure resolves to ErrUnavailable: one attempt, no
// retries, bounded by the client timeout.
type GoogleMatrix struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewGoogleMatrix(apiKey string) *GoogleMatrix {
	return &GoogleMatrix{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultMatrixBaseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (g *GoogleMatrix) Estimate(ctx context.Context, origin, dest model.GeoPoint) (int, error) {
	if g.apiKey == "" {
		return 0, ErrUnavailable
	}

	q := url.Values{}
	q.Set("origins", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	q.Set("destinations", fmt.Sprintf("%f,%f", dest.Lat, dest.Lng))
	q.Set("mode", "driving")
	q.Set("departure_time", "now")
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, ErrUnavailable
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return 0, ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, ErrUnavailable
	}

	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, ErrUnavailable
	}
	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return 0, ErrUnavailable
	}
	el := body.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, ErrUnavailable
	}
	return int(math.Round(float64(el.Duration.Value) / 60)), nil
}
