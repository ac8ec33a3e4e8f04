// Package gplates is a thin client for a GPlates-style plate reconstruction
// web service. The service is an opaque collaborator: it maps present-day
// coordinates plus an age to back-rotated paleo-coordinates.
package gplates

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

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Rotator back-rotates present-day points to their position at the given age
// in millions of years.
type Rotator interface {
	Rotate(ctx context.Context, age float64, pts []Point) ([]Point, error)
}

// Client calls the reconstruction endpoint of a GPlates web service.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewClient creates a rotation client. model selects the service's plate
// model; rps caps outgoing request rate.
func NewClient(baseURL, model string, rps float64) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// reconstructResponse is the service's MultiPoint payload. Null entries mark
// points the plate model could not assign.
type reconstructResponse struct {
	Coordinates [][]*float64 `json:"coordinates"`
}

// Rotate reconstructs pts at the given age. The returned slice is parallel to
// pts; points the service could not rotate keep their input coordinates.
func (c *Client) Rotate(ctx context.Context, age float64, pts []Point) ([]Point, error) {
	if len(pts) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gplates: rate limit wait")
	}

	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(p.Lon, 'f', 4, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lat, 'f', 4, 64))
	}

	q := url.Values{}
	q.Set("points", sb.String())
	q.Set("time", strconv.FormatFloat(age, 'f', 2, 64))
	if c.model != "" {
		q.Set("model", c.model)
	}

	reqURL := fmt.Sprintf("%s/reconstruct/reconstruct_points/?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gplates: build request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "gplates: reconstruct at %.2f Ma", age)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gplates: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gplates: reconstruct at %.2f Ma: status %d", age, resp.StatusCode)
	}

	var rr reconstructResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, eris.Wrap(err, "gplates: decode response")
	}
	if len(rr.Coordinates) != len(pts) {
		return nil, eris.Errorf("gplates: got %d coordinates for %d points", len(rr.Coordinates), len(pts))
	}

	out := make([]Point, len(pts))
	for i, c := range rr.Coordinates {
		if len(c) < 2 || c[0] == nil || c[1] == nil {
			out[i] = pts[i]
			continue
		}
		out[i] = Point{Lon: *c[0], Lat: *c[1]}
	}
	return out, nil
}

// Noop is a Rotator that returns points unchanged. Used when rotation is
// skipped or no service is configured.
type Noop struct{}

// Rotate returns pts unchanged.
func (Noop) Rotate(_ context.Context, _ float64, pts []Point) ([]Point, error) {
	out := make([]Point, len(pts))
	copy(out, pts)
	return out, nil
}
