// Package solar wraps the Google Solar API endpoints used for roof
// analysis: buildingInsights:findClosest and dataLayers:get.
package solar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Tilak559/gutter-estimate/internal/resilience"
)

const defaultBaseURL = "https://solar.googleapis.com/v1"

// ErrBuildingNotFound reports that the Solar API has no building near the
// requested coordinates.
var ErrBuildingNotFound = eris.New("solar: no building found at location")

// Client performs Google Solar API operations.
type Client interface {
	// FindClosestBuilding fetches building insights for the building
	// nearest to the given coordinates.
	FindClosestBuilding(ctx context.Context, lat, lng float64) (*BuildingInsights, error)

	// GetDataLayers fetches imagery layer URLs around the given coordinates.
	GetDataLayers(ctx context.Context, lat, lng float64) (*DataLayers, error)

	// SignedURL appends the API key to an imagery URL returned by
	// GetDataLayers so it can be downloaded directly.
	SignedURL(rawURL string) string
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Date is the Solar API's calendar date.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// String renders the date as YYYY-MM-DD, or empty when unset.
func (d Date) String() string {
	if d.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// BoundingBox is a lat/lng-aligned box.
type BoundingBox struct {
	SW LatLng `json:"sw"`
	NE LatLng `json:"ne"`
}

// SizeAndSunshineStats summarizes a roof surface.
type SizeAndSunshineStats struct {
	AreaMeters2       float64 `json:"areaMeters2"`
	GroundAreaMeters2 float64 `json:"groundAreaMeters2"`
}

// RoofSegmentStat describes one planar roof segment.
type RoofSegmentStat struct {
	PitchDegrees   float64              `json:"pitchDegrees"`
	AzimuthDegrees float64              `json:"azimuthDegrees"`
	Stats          SizeAndSunshineStats `json:"stats"`
	Center         LatLng               `json:"center"`
	BoundingBox    BoundingBox          `json:"boundingBox"`
	PlaneHeightM   float64              `json:"planeHeightAtCenterMeters"`
}

// SolarPotential carries the roof geometry statistics we consume.
type SolarPotential struct {
	RoofSegmentStats []RoofSegmentStat    `json:"roofSegmentStats"`
	WholeRoofStats   SizeAndSunshineStats `json:"wholeRoofStats"`
	BuildingStats    SizeAndSunshineStats `json:"buildingStats"`
}

// BuildingInsights is the buildingInsights:findClosest response.
type BuildingInsights struct {
	Name           string         `json:"name"`
	Center         LatLng         `json:"center"`
	BoundingBox    BoundingBox    `json:"boundingBox"`
	ImageryDate    Date           `json:"imageryDate"`
	ImageryQuality string         `json:"imageryQuality"`
	PostalCode     string         `json:"postalCode"`
	SolarPotential SolarPotential `json:"solarPotential"`
}

// DataLayers is the dataLayers:get response. The URLs require the API key
// appended before download; use SignedURL.
type DataLayers struct {
	ImageryDate    Date   `json:"imageryDate"`
	ImageryQuality string `json:"imageryQuality"`
	DSMURL         string `json:"dsmUrl"`
	RGBURL         string `json:"rgbUrl"`
	MaskURL        string `json:"maskUrl"`
	AnnualFluxURL  string `json:"annualFluxUrl"`
	MonthlyFluxURL string `json:"monthlyFluxUrl"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRadiusMeters sets the dataLayers search radius. A tight radius
// keeps the imagery centered on a single house.
func WithRadiusMeters(r int) Option {
	return func(c *httpClient) {
		c.radiusMeters = r
	}
}

// WithRetry overrides the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey       string
	baseURL      string
	radiusMeters int
	retry        resilience.RetryConfig
	http         *http.Client
}

// NewClient creates a Google Solar API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		radiusMeters: 15,
		retry:        resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) FindClosestBuilding(ctx context.Context, lat, lng float64) (*BuildingInsights, error) {
	params := url.Values{
		"location.latitude":  {fmt.Sprintf("%f", lat)},
		"location.longitude": {fmt.Sprintf("%f", lng)},
		"key":                {c.apiKey},
	}

	var insights BuildingInsights
	if err := c.getJSON(ctx, "/buildingInsights:findClosest", params, &insights); err != nil {
		return nil, err
	}
	return &insights, nil
}

func (c *httpClient) GetDataLayers(ctx context.Context, lat, lng float64) (*DataLayers, error) {
	params := url.Values{
		"location.latitude":  {fmt.Sprintf("%f", lat)},
		"location.longitude": {fmt.Sprintf("%f", lng)},
		"radiusMeters":       {fmt.Sprintf("%d", c.radiusMeters)},
		"view":               {"FULL_LAYERS"},
		"key":                {c.apiKey},
	}

	var layers DataLayers
	if err := c.getJSON(ctx, "/dataLayers:get", params, &layers); err != nil {
		return nil, err
	}
	return &layers, nil
}

// SignedURL appends the API key to an imagery URL. Already-signed URLs
// and empty strings pass through unchanged.
func (c *httpClient) SignedURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("key") == "" {
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *httpClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	respBody, err := resilience.Do(ctx, c.retry, "solar"+path, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "solar: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "solar: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "solar: read response")
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, eris.Wrap(ErrBuildingNotFound, path)
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("solar: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.TransientStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "solar: unmarshal response")
	}
	return nil
}
