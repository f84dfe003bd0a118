// Package lookup resolves plate numbers to vehicle registry records.
//
// Two implementations ship: a mock client returning a canned record after
// a short artificial delay, useful for demos and offline development, and
// an HTTP client querying a registry service. Both satisfy
// anpr.LookupClient.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"platewatch/internal/anpr"
)

// Modes accepted by New.
const (
	ModeMock = "mock"
	ModeHTTP = "http"
)

const defaultMockDelay = 500 * time.Millisecond

// New builds a lookup client for the given mode. ModeHTTP requires a
// non-empty base URL.
func New(mode, baseURL string, timeout time.Duration) (anpr.LookupClient, error) {
	switch mode {
	case ModeMock:
		return NewMock(), nil
	case ModeHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("lookup: http mode requires a base url")
		}
		return NewHTTP(baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("lookup: unknown mode %q", mode)
	}
}

// Mock returns the same registry record for every plate, after a delay
// that approximates a real registry round trip.
type Mock struct {
	delay time.Duration
}

// NewMock builds a mock client with the default artificial delay.
func NewMock() *Mock {
	return &Mock{delay: defaultMockDelay}
}

func (m *Mock) Lookup(ctx context.Context, plate string) (*anpr.VehicleRecord, error) {
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return &anpr.VehicleRecord{
		PlateText:        plate,
		OwnerName:        "Manav Vashistha",
		VehicleModel:     "Maruti Swift",
		RegistrationDate: "2023-04-15",
	}, nil
}

// HTTPClient queries a vehicle registry over HTTP. A 404 maps to
// anpr.ErrNotFound; any other non-200 status is an error.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTP builds a registry client against baseURL (no trailing slash
// required). A zero timeout means no client-side timeout.
func NewHTTP(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// wire mirrors the registry's response body.
type wire struct {
	OwnerName        string `json:"owner_name"`
	VehicleModel     string `json:"vehicle_model"`
	RegistrationDate string `json:"registration_date"`
}

func (c *HTTPClient) Lookup(ctx context.Context, plate string) (*anpr.VehicleRecord, error) {
	u := c.baseURL + "/vehicles/" + url.PathEscape(plate)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", plate, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, anpr.ErrNotFound
	default:
		return nil, fmt.Errorf("lookup %s: unexpected status %d", plate, resp.StatusCode)
	}

	var body wire
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("lookup %s: decode response: %w", plate, err)
	}
	return &anpr.VehicleRecord{
		PlateText:        plate,
		OwnerName:        body.OwnerName,
		VehicleModel:     body.VehicleModel,
		RegistrationDate: body.RegistrationDate,
	}, nil
}

var (
	_ anpr.LookupClient = (*Mock)(nil)
	_ anpr.LookupClient = (*HTTPClient)(nil)
)
