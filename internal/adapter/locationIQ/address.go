package locationIQ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	wrap "github.com/navatransportes/nava-fleet/pkg/logger/wrapper"
)

var (
	ErrLocationNotFound = errors.New("location not found")
)

const DefaultURL = "https://us1.locationiq.com"

type LocationIQClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string) *LocationIQClient {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &LocationIQClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type AddressPayload struct {
	Address string `json:"display_name"`
}

// GetAddress reverse geocodes p into a display address.
func (c *LocationIQClient) GetAddress(ctx context.Context, p models.GeoPoint) (string, error) {
	const op = "LocationIQClient.GetAddress"

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', 6, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to make request to LocationIQ: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", wrap.Error(ctx, ErrLocationNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return "", wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var payload AddressPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		ctx = wrap.WithAction(ctx, "decode_address_payload")
		return "", wrap.Error(ctx, fmt.Errorf("%s: failed to decode data from LocationIQ response: %w", op, err))
	}
	if payload.Address == "" {
		return "", wrap.Error(ctx, ErrLocationNotFound)
	}

	return payload.Address, nil
}
