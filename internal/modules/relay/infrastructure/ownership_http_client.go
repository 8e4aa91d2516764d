package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"swiftDropWs/internal/modules/relay/application/port"
)

// OwnershipHTTPClient resolves authorization facts (order assignment, hub
// ownership) against the REST system of record. Results are TTL-cached so
// high-frequency actions like courier location updates do not hammer the API.
type OwnershipHTTPClient struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string
	orderCache   *ttlcache.Cache[string, string]
	hubCache     *ttlcache.Cache[string, string]
}

func NewOwnershipHTTPClient(baseURL string, timeout time.Duration, serviceToken string, cacheTTL time.Duration, httpClient *http.Client) *OwnershipHTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	orderCache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	hubCache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go orderCache.Start()
	go hubCache.Start()
	return &OwnershipHTTPClient{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient:   httpClient,
		serviceToken: strings.TrimSpace(serviceToken),
		orderCache:   orderCache,
		hubCache:     hubCache,
	}
}

type orderAssignmentResponse struct {
	CourierID string `json:"courierId"`
}

type hubStaffResponse struct {
	OwnerID string `json:"ownerId"`
}

func (c *OwnershipHTTPClient) OrderCourier(ctx context.Context, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", port.ErrOwnershipNotFound
	}
	if item := c.orderCache.Get(orderID); item != nil {
		return item.Value(), nil
	}

	var payload orderAssignmentResponse
	path := "/api/v1/internal/orders/" + url.PathEscape(orderID) + "/assignment"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return "", err
	}
	courier := strings.TrimSpace(payload.CourierID)
	if courier == "" {
		return "", port.ErrOwnershipNotFound
	}
	c.orderCache.Set(orderID, courier, ttlcache.DefaultTTL)
	return courier, nil
}

func (c *OwnershipHTTPClient) HubOwner(ctx context.Context, hubID string) (string, error) {
	hubID = strings.TrimSpace(hubID)
	if hubID == "" {
		return "", port.ErrOwnershipNotFound
	}
	if item := c.hubCache.Get(hubID); item != nil {
		return item.Value(), nil
	}

	var payload hubStaffResponse
	path := "/api/v1/internal/hubs/" + url.PathEscape(hubID) + "/owner"
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return "", err
	}
	owner := strings.TrimSpace(payload.OwnerID)
	if owner == "" {
		return "", port.ErrOwnershipNotFound
	}
	c.hubCache.Set(hubID, owner, ttlcache.DefaultTTL)
	return owner, nil
}

func (c *OwnershipHTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrOwnershipUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrOwnershipUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return port.ErrOwnershipNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", port.ErrOwnershipUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", port.ErrOwnershipUnavailable, err)
	}
	return nil
}

var _ port.OwnershipResolver = (*OwnershipHTTPClient)(nil)
