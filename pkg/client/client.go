// Package client is a small Go client for the inventoryd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/models"
	svcerrors "github.com/homefleet/inventoryd/pkg/errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: zap.S().Named("client"),
	}
}

// ListParams filter and paginate the device list.
type ListParams struct {
	Status   string
	Hostname string
	Segment  string
	Page     int
	PageSize int
}

// DeviceList is the device list response envelope.
type DeviceList struct {
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Count    int             `json:"count"`
	Devices  []models.Device `json:"devices"`
}

// ListDevices fetches the device inventory.
// GET /api/v1/devices
func (c *Client) ListDevices(ctx context.Context, params ListParams) (*DeviceList, error) {
	q := url.Values{}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Hostname != "" {
		q.Set("hostname", params.Hostname)
	}
	if params.Segment != "" {
		q.Set("segment", params.Segment)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(params.PageSize))
	}

	var out DeviceList
	if err := c.get(ctx, "/api/v1/devices?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HistoryResponse is the device history response envelope.
type HistoryResponse struct {
	DeviceID uuid.UUID               `json:"device_id"`
	Count    int                     `json:"count"`
	Events   []models.DiscoveryEvent `json:"events"`
}

// GetHistory fetches a device's discovery history, most recent first.
// GET /api/v1/devices/{id}/history
func (c *Client) GetHistory(ctx context.Context, deviceID uuid.UUID, limit int) (*HistoryResponse, error) {
	path := fmt.Sprintf("/api/v1/devices/%s/history", deviceID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out HistoryResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchResponse is the discovery ingestion response envelope.
type BatchResponse struct {
	Count   int                   `json:"count"`
	Failed  int                   `json:"failed"`
	Results []models.UpsertResult `json:"results"`
}

// PostDiscoveries submits a batch of raw discovery documents.
// POST /api/v1/discoveries
func (c *Client) PostDiscoveries(ctx context.Context, payloads [][]byte) (*BatchResponse, error) {
	docs := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		docs[i] = p
	}
	body, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode discovery batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/discoveries", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus:
	default:
		return nil, c.statusError(resp)
	}

	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return &out, nil
}

// Decommission retires a device.
// POST /api/v1/devices/{id}/decommission
func (c *Client) Decommission(ctx context.Context, deviceID uuid.UUID) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/devices/%s/decommission", deviceID))
}

// Reactivate returns a decommissioned device to the fleet.
// POST /api/v1/devices/{id}/reactivate
func (c *Client) Reactivate(ctx context.Context, deviceID uuid.UUID) error {
	return c.post(ctx, fmt.Sprintf("/api/v1/devices/%s/reactivate", deviceID))
}

// GetTopology fetches the fleet topology summary.
// GET /api/v1/topology
func (c *Client) GetTopology(ctx context.Context) (*models.TopologySummary, error) {
	var out models.TopologySummary
	if err := c.get(ctx, "/api/v1/topology", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecommendations fetches deployment placement suggestions.
// GET /api/v1/recommendations
func (c *Client) GetRecommendations(ctx context.Context) (*models.Suggestions, error) {
	var out models.Suggestions
	if err := c.get(ctx, "/api/v1/recommendations", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.log.Debugw("request failed", "status", resp.Status, "body", string(body))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return svcerrors.NewDeviceNotFoundError(resp.Request.URL.Path)
	case http.StatusServiceUnavailable:
		return svcerrors.NewStorageUnavailableError(resp.Request.URL.Path, fmt.Errorf("%s", resp.Status))
	default:
		return fmt.Errorf("unexpected status %s: %s", resp.Status, string(body))
	}
}
