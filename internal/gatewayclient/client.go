package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"devicemodel/internal/models"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type command struct {
	Type           string `json:"type"`
	ChargePointID  string `json:"chargePointId"`
	IdempotencyKey string `json:"idempotencyKey"`
	Payload        any    `json:"payload"`
}

// SetVariables asks the gateway to send a SetVariablesRequest to the station.
// It returns the gateway's status code and body.
func (c *Client) SetVariables(ctx context.Context, stationID string, data []models.SetVariableDataType) (int, []byte, error) {
	body, err := json.Marshal(command{
		Type:           "SetVariables",
		ChargePointID:  stationID,
		IdempotencyKey: uuid.NewString(),
		Payload:        map[string]any{"setVariableData": data},
	})
	if err != nil {
		return 0, nil, err
	}
	return c.SendCommand(ctx, body)
}

func (c *Client) SendCommand(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/gateway/commands", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}
