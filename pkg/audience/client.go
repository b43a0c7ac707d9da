// Package audience talks to the collaborator that sizes an audience for a
// set of campaign criteria.
package audience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/criteria"
)

const countPath = "/run/count"

type CountResult struct {
	TotalCustomers       int64 `json:"total_customers"`
	ShortlistedCustomers int64 `json:"shortlisted_customers"`
}

type Counter interface {
	Count(ctx context.Context, c *criteria.CampaignCriteria) (*CountResult, error)
}

type Client struct {
	BaseURL    string
	HttpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HttpClient: &http.Client{Timeout: time.Minute},
	}
}

// Count posts the criteria and returns the audience size.
func (c *Client) Count(ctx context.Context, payload *criteria.CampaignCriteria) (*CountResult, error) {
	if payload == nil {
		return nil, fmt.Errorf("campaign criteria is required")
	}
	jsonBody, err := jsoncompat.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling criteria: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+countPath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating count request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HttpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending count request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("audience count failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	result := &CountResult{}
	if err := jsoncompat.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("error decoding count response: %w", err)
	}
	return result, nil
}
