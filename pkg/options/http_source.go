package options

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matst80/slask-audience/pkg/common/jsoncompat"
	"github.com/matst80/slask-audience/pkg/types"
)

// HTTPSource fetches options with a GET returning the options JSON.
type HTTPSource struct {
	URL        string
	HttpClient *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:        url,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HTTPSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating options request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.HttpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching options: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK response from options source: %d", resp.StatusCode)
	}

	opts := &types.CampaignOptions{}
	if err := jsoncompat.NewDecoder(resp.Body).Decode(opts); err != nil {
		return nil, fmt.Errorf("error decoding options: %w", err)
	}
	return opts, nil
}
