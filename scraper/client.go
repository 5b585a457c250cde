package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

// SearchRequest describes one page of a location-filtered search.
type SearchRequest struct {
	City      string
	Latitude  float64
	Longitude float64
	RadiusM   int
	Category  models.Category
	Page      int
	Limit     int
}

// SearchPage is one page of results plus the source's pagination hint.
type SearchPage struct {
	Ads      []models.RawAd
	MaxPages int
}

// SearchClient retrieves one search result page from the source.
type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchPage, error)
}

// NewSearchClient picks the client implementation from the source config.
func NewSearchClient(cfg *config.SourceConfig, httpClient *http.Client) SearchClient {
	switch cfg.Handler {
	case "browser":
		return NewBrowserClient(cfg)
	default:
		return NewAPIClient(cfg, httpClient)
	}
}

// APIClient queries the Leboncoin finder API directly.
type APIClient struct {
	cfg    *config.SourceConfig
	client *http.Client
}

func NewAPIClient(cfg *config.SourceConfig, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{cfg: cfg, client: httpClient}
}

func (c *APIClient) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	endpoint := c.cfg.Endpoints["search"]

	reqBody := map[string]interface{}{
		"filters": map[string]interface{}{
			"category": map[string]string{"id": req.Category.SearchID()},
			"location": map[string]interface{}{
				"area": map[string]interface{}{
					"lat":    req.Latitude,
					"lng":    req.Longitude,
					"radius": req.RadiusM,
				},
			},
			"owner": map[string]string{"type": "private"},
		},
		"sort_by":    "time",
		"sort_order": "desc",
		"limit":      req.Limit,
		"offset":     (req.Page - 1) * req.Limit,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	httpReq.Header.Set("Origin", c.cfg.BaseURL)
	httpReq.Header.Set("Referer", c.cfg.BaseURL+"/")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &SearchPage{
		Ads:      result.Ads,
		MaxPages: maxPages(result.Total, req.Limit),
	}, nil
}

type searchResponse struct {
	Total int            `json:"total"`
	Ads   []models.RawAd `json:"ads"`
}

func maxPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// BuildSearchURL builds the public search URL for a request, used by the
// browser client and as a referer. Location format: City__lat_lng_radius.
func BuildSearchURL(base string, req SearchRequest) string {
	location := fmt.Sprintf("%s__%g_%g_%d", req.City, req.Latitude, req.Longitude, req.RadiusM)
	url := fmt.Sprintf("%s/recherche?category=%s&locations=%s&owner_type=private&sort=published_at_desc",
		base, req.Category.SearchID(), location)
	if req.Page > 1 {
		url += fmt.Sprintf("&page=%d", req.Page)
	}
	return url
}
