package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/autoworth/autoworth/internal/pipeline"
)

const clientTimeout = 10 * time.Second

// decoderClient resolves VINs against an external decode service.
type decoderClient struct {
	baseURL string
	client  *http.Client
}

func newDecoderClient(baseURL string) *decoderClient {
	return &decoderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: clientTimeout},
	}
}

func (c *decoderClient) Decode(ctx context.Context, vin string) (pipeline.Vehicle, error) {
	var payload struct {
		Make         string `json:"make"`
		Model        string `json:"model"`
		Year         int    `json:"year"`
		Trim         string `json:"trim"`
		BodyStyle    string `json:"bodyStyle"`
		FuelType     string `json:"fuelType"`
		Transmission string `json:"transmission"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/decode?vin="+url.QueryEscape(vin), &payload); err != nil {
		return pipeline.Vehicle{}, fmt.Errorf("decode vin: %w", err)
	}
	return pipeline.Vehicle{
		Make:         payload.Make,
		Model:        payload.Model,
		Year:         payload.Year,
		Trim:         payload.Trim,
		BodyStyle:    payload.BodyStyle,
		FuelType:     payload.FuelType,
		Transmission: payload.Transmission,
	}, nil
}

// enrichmentClient fetches supplemental vehicle history for a VIN.
type enrichmentClient struct {
	baseURL string
	client  *http.Client
}

func newEnrichmentClient(baseURL string) *enrichmentClient {
	return &enrichmentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: clientTimeout},
	}
}

func (c *enrichmentClient) Enrich(ctx context.Context, vin string, _ pipeline.Vehicle) (pipeline.Enrichment, error) {
	var payload struct {
		Cached     bool     `json:"cached"`
		Trim       string   `json:"trim"`
		FuelType   string   `json:"fuelType"`
		Features   []string `json:"features"`
		Warranty   string   `json:"warranty"`
		OpenRecall bool     `json:"openRecall"`
		RecallRisk string   `json:"recallRisk"`
		Resolved   bool     `json:"recallResolved"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/history?vin="+url.QueryEscape(vin), &payload); err != nil {
		return pipeline.Enrichment{}, fmt.Errorf("enrich vin: %w", err)
	}
	return pipeline.Enrichment{
		Cached:     payload.Cached,
		Trim:       payload.Trim,
		FuelType:   payload.FuelType,
		Features:   payload.Features,
		Warranty:   payload.Warranty,
		OpenRecall: payload.OpenRecall,
		RecallRisk: payload.RecallRisk,
		Resolved:   payload.Resolved,
	}, nil
}

// listingsClient aggregates comparable listings from an external listings
// service.
type listingsClient struct {
	baseURL string
	client  *http.Client
}

func newListingsClient(baseURL string) *listingsClient {
	return &listingsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: clientTimeout},
	}
}

func (c *listingsClient) Aggregate(ctx context.Context, v pipeline.Vehicle) (pipeline.CompSummary, error) {
	q := url.Values{}
	q.Set("make", v.Make)
	q.Set("model", v.Model)
	q.Set("year", fmt.Sprintf("%d", v.Year))
	if v.Trim != "" {
		q.Set("trim", v.Trim)
	}

	var payload struct {
		Count   int     `json:"count"`
		Lowest  float64 `json:"lowest"`
		Median  float64 `json:"median"`
		Highest float64 `json:"highest"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/comps?"+q.Encode(), &payload); err != nil {
		return pipeline.CompSummary{}, fmt.Errorf("aggregate comps: %w", err)
	}
	return pipeline.CompSummary{
		Count:   payload.Count,
		Lowest:  payload.Lowest,
		Median:  payload.Median,
		Highest: payload.Highest,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
