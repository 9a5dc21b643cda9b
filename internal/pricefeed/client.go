// Package pricefeed fetches competitor prices from a set of external store
// APIs. Sources fail independently: one bad source drops out of the result
// set, and only a total failure surfaces as an error.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/models"

	"go.uber.org/zap"
)

// Source is one competitor price API.
type Source struct {
	Name string
	URL  string
}

type Client struct {
	sources []Source
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a price feed client over the configured sources.
func NewClient(sources []Source, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		sources: sources,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchCompetitorPrices queries every source concurrently for the product
// label. Per-source failures are logged and omitted from the result; if no
// source is reachable the whole fetch fails.
func (c *Client) FetchCompetitorPrices(ctx context.Context, productLabel string) ([]models.CompetitorPrice, error) {
	if len(c.sources) == 0 {
		return nil, apperrors.PriceFeedUnavailable(fmt.Errorf("no sources configured"))
	}

	var (
		mu      sync.Mutex
		results []models.CompetitorPrice
		lastErr error
		wg      sync.WaitGroup
	)

	for _, source := range c.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			price, err := c.fetchOne(ctx, src, productLabel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				c.logger.Warn("Price source failed",
					zap.String("source", src.Name),
					zap.Error(err))
				return
			}
			results = append(results, price)
		}(source)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, apperrors.PriceFeedUnavailable(lastErr)
	}
	return results, nil
}

type sourceResponse struct {
	Store string `json:"store"`
	Price int64  `json:"price"`
	URL   string `json:"url"`
}

func (c *Client) fetchOne(ctx context.Context, src Source, productLabel string) (models.CompetitorPrice, error) {
	endpoint := fmt.Sprintf("%s?product=%s", src.URL, url.QueryEscape(productLabel))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.CompetitorPrice{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.CompetitorPrice{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.CompetitorPrice{}, fmt.Errorf("source %s returned %d", src.Name, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CompetitorPrice{}, err
	}

	var parsed sourceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return models.CompetitorPrice{}, fmt.Errorf("source %s sent malformed body: %w", src.Name, err)
	}
	if parsed.Price <= 0 {
		return models.CompetitorPrice{}, fmt.Errorf("source %s sent non-positive price", src.Name)
	}

	store := parsed.Store
	if store == "" {
		store = src.Name
	}
	return models.CompetitorPrice{Store: store, Price: parsed.Price, URL: parsed.URL}, nil
}
