package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ferremas-fulfillment/internal/broker"
	"ferremas-fulfillment/internal/models"
	"ferremas-fulfillment/internal/redisclient"
	"ferremas-fulfillment/internal/util"

	"go.uber.org/zap"
)

// ComparisonStore is the persistence surface the engine needs.
type ComparisonStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	InsertComparison(ctx context.Context, snap *models.PriceComparison) error
	GetComparisonsByUser(ctx context.Context, userID int64) ([]models.PriceComparison, error)
	GetAllComparisons(ctx context.Context) ([]models.PriceComparison, error)
}

// PriceFeed is the external competitor price collaborator.
type PriceFeed interface {
	FetchCompetitorPrices(ctx context.Context, productLabel string) ([]models.CompetitorPrice, error)
}

// ComparisonCache is the read-through cache over comparison results.
type ComparisonCache interface {
	GetComparison(ctx context.Context, productID int64) (*redisclient.CachedComparison, error)
	SetComparison(ctx context.Context, cached *redisclient.CachedComparison, ttl time.Duration) error
}

// ComparisonResult is what Compare returns: the local price, competitor
// results ordered by price, and when the data was fetched. Freshness is the
// caller's to interpret.
type ComparisonResult struct {
	ProductID     int64                    `json:"product_id"`
	ProductLabel  string                   `json:"product_label"`
	FerremasPrice int64                    `json:"ferremas_price"`
	Results       []models.CompetitorPrice `json:"results"`
	FetchedAt     time.Time                `json:"fetched_at"`
	FromCache     bool                     `json:"from_cache"`
}

// PricingService aggregates competitor prices and keeps the immutable
// comparison history log.
type PricingService struct {
	store    ComparisonStore
	feed     PriceFeed
	cache    ComparisonCache
	journal  *broker.Journal
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewPricingService creates a new price comparison engine
func NewPricingService(
	store ComparisonStore,
	feed PriceFeed,
	cache ComparisonCache,
	journal *broker.Journal,
	cacheTTL time.Duration,
) *PricingService {
	return &PricingService{
		store:    store,
		feed:     feed,
		cache:    cache,
		journal:  journal,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// Compare fetches the local Ferremas price and competitor prices for a
// product, read-through cached. Partial source failures shrink the result
// set; only a total feed failure aborts the comparison.
func (p *PricingService) Compare(ctx context.Context, productID int64) (*ComparisonResult, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.Compare")
	defer span.End()

	util.ComparisonsTotal.Inc()

	if p.cache != nil {
		cached, err := p.cache.GetComparison(ctx, productID)
		if err != nil {
			p.logger.Warn("Comparison cache read failed", zap.Error(err))
		} else if cached != nil {
			util.ComparisonCacheHits.Inc()
			return &ComparisonResult{
				ProductID:     cached.ProductID,
				ProductLabel:  cached.ProductLabel,
				FerremasPrice: cached.FerremasPrice,
				Results:       cached.Results,
				FetchedAt:     cached.FetchedAt,
				FromCache:     true,
			}, nil
		}
	}

	product, err := p.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	results, err := p.feed.FetchCompetitorPrices(ctx, product.Name)
	if err != nil {
		util.ComparisonSourceFailures.WithLabelValues("total").Inc()
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Price < results[j].Price })

	result := &ComparisonResult{
		ProductID:     productID,
		ProductLabel:  product.Name,
		FerremasPrice: product.Price,
		Results:       results,
		FetchedAt:     time.Now().UTC(),
	}

	if p.cache != nil {
		cached := &redisclient.CachedComparison{
			ProductID:     result.ProductID,
			ProductLabel:  result.ProductLabel,
			FerremasPrice: result.FerremasPrice,
			Results:       result.Results,
			FetchedAt:     result.FetchedAt,
		}
		if err := p.cache.SetComparison(ctx, cached, p.cacheTTL); err != nil {
			p.logger.Warn("Comparison cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

// SaveHistory appends an immutable snapshot of what the user was shown.
// Identical repeated queries produce repeated snapshots; the timeline is the
// point.
func (p *PricingService) SaveHistory(ctx context.Context, userID int64, productLabel string, ferremasPrice int64, results []models.CompetitorPrice) (*models.PriceComparison, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.SaveHistory")
	defer span.End()

	snap := &models.PriceComparison{
		UserID:        userID,
		ProductLabel:  productLabel,
		FerremasPrice: ferremasPrice,
		Results:       results,
	}
	if err := p.store.InsertComparison(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save comparison snapshot: %w", err)
	}

	if err := p.journal.ComparisonRecorded(ctx, snap); err != nil {
		p.logger.Error("Failed to journal ComparisonRecorded", zap.Error(err))
	}

	return snap, nil
}

// GetHistory returns the user's snapshots, most recent first.
func (p *PricingService) GetHistory(ctx context.Context, userID int64) ([]models.PriceComparison, error) {
	return p.store.GetComparisonsByUser(ctx, userID)
}

// GetHistoryAll returns every user's snapshots, most recent first. Callers
// must gate this behind the admin capability.
func (p *PricingService) GetHistoryAll(ctx context.Context) ([]models.PriceComparison, error) {
	return p.store.GetAllComparisons(ctx)
}
