package store

import (
	"context"
	"encoding/json"
	"fmt"

	"ferremas-fulfillment/internal/models"
)

// InsertComparison appends an immutable snapshot. Snapshots are never
// deduplicated; repeated identical queries produce repeated rows.
func (s *Store) InsertComparison(ctx context.Context, snap *models.PriceComparison) error {
	results, err := json.Marshal(snap.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison results: %w", err)
	}

	query := `
		INSERT INTO price_comparisons (user_id, product_label, ferremas_price, results)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query,
		snap.UserID, snap.ProductLabel, snap.FerremasPrice, results)
	return row.Scan(&snap.ID, &snap.CreatedAt)
}

// GetComparisonsByUser returns the user's snapshots, most recent first.
func (s *Store) GetComparisonsByUser(ctx context.Context, userID int64) ([]models.PriceComparison, error) {
	return s.selectComparisons(ctx,
		"SELECT * FROM price_comparisons WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

// GetAllComparisons returns every snapshot, most recent first. Admin path.
func (s *Store) GetAllComparisons(ctx context.Context) ([]models.PriceComparison, error) {
	return s.selectComparisons(ctx,
		"SELECT * FROM price_comparisons ORDER BY created_at DESC")
}

func (s *Store) selectComparisons(ctx context.Context, query string, args ...interface{}) ([]models.PriceComparison, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.PriceComparison
	for rows.Next() {
		var snap models.PriceComparison
		var results []byte
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.ProductLabel,
			&snap.FerremasPrice, &results, &snap.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(results, &snap.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comparison results: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
