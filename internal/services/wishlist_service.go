package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"ms-discovery/internal/models"
)

// WishlistService stores the events each student has saved.
type WishlistService struct {
	DB *sql.DB
}

func NewWishlistService(db *sql.DB) *WishlistService {
	return &WishlistService{DB: db}
}

// Add saves eventID for userID. Adding twice is a no-op.
func (s *WishlistService) Add(ctx context.Context, userID, eventID string) error {
	query := `
        INSERT INTO wishlist_items (user_id, event_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, event_id) DO NOTHING
    `
	if _, err := s.DB.ExecContext(ctx, query, userID, eventID); err != nil {
		return fmt.Errorf("error adding event %s to wishlist of %s: %w", eventID, userID, err)
	}
	return nil
}

// Remove drops eventID from userID's wishlist.
func (s *WishlistService) Remove(ctx context.Context, userID, eventID string) error {
	query := `DELETE FROM wishlist_items WHERE user_id = $1 AND event_id = $2`
	if _, err := s.DB.ExecContext(ctx, query, userID, eventID); err != nil {
		return fmt.Errorf("error removing event %s from wishlist of %s: %w", eventID, userID, err)
	}
	return nil
}

// Contains reports whether eventID is on userID's wishlist.
func (s *WishlistService) Contains(ctx context.Context, userID, eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND event_id = $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking wishlist of %s: %w", userID, err)
	}
	return exists, nil
}

// Toggle adds eventID when absent and removes it when present. It returns
// whether the event is wishlisted afterwards.
func (s *WishlistService) Toggle(ctx context.Context, userID, eventID string) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var removed int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND event_id = $2 RETURNING item_id`,
		userID, eventID).Scan(&removed)

	wishlisted := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO wishlist_items (user_id, event_id) VALUES ($1, $2) ON CONFLICT (user_id, event_id) DO NOTHING`,
			userID, eventID)
		if err != nil {
			return false, fmt.Errorf("error adding event %s to wishlist of %s: %w", eventID, userID, err)
		}
		wishlisted = true
	case err != nil:
		return false, fmt.Errorf("error removing event %s from wishlist of %s: %w", eventID, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit wishlist toggle: %w", err)
	}

	log.Printf("Wishlist toggle for user %s event %s: wishlisted=%t", userID, eventID, wishlisted)
	return wishlisted, nil
}

// List returns userID's wishlist, most recently added first.
func (s *WishlistService) List(ctx context.Context, userID string) ([]models.WishlistItem, error) {
	query := `
        SELECT item_id, user_id, event_id, added_at
        FROM wishlist_items
        WHERE user_id = $1
        ORDER BY added_at DESC, item_id DESC
    `
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying wishlist of %s: %w", userID, err)
	}
	defer rows.Close()

	var items []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ItemID, &item.UserID, &item.EventID, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("error scanning wishlist row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListEventIDs returns the event ids on userID's wishlist.
func (s *WishlistService) ListEventIDs(ctx context.Context, userID string) ([]string, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EventID)
	}
	return ids, nil
}
