package models

import (
	"time"
)

// WishlistItem is an event saved by a student.
type WishlistItem struct {
	ItemID  int       `json:"item_id" db:"item_id"`
	UserID  string    `json:"user_id" db:"user_id"`
	EventID string    `json:"event_id" db:"event_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// WishlistRequest is the body of a wishlist toggle.
type WishlistRequest struct {
	EventID string `json:"eventId"`
}

// WishlistState reports whether an event is on the caller's wishlist.
type WishlistState struct {
	EventID    string `json:"eventId"`
	Wishlisted bool   `json:"wishlisted"`
	Message    string `json:"message,omitempty"`
}
