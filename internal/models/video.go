package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Video is the minimal media record needed for watch history.
type Video struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`

	Title        string `json:"title"`
	VideoURL     string `json:"videoFile"`
	ThumbnailURL string `json:"thumbnail"`

	// Duration in seconds, fractional as reported by the asset pipeline
	Duration decimal.Decimal `json:"duration"`
	Views    int64           `json:"views"`
}

// VideoOwner is the summary of an uploader attached to history entries.
type VideoOwner struct {
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// WatchedVideo is one watch history entry, newest first in listings.
type WatchedVideo struct {
	Video     Video      `json:"video"`
	Owner     VideoOwner `json:"owner"`
	WatchedAt time.Time  `json:"watchedAt"`
}
