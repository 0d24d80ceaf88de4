package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pmorozov/vidhub/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FullName       string
	HashedPassword string
	AvatarURL      string
	CoverURL       string
}

type UpdateAccountParams struct {
	FullName string
	Email    string
}

// UserRepo is the credential store.
// It exclusively owns the persisted refresh token field: callers mutate it
// only through Set/Rotate/Clear and never cache its value.
type UserRepo interface {
	// Create user record
	// Must return apperrors.ErrUserAlreadyExists on duplicate username or email
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or by login (username or email, case-insensitive)
	// Must return apperrors.ErrUserNotFound if no record matches
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)

	// SetRefreshToken overwrites the stored refresh token unconditionally,
	// invalidating whatever was stored before
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string) error

	// RotateRefreshToken swaps current for next in a single conditional
	// update. Must return apperrors.ErrRefreshTokenUsed when the stored
	// value no longer equals current (the token was superseded or cleared).
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, current string, next string) error

	// ClearRefreshToken unsets the stored token. Clearing an already
	// cleared token is not an error.
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) error

	// UpdatePassword stores a new password hash
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Profile mutations, each returns the updated record
	UpdateAccount(ctx context.Context, userID uuid.UUID, arg UpdateAccountParams) (models.User, error)
	SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error)
	SetCoverURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error)
}

// SubscriptionRepo stores the subscriber -> channel graph.
type SubscriptionRepo interface {
	// Subscribe is idempotent: subscribing twice keeps a single edge
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error

	// GetChannelProfile aggregates subscription counts for the channel with
	// the given username. viewerID may be uuid.Nil for anonymous viewers.
	// Must return apperrors.ErrChannelNotFound if no such user
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error)
}

type CreateVideoParams struct {
	OwnerID      uuid.UUID
	Title        string
	VideoURL     string
	ThumbnailURL string
	Duration     decimal.Decimal // seconds
}

type VideoRepo interface {
	CreateVideo(ctx context.Context, arg CreateVideoParams) (models.Video, error)

	// Must return apperrors.ErrVideoNotFound if no record matches
	GetVideoByID(ctx context.Context, videoID uuid.UUID) (models.Video, error)
}

// HistoryRepo stores per-user watch history.
type HistoryRepo interface {
	// RecordWatch appends or refreshes the entry for (user, video)
	RecordWatch(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error

	// ListWatched returns history newest first with owner summaries joined in
	ListWatched(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}

// Storage bundles all repositories over one connection or transaction.
type Storage interface {
	User() UserRepo
	Subscription() SubscriptionRepo
	Video() VideoRepo
	History() HistoryRepo

	// InTx runs fn with a Storage bound to a single database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
