package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
	"github.com/pmorozov/vidhub/internal/service/auth"
)

// UserService covers the profile surface: account and media updates,
// the channel aggregates and watch history. Session concerns stay in the
// auth service.
type UserService struct {
	users         repository.UserRepo
	subscriptions repository.SubscriptionRepo
	history       repository.HistoryRepo
	assets        auth.AssetStore
}

func NewService(users repository.UserRepo, subscriptions repository.SubscriptionRepo, history repository.HistoryRepo, assets auth.AssetStore) *UserService {
	return &UserService{
		users:         users,
		subscriptions: subscriptions,
		history:       history,
		assets:        assets,
	}
}

type UpdateAccountParams struct {
	FullName string
	Email    string
}

func (s *UserService) UpdateAccount(ctx context.Context, userID uuid.UUID, arg UpdateAccountParams) (models.User, error) {
	if strings.TrimSpace(arg.FullName) == "" {
		return models.User{}, apperrors.FieldRequired("fullName")
	}
	if strings.TrimSpace(arg.Email) == "" {
		return models.User{}, apperrors.FieldRequired("email")
	}

	user, err := s.users.UpdateAccount(ctx, userID, repository.UpdateAccountParams{
		FullName: arg.FullName,
		Email:    arg.Email,
	})
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *auth.FileUpload) (models.User, error) {
	if file == nil {
		return models.User{}, apperrors.ErrAvatarRequired
	}

	url, err := s.assets.Upload(ctx, file.Name, file.Content, file.Size, file.ContentType)
	if err != nil || url == "" {
		return models.User{}, fmt.Errorf("avatar upload: %w", apperrors.ErrUploadFailed)
	}

	user, err := s.users.SetAvatarURL(ctx, userID, url)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

func (s *UserService) UpdateCover(ctx context.Context, userID uuid.UUID, file *auth.FileUpload) (models.User, error) {
	if file == nil {
		return models.User{}, apperrors.FieldRequired("coverImage")
	}

	url, err := s.assets.Upload(ctx, file.Name, file.Content, file.Size, file.ContentType)
	if err != nil || url == "" {
		return models.User{}, fmt.Errorf("cover upload: %w", apperrors.ErrUploadFailed)
	}

	user, err := s.users.SetCoverURL(ctx, userID, url)
	if err != nil {
		return models.User{}, err
	}

	return user.Sanitized(), nil
}

// GetChannelProfile returns the channel view of a user with subscription
// aggregates. viewerID may be uuid.Nil for anonymous viewers.
func (s *UserService) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	if strings.TrimSpace(username) == "" {
		return models.ChannelProfile{}, apperrors.FieldRequired("username")
	}

	return s.subscriptions.GetChannelProfile(ctx, username, viewerID)
}

func (s *UserService) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	channel, err := s.channelByUsername(ctx, channelUsername)
	if err != nil {
		return err
	}

	return s.subscriptions.Subscribe(ctx, subscriberID, channel.ID)
}

func (s *UserService) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	channel, err := s.channelByUsername(ctx, channelUsername)
	if err != nil {
		return err
	}

	return s.subscriptions.Unsubscribe(ctx, subscriberID, channel.ID)
}

func (s *UserService) RecordWatch(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	return s.history.RecordWatch(ctx, userID, videoID)
}

func (s *UserService) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	return s.history.ListWatched(ctx, userID)
}

func (s *UserService) channelByUsername(ctx context.Context, username string) (models.User, error) {
	channel, err := s.users.GetUserByLogin(ctx, username)
	if err != nil {
		return channel, fmt.Errorf("channel %q: %w", username, apperrors.ErrChannelNotFound)
	}
	return channel, nil
}
