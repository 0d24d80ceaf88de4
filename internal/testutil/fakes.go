package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
)

// MemoryUserRepo is an in-memory credential store for unit tests that
// should not need a database container. Behaves like the postgres repo:
// unique username and email, single nullable refresh token, CAS rotation.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: map[uuid.UUID]models.User{}}
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username := strings.ToLower(arg.Username)
	email := strings.ToLower(arg.Email)

	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		Username:       username,
		Email:          email,
		FullName:       arg.FullName,
		HashedPassword: arg.HashedPassword,
		AvatarURL:      arg.AvatarURL,
		CoverURL:       arg.CoverURL,
	}
	r.users[user.ID] = user

	return user, nil
}

func (r *MemoryUserRepo) GetUserByID(_ context.Context, userID uuid.UUID) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryUserRepo) GetUserByLogin(_ context.Context, login string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	login = strings.ToLower(login)
	for _, u := range r.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (r *MemoryUserRepo) SetRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.RefreshToken = token
	r.users[userID] = user
	return nil
}

func (r *MemoryUserRepo) RotateRefreshToken(_ context.Context, userID uuid.UUID, current string, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok || user.RefreshToken != current || current == "" {
		return apperrors.ErrRefreshTokenUsed
	}
	user.RefreshToken = next
	r.users[userID] = user
	return nil
}

func (r *MemoryUserRepo) ClearRefreshToken(_ context.Context, userID uuid.UUID) error {
	return r.SetRefreshToken(context.Background(), userID, "")
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, userID uuid.UUID, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.HashedPassword = hashedPassword
	r.users[userID] = user
	return nil
}

func (r *MemoryUserRepo) UpdateAccount(_ context.Context, userID uuid.UUID, arg repository.UpdateAccountParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.FullName = arg.FullName
	user.Email = strings.ToLower(arg.Email)
	r.users[userID] = user
	return user, nil
}

func (r *MemoryUserRepo) SetAvatarURL(_ context.Context, userID uuid.UUID, url string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.AvatarURL = url
	r.users[userID] = user
	return user, nil
}

func (r *MemoryUserRepo) SetCoverURL(_ context.Context, userID uuid.UUID, url string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.CoverURL = url
	r.users[userID] = user
	return user, nil
}

// StoredRefreshToken peeks at the persisted token, for assertions only.
func (r *MemoryUserRepo) StoredRefreshToken(userID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID].RefreshToken
}

// MemorySubscriptionRepo keeps the subscriber -> channel graph in memory.
// Channel usernames resolve through the attached MemoryUserRepo.
type MemorySubscriptionRepo struct {
	mu    sync.Mutex
	Users *MemoryUserRepo
	edges map[[2]uuid.UUID]struct{}
}

func NewMemorySubscriptionRepo(users *MemoryUserRepo) *MemorySubscriptionRepo {
	return &MemorySubscriptionRepo{
		Users: users,
		edges: map[[2]uuid.UUID]struct{}{},
	}
}

func (r *MemorySubscriptionRepo) Subscribe(_ context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.edges[[2]uuid.UUID{subscriberID, channelID}] = struct{}{}
	return nil
}

func (r *MemorySubscriptionRepo) Unsubscribe(_ context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges, [2]uuid.UUID{subscriberID, channelID})
	return nil
}

func (r *MemorySubscriptionRepo) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	channel, err := r.Users.GetUserByLogin(ctx, username)
	if err != nil {
		return models.ChannelProfile{}, apperrors.ErrChannelNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	profile := models.ChannelProfile{
		Username:  channel.Username,
		FullName:  channel.FullName,
		AvatarURL: channel.AvatarURL,
		CoverURL:  channel.CoverURL,
	}
	for edge := range r.edges {
		if edge[1] == channel.ID {
			profile.SubscriberCount++
			if edge[0] == viewerID {
				profile.IsSubscribed = true
			}
		}
		if edge[0] == channel.ID {
			profile.SubscribedToCount++
		}
	}

	return profile, nil
}

// MemoryHistoryRepo keeps per-user watch history in memory, newest first.
type MemoryHistoryRepo struct {
	mu      sync.Mutex
	Users   *MemoryUserRepo
	Videos  map[uuid.UUID]models.Video
	watches map[uuid.UUID][]watch
}

type watch struct {
	videoID   uuid.UUID
	watchedAt time.Time
}

func NewMemoryHistoryRepo(users *MemoryUserRepo) *MemoryHistoryRepo {
	return &MemoryHistoryRepo{
		Users:   users,
		Videos:  map[uuid.UUID]models.Video{},
		watches: map[uuid.UUID][]watch{},
	}
}

func (r *MemoryHistoryRepo) RecordWatch(_ context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Videos[videoID]; !ok {
		return apperrors.ErrVideoNotFound
	}

	entries := r.watches[userID]
	for i := range entries {
		if entries[i].videoID == videoID {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	r.watches[userID] = append([]watch{{videoID: videoID, watchedAt: time.Now()}}, entries...)
	return nil
}

func (r *MemoryHistoryRepo) ListWatched(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watched := make([]models.WatchedVideo, 0, len(r.watches[userID]))
	for _, w := range r.watches[userID] {
		video := r.Videos[w.videoID]

		var owner models.VideoOwner
		if u, err := r.Users.GetUserByID(ctx, video.OwnerID); err == nil {
			owner = models.VideoOwner{Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL}
		}

		watched = append(watched, models.WatchedVideo{Video: video, Owner: owner, WatchedAt: w.watchedAt})
	}

	return watched, nil
}

// MemoryAssetStore fakes uploads. With Fail set every upload errors,
// with ReturnEmptyURL set it reports success with no usable reference.
type MemoryAssetStore struct {
	mu             sync.Mutex
	Fail           bool
	ReturnEmptyURL bool
	Uploaded       []string
}

func (s *MemoryAssetStore) Upload(_ context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail {
		return "", fmt.Errorf("asset store is down")
	}
	if s.ReturnEmptyURL {
		return "", nil
	}

	s.Uploaded = append(s.Uploaded, name)
	return "https://assets.test/" + name, nil
}
