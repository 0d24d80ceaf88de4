package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/service/auth/tokenmanager"
	"github.com/pmorozov/vidhub/internal/testutil"
)

type testEnv struct {
	service *AuthService
	users   *testutil.MemoryUserRepo
	assets  *testutil.MemoryAssetStore
}

func newTestEnv(t *testing.T, cfg tokenmanager.Config) testEnv {
	t.Helper()

	if cfg.AccessSecret == "" {
		cfg.AccessSecret = "test-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "test-refresh-secret"
	}

	tokens, err := tokenmanager.New(cfg)
	require.NoError(t, err, "token manager should be created without errors")

	users := testutil.NewMemoryUserRepo()
	assets := &testutil.MemoryAssetStore{}

	s, err := NewService(Config{}, tokens, users, assets)
	require.NoError(t, err, "auth service should be created without errors")

	return testEnv{service: s, users: users, assets: assets}
}

func avatar() *FileUpload {
	return &FileUpload{
		Name:        "avatar.png",
		ContentType: "image/png",
		Size:        4,
		Content:     strings.NewReader("data"),
	}
}

func registerParams() RegisterParams {
	return RegisterParams{
		Email:    "a@x.com",
		Username: "abc",
		FullName: "Abc",
		Password: "p1",
		Avatar:   avatar(),
	}
}

func Test_Register(t *testing.T) {
	t.Parallel()

	t.Run("new user ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		user, err := env.service.Register(t.Context(), registerParams())

		require.NoError(t, err)
		assert.Equal(t, "abc", user.Username)
		assert.Equal(t, "a@x.com", user.Email)
		assert.Equal(t, "abc", user.FullName, "full name should be lowercased")
		assert.Equal(t, "https://assets.test/avatar.png", user.AvatarURL)
		assert.Empty(t, user.CoverURL, "no cover was uploaded")
	})

	t.Run("returned record never leaks credentials", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		user, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)

		assert.Empty(t, user.HashedPassword)
		assert.Empty(t, user.RefreshToken)

		raw, err := json.Marshal(user)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "password")
		assert.NotContains(t, string(raw), "refresh")
	})

	t.Run("empty fields rejected", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*RegisterParams)
		}{
			{"empty email", func(p *RegisterParams) { p.Email = " " }},
			{"empty username", func(p *RegisterParams) { p.Username = "" }},
			{"empty full name", func(p *RegisterParams) { p.FullName = "\t" }},
			{"empty password", func(p *RegisterParams) { p.Password = "" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := newTestEnv(t, tokenmanager.Config{})

				params := registerParams()
				tt.mutate(&params)

				_, err := env.service.Register(t.Context(), params)
				require.ErrorIs(t, err, apperrors.ErrFieldRequired)
			})
		}
	})

	t.Run("avatar required", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		params := registerParams()
		params.Avatar = nil

		_, err := env.service.Register(t.Context(), params)
		require.ErrorIs(t, err, apperrors.ErrAvatarRequired)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		_, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)

		params := registerParams()
		params.Email = "other@x.com"
		params.Avatar = avatar()

		_, err = env.service.Register(t.Context(), params)
		require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		_, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)

		params := registerParams()
		params.Username = "other"
		params.Avatar = avatar()

		_, err = env.service.Register(t.Context(), params)
		require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("failed avatar upload", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		env.assets.Fail = true

		_, err := env.service.Register(t.Context(), registerParams())
		require.ErrorIs(t, err, apperrors.ErrUploadFailed)
	})

	t.Run("upload without usable reference", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		env.assets.ReturnEmptyURL = true

		_, err := env.service.Register(t.Context(), registerParams())
		require.ErrorIs(t, err, apperrors.ErrUploadFailed)
	})

	t.Run("cover upload failure tolerated", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		params := registerParams()
		params.Cover = &FileUpload{Name: "cover.png", ContentType: "image/png", Size: 4, Content: strings.NewReader("data")}

		user, err := env.service.Register(t.Context(), params)

		require.NoError(t, err)
		assert.Equal(t, "https://assets.test/cover.png", user.CoverURL)
	})
}

func Test_Login(t *testing.T) {
	t.Parallel()

	register := func(t *testing.T, env testEnv) models.User {
		t.Helper()
		user, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)
		return user
	}

	t.Run("by username ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		user, pair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})

		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access.Value)
		assert.NotEmpty(t, pair.Refresh.Value)
		assert.Empty(t, user.HashedPassword, "returned user should be sanitized")
		assert.Empty(t, user.RefreshToken, "returned user should be sanitized")
	})

	t.Run("by email ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		_, _, err := env.service.Login(t.Context(), LoginParams{Email: "a@x.com", Password: "p1"})
		require.NoError(t, err)
	})

	t.Run("issued refresh token is persisted", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		registered := register(t, env)

		_, pair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})

		require.NoError(t, err)
		assert.Equal(t, pair.Refresh.Value, env.users.StoredRefreshToken(registered.ID), "stored token must equal the issued one")
	})

	t.Run("second login invalidates prior refresh token", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		_, firstPair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.NoError(t, err)

		_, _, err = env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.NoError(t, err)

		_, err = env.service.Refresh(t.Context(), firstPair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenUsed)
	})

	t.Run("no identifier fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		_, _, err := env.service.Login(t.Context(), LoginParams{Password: "p1"})
		require.ErrorIs(t, err, apperrors.ErrLoginRequired)
	})

	t.Run("unknown user fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		_, _, err := env.service.Login(t.Context(), LoginParams{Username: "nobody", Password: "p1"})
		require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("wrong password fails with auth error", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		register(t, env)

		_, _, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "wrong"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}

func Test_Refresh(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, env testEnv) (models.User, models.TokenPair) {
		t.Helper()
		_, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)
		user, pair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.NoError(t, err)
		return user, pair
	}

	t.Run("refresh once ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		_, pair := login(t, env)

		newPair, err := env.service.Refresh(t.Context(), pair.Refresh.Value)

		require.NoError(t, err)
		require.NotEqual(t, pair.Access.Value, newPair.Access.Value, "new access token should be different")
		require.NotEqual(t, pair.Refresh.Value, newPair.Refresh.Value, "new refresh token should be different")
	})

	t.Run("sequential refresh chain works", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		_, pair := login(t, env)

		current := pair.Refresh.Value
		for range 3 {
			newPair, err := env.service.Refresh(t.Context(), current)
			require.NoError(t, err)
			require.NotEqual(t, current, newPair.Refresh.Value, "every rotation must yield a new token")
			current = newPair.Refresh.Value
		}
	})

	t.Run("superseded token rejected even when unexpired", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		_, pair := login(t, env)

		_, err := env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.NoError(t, err)

		// Cryptographically the replayed token is still perfectly valid
		_, err = env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenUsed)
	})

	t.Run("missing token fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		login(t, env)

		_, err := env.service.Refresh(t.Context(), "")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired token fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{RefreshTTL: -time.Minute})
		_, pair := login(t, env)

		_, err := env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
	})

	t.Run("token signed with wrong secret fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		other := newTestEnv(t, tokenmanager.Config{RefreshSecret: "different"})
		_, pair := login(t, other)

		_, err := env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
	})

	t.Run("after logout fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user, pair := login(t, env)

		require.NoError(t, env.service.Logout(t.Context(), user.ID))
		require.Empty(t, env.users.StoredRefreshToken(user.ID), "logout should clear the stored token")

		_, err := env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenUsed)
	})
}

func Test_ChangePassword(t *testing.T) {
	t.Parallel()

	register := func(t *testing.T, env testEnv) models.User {
		t.Helper()
		user, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)
		return user
	}

	t.Run("ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user := register(t, env)

		err := env.service.ChangePassword(t.Context(), user.ID, "p1", "p2")
		require.NoError(t, err)

		_, _, err = env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p2"})
		require.NoError(t, err, "login with the new password should work")

		_, _, err = env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials, "old password should not work anymore")
	})

	t.Run("wrong old password fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user := register(t, env)

		err := env.service.ChangePassword(t.Context(), user.ID, "wrong", "p2")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("sessions survive a password change", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user := register(t, env)

		_, pair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.NoError(t, err)

		require.NoError(t, env.service.ChangePassword(t.Context(), user.ID, "p1", "p2"))

		_, err = env.service.Refresh(t.Context(), pair.Refresh.Value)
		require.NoError(t, err, "refresh token stays valid after a password change")
	})
}

func Test_AuthGuard(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, env testEnv) (models.User, models.TokenPair) {
		t.Helper()
		_, err := env.service.Register(t.Context(), registerParams())
		require.NoError(t, err)
		user, pair, err := env.service.Login(t.Context(), LoginParams{Username: "abc", Password: "p1"})
		require.NoError(t, err)
		return user, pair
	}

	newRequest := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/protected", nil)
	}

	t.Run("cookie carrier ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user, pair := login(t, env)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.Access.Value})

		resolved, err := env.service.Auth(t.Context(), req)

		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Empty(t, resolved.HashedPassword, "resolved user should be sanitized")
	})

	t.Run("bearer header carrier ok", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		user, pair := login(t, env)

		req := newRequest()
		req.Header.Set("Authorization", "Bearer "+pair.Access.Value)

		resolved, err := env.service.Auth(t.Context(), req)

		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
	})

	t.Run("cookie preferred over header", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		_, pair := login(t, env)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.Access.Value})
		req.Header.Set("Authorization", "Bearer garbage")

		_, err := env.service.Auth(t.Context(), req)
		require.NoError(t, err, "valid cookie should win over the broken header")
	})

	t.Run("no token fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		login(t, env)

		_, err := env.service.Auth(t.Context(), newRequest())
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired token fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{AccessTTL: -time.Minute})
		_, pair := login(t, env)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.Access.Value})

		_, err := env.service.Auth(t.Context(), req)
		require.ErrorIs(t, err, apperrors.ErrAccessTokenInvalid)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		other := newTestEnv(t, tokenmanager.Config{AccessSecret: "different"})
		_, pair := login(t, other)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.Access.Value})

		_, err := env.service.Auth(t.Context(), req)
		require.ErrorIs(t, err, apperrors.ErrAccessTokenInvalid)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})
		_, pair := login(t, env)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.Refresh.Value})

		_, err := env.service.Auth(t.Context(), req)
		require.ErrorIs(t, err, apperrors.ErrAccessTokenInvalid)
	})

	t.Run("deleted user fails", func(t *testing.T) {
		env := newTestEnv(t, tokenmanager.Config{})

		tokens, err := tokenmanager.New(tokenmanager.Config{AccessSecret: "test-access-secret", RefreshSecret: "test-refresh-secret"})
		require.NoError(t, err)

		// Token for a user that was never stored
		access, err := tokens.IssueAccess(uuid.New())
		require.NoError(t, err)

		req := newRequest()
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: access.Value})

		_, err = env.service.Auth(t.Context(), req)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}
