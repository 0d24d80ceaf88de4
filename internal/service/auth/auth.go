package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
	"github.com/pmorozov/vidhub/internal/service/auth/tokenmanager"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAuthScheme        = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// AssetStore persists uploaded media and returns its public URL.
// An empty URL is treated as a failed upload.
type AssetStore interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// FileUpload is one file received from the transport layer.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type Config struct {
	// Hasher used during registration and login
	// Defaults to BcryptHasher
	Hasher PasswordHasher

	// Cookie names for issued tokens
	// Defaults are used when empty
	AccessCookieName  string
	RefreshCookieName string
}

// AuthService drives the session lifecycle: login, logout, refresh
// rotation and password changes. It is the only writer of the persisted
// refresh token.
type AuthService struct {
	tokens *tokenmanager.TokenManager
	hasher PasswordHasher
	users  repository.UserRepo
	assets AssetStore

	accessCookieName  string
	refreshCookieName string
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, users repository.UserRepo, assets AssetStore) (*AuthService, error) {
	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}
	if users == nil {
		return nil, errors.New("user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &AuthService{
		tokens:            tokens,
		hasher:            hasher,
		users:             users,
		assets:            assets,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

type RegisterParams struct {
	Email    string
	Username string
	FullName string
	Password string

	// Avatar is required, Cover is optional
	Avatar *FileUpload
	Cover  *FileUpload
}

// Register creates an identity record with a hashed password and uploaded
// media, and returns it sanitized.
func (s *AuthService) Register(ctx context.Context, arg RegisterParams) (models.User, error) {
	var user models.User

	fields := []struct {
		name  string
		value string
	}{
		{"email", arg.Email},
		{"username", arg.Username},
		{"fullName", arg.FullName},
		{"password", arg.Password},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return user, apperrors.FieldRequired(f.name)
		}
	}

	if arg.Avatar == nil {
		return user, apperrors.ErrAvatarRequired
	}

	// Early duplicate check to fail before any upload happens.
	// The unique constraints remain the authoritative backstop.
	for _, login := range []string{arg.Username, arg.Email} {
		_, err := s.users.GetUserByLogin(ctx, login)
		switch {
		case err == nil:
			return user, apperrors.ErrUserAlreadyExists
		case errors.Is(err, apperrors.ErrUserNotFound):
		default:
			return user, err
		}
	}

	avatarURL, err := s.upload(ctx, arg.Avatar)
	if err != nil || avatarURL == "" {
		return user, fmt.Errorf("avatar upload: %w", apperrors.ErrUploadFailed)
	}

	// Cover failure is tolerated, the profile just stays without it
	coverURL := ""
	if arg.Cover != nil {
		coverURL, _ = s.upload(ctx, arg.Cover)
	}

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password: %w", err)
	}

	user, err = s.users.CreateUser(ctx, repository.CreateUserParams{
		Username:       arg.Username,
		Email:          arg.Email,
		FullName:       strings.ToLower(arg.FullName),
		HashedPassword: hash,
		AvatarURL:      avatarURL,
		CoverURL:       coverURL,
	})
	if err != nil {
		return user, err
	}

	return user.Sanitized(), nil
}

type LoginParams struct {
	// One of Email or Username is required
	Email    string
	Username string

	Password string
}

// Login verifies credentials, persists a fresh refresh token (invalidating
// any previously stored one) and returns the sanitized user with the pair.
func (s *AuthService) Login(ctx context.Context, arg LoginParams) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	login := arg.Username
	if login == "" {
		login = arg.Email
	}
	if strings.TrimSpace(login) == "" {
		return models.User{}, pair, apperrors.ErrLoginRequired
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return models.User{}, pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, arg.Password); err != nil {
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.tokens.GeneratePair(user.ID)
	if err != nil {
		return models.User{}, pair, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.Refresh.Value); err != nil {
		return models.User{}, pair, err
	}

	return user.Sanitized(), pair, nil
}

// Logout clears the stored refresh token, making every refresh token
// issued for this user before now permanently unusable.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.users.ClearRefreshToken(ctx, userID)
}

// Refresh exchanges a valid refresh token for a new pair and rotates the
// stored value. A replayed token, even cryptographically valid and
// unexpired, fails once superseded.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	if refresh == "" {
		return pair, apperrors.ErrUnauthorized
	}

	userID, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return pair, fmt.Errorf("user gone: %w", apperrors.ErrRefreshTokenInvalid)
		}
		return pair, err
	}

	pair, err = s.tokens.GeneratePair(user.ID)
	if err != nil {
		return pair, err
	}

	// Single compare-and-swap: the presented token must still be the
	// stored one, otherwise it was superseded or cleared by logout
	if err := s.users.RotateRefreshToken(ctx, user.ID, refresh, pair.Refresh.Value); err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// ChangePassword re-hashes and stores the new password after verifying
// the old one. Existing sessions stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperrors.FieldRequired("newPassword")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, oldPassword); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password: %w", err)
	}

	return s.users.UpdatePassword(ctx, userID, hash)
}

// Auth resolves the inbound request to a sanitized user: this is the gate
// every protected operation goes through.
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access := s.accessTokenFromRequest(r)
	if access == "" {
		return user, apperrors.ErrUnauthorized
	}

	userID, err := s.tokens.ParseAccess(access)
	if err != nil {
		return user, err
	}

	// Covers users deleted after the token was issued
	user, err = s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return user, fmt.Errorf("user gone: %w", apperrors.ErrUnauthorized)
		}
		return user, err
	}

	return user.Sanitized(), nil
}

// The cookie carrier wins over the Authorization header
func (s *AuthService) accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(s.accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if scheme, token, found := strings.Cut(header, " "); found && scheme == defaultAuthScheme {
		return strings.TrimSpace(token)
	}

	return ""
}

// GetRefresh extracts the refresh token from the cookie or, as a
// fallback, from the Refresh-Token header for cookie-less clients.
func (s *AuthService) GetRefresh(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(s.refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.Header.Get("Refresh-Token"); token != "" {
		return token, nil
	}

	return "", apperrors.ErrUnauthorized
}

// SetTokens attaches both tokens to the response as http-only secure cookies.
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.tokenCookie(s.accessCookieName, pair.Access))
	http.SetCookie(w, s.tokenCookie(s.refreshCookieName, pair.Refresh))
}

// ClearTokens instructs the client to drop both token cookies.
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	expire := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		}
	}
	http.SetCookie(w, expire(s.accessCookieName))
	http.SetCookie(w, expire(s.refreshCookieName))
}

// SetTokenPairToRequest attaches tokens to an outgoing request the way a
// browser would return them. Used by tests and internal clients.
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.AddCookie(&http.Cookie{Name: s.accessCookieName, Value: pair.Access.Value})
	r.AddCookie(&http.Cookie{Name: s.refreshCookieName, Value: pair.Refresh.Value})
	r.Header.Set("Authorization", defaultAuthScheme+" "+pair.Access.Value)
}

func (s *AuthService) tokenCookie(name string, token models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(time.Until(token.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *AuthService) upload(ctx context.Context, file *FileUpload) (string, error) {
	if s.assets == nil {
		return "", fmt.Errorf("no asset store configured: %w", apperrors.ErrUploadFailed)
	}
	return s.assets.Upload(ctx, file.Name, file.Content, file.Size, file.ContentType)
}
