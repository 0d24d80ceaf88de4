package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pmorozov/vidhub/internal/handlers/middleware"
	"github.com/pmorozov/vidhub/internal/logger"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/service/auth"
	"github.com/pmorozov/vidhub/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	userService userService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	users := http.NewServeMux()

	users.Handle("POST /register", handleRegister(authService, logger))
	users.Handle("POST /login", handleLogin(authService, logger))
	users.Handle("POST /refresh-token", handleTokenRefresh(authService, logger))

	users.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	users.Handle("POST /change-password", withAuth(handleChangePassword(authService, logger)))
	users.Handle("GET /current-user", withAuth(handleCurrentUser()))
	users.Handle("PATCH /update-account", withAuth(handleUpdateAccount(userService, logger)))
	users.Handle("PATCH /avatar", withAuth(handleUpdateAvatar(userService, logger)))
	users.Handle("PATCH /cover-image", withAuth(handleUpdateCover(userService, logger)))
	users.Handle("GET /c/{username}", withAuth(handleChannelProfile(userService, logger)))
	users.Handle("GET /history", withAuth(handleWatchHistory(userService, logger)))
	users.Handle("POST /history/{videoID}", withAuth(handleRecordWatch(userService, logger)))

	subscriptions := http.NewServeMux()
	subscriptions.Handle("POST /c/{username}", withAuth(handleSubscribe(userService, logger)))
	subscriptions.Handle("DELETE /c/{username}", withAuth(handleUnsubscribe(userService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/v1/users/", http.StripPrefix("/api/v1/users", users))
	root.Handle("/api/v1/subscriptions/", http.StripPrefix("/api/v1/subscriptions", subscriptions))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with credentials and profile media.
	// Has to return apperrors.ErrUserAlreadyExists if username or email is taken
	Register(ctx context.Context, arg auth.RegisterParams) (models.User, error)

	// Login user with username or email plus password
	// Has to return apperrors.ErrUserNotFound if user not found
	Login(ctx context.Context, arg auth.LoginParams) (models.User, models.TokenPair, error)

	// Drop the stored refresh token so the session cannot be renewed
	Logout(ctx context.Context, userID uuid.UUID) error

	// Rotate the refresh token and issue a fresh pair
	// Reused or superseded tokens return apperrors.ErrRefreshTokenUsed
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Verify old password and store hash of the new one
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)

	// Get refresh token from request
	GetRefresh(r *http.Request) (string, error)

	// Set auth tokens (access, refresh) to response
	SetTokens(w http.ResponseWriter, pair models.TokenPair)

	// Expire auth cookies on response
	ClearTokens(w http.ResponseWriter)
}

type userService interface {
	UpdateAccount(ctx context.Context, userID uuid.UUID, arg user.UpdateAccountParams) (models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file *auth.FileUpload) (models.User, error)
	UpdateCover(ctx context.Context, userID uuid.UUID, file *auth.FileUpload) (models.User, error)
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	RecordWatch(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}
