package handlers

import (
	"net/http"

	"github.com/pmorozov/vidhub/internal/handlers/render"
	"github.com/pmorozov/vidhub/internal/handlers/userctx"
	"github.com/pmorozov/vidhub/internal/logger"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/service/auth"
)

// Limit for multipart forms carrying avatar and cover uploads
const maxUploadMemory = 32 << 20

// fileFromForm extracts a named file from a parsed multipart form.
// Returns nil if the file was not sent.
func fileFromForm(r *http.Request, field string) *auth.FileUpload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}

	return &auth.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
}

func handleRegister(s authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			render.JSON(w, http.StatusBadRequest, nil, "Failed to parse multipart form")
			return
		}

		user, err := s.Register(r.Context(), auth.RegisterParams{
			Email:    r.FormValue("email"),
			Username: r.FormValue("username"),
			FullName: r.FormValue("fullName"),
			Password: r.FormValue("password"),
			Avatar:   fileFromForm(r, "avatar"),
			Cover:    fileFromForm(r, "coverImage"),
		})
		if err != nil {
			l.Info("registration rejected", "error", err.Error())
			render.Error(w, err)
			return
		}

		render.JSON(w, http.StatusCreated, user, "User registered successfully")
	})
}

func handleLogin(s authService, l logger.Logger) http.Handler {
	type loginRequest struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password" validate:"required"`
	}
	type loginResponse struct {
		User         models.User `json:"user"`
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[loginRequest](w, r)
		if err != nil {
			return
		}

		user, pair, err := s.Login(r.Context(), auth.LoginParams{
			Email:    data.Email,
			Username: data.Username,
			Password: data.Password,
		})
		if err != nil {
			l.Info("login rejected", "error", err.Error())
			render.Error(w, err)
			return
		}

		s.SetTokens(w, pair)
		render.OK(w, loginResponse{
			User:         user,
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		}, "User logged in successfully")
	})
}

func handleLogout(s authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.JSON(w, http.StatusUnauthorized, nil, "unauthorized request")
			return
		}

		if err := s.Logout(r.Context(), user.ID); err != nil {
			l.Error("logout failed", "user_id", user.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		s.ClearTokens(w)
		render.OK(w, nil, "User logged out successfully")
	})
}

func handleTokenRefresh(s authService, l logger.Logger) http.Handler {
	type refreshResponse struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := s.GetRefresh(r)
		if err != nil {
			render.Error(w, err)
			return
		}

		pair, err := s.Refresh(r.Context(), refresh)
		if err != nil {
			l.Info("token refresh rejected", "error", err.Error())
			render.Error(w, err)
			return
		}

		s.SetTokens(w, pair)
		render.OK(w, refreshResponse{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		}, "Tokens refreshed successfully")
	})
}

func handleChangePassword(s authService, l logger.Logger) http.Handler {
	type changePasswordRequest struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.JSON(w, http.StatusUnauthorized, nil, "unauthorized request")
			return
		}

		data, err := render.BindAndValidate[changePasswordRequest](w, r)
		if err != nil {
			return
		}

		if err := s.ChangePassword(r.Context(), user.ID, data.OldPassword, data.NewPassword); err != nil {
			l.Info("password change rejected", "user_id", user.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, nil, "Password changed successfully")
	})
}

func handleCurrentUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.OK(w, user, "Current user fetched successfully")
	})
}
