package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/handlers/render"
	"github.com/pmorozov/vidhub/internal/handlers/userctx"
	"github.com/pmorozov/vidhub/internal/logger"
	"github.com/pmorozov/vidhub/internal/service/user"
)

func handleUpdateAccount(s userService, l logger.Logger) http.Handler {
	type updateAccountRequest struct {
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[updateAccountRequest](w, r)
		if err != nil {
			return
		}

		updated, err := s.UpdateAccount(r.Context(), u.ID, user.UpdateAccountParams{
			FullName: data.FullName,
			Email:    data.Email,
		})
		if err != nil {
			l.Info("account update rejected", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, updated, "Account details updated successfully")
	})
}

func handleUpdateAvatar(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			render.JSON(w, http.StatusBadRequest, nil, "Failed to parse multipart form")
			return
		}

		file := fileFromForm(r, "avatar")
		if file == nil {
			render.Error(w, apperrors.ErrAvatarRequired)
			return
		}

		updated, err := s.UpdateAvatar(r.Context(), u.ID, file)
		if err != nil {
			l.Info("avatar update rejected", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, updated, "Avatar updated successfully")
	})
}

func handleUpdateCover(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			render.JSON(w, http.StatusBadRequest, nil, "Failed to parse multipart form")
			return
		}

		file := fileFromForm(r, "coverImage")
		if file == nil {
			render.JSON(w, http.StatusBadRequest, nil, "Cover image file is required")
			return
		}

		updated, err := s.UpdateCover(r.Context(), u.ID, file)
		if err != nil {
			l.Info("cover update rejected", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, updated, "Cover image updated successfully")
	})
}

func handleChannelProfile(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		profile, err := s.GetChannelProfile(r.Context(), r.PathValue("username"), u.ID)
		if err != nil {
			l.Info("channel profile fetch failed", "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, profile, "Channel profile fetched successfully")
	})
}

func handleSubscribe(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		if err := s.Subscribe(r.Context(), u.ID, r.PathValue("username")); err != nil {
			l.Info("subscribe failed", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, nil, "Subscribed successfully")
	})
}

func handleUnsubscribe(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		if err := s.Unsubscribe(r.Context(), u.ID, r.PathValue("username")); err != nil {
			l.Info("unsubscribe failed", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, nil, "Unsubscribed successfully")
	})
}

func handleRecordWatch(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		videoID, err := uuid.Parse(r.PathValue("videoID"))
		if err != nil {
			render.JSON(w, http.StatusBadRequest, nil, "Invalid video id")
			return
		}

		if err := s.RecordWatch(r.Context(), u.ID, videoID); err != nil {
			l.Info("watch record failed", "user_id", u.ID, "video_id", videoID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, nil, "Watch history updated successfully")
	})
}

func handleWatchHistory(s userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		history, err := s.WatchHistory(r.Context(), u.ID)
		if err != nil {
			l.Error("watch history fetch failed", "user_id", u.ID, "error", err.Error())
			render.Error(w, err)
			return
		}

		render.OK(w, history, "Watch history fetched successfully")
	})
}
