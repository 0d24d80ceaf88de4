package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
)

type VideoRepo struct {
	DB DBTX
}

const videoColumns = `id, owner_id, created_at, title, video_url, thumbnail_url, duration, views`

const createVideo = `-- name: CreateVideo
INSERT INTO videos (owner_id, title, video_url, thumbnail_url, duration)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + videoColumns

func (r *VideoRepo) CreateVideo(ctx context.Context, arg repository.CreateVideoParams) (models.Video, error) {
	rows, _ := r.DB.Query(ctx, createVideo, arg.OwnerID, arg.Title, arg.VideoURL, arg.ThumbnailURL, arg.Duration)
	video, err := pgx.CollectOneRow(rows, rowToVideo)
	if err != nil {
		return video, fmt.Errorf("db error: %w", err)
	}
	return video, nil
}

const getVideoByID = `-- name: GetVideoByID
SELECT ` + videoColumns + ` FROM videos
WHERE id = $1
`

func (r *VideoRepo) GetVideoByID(ctx context.Context, videoID uuid.UUID) (models.Video, error) {
	rows, _ := r.DB.Query(ctx, getVideoByID, videoID)
	video, err := pgx.CollectOneRow(rows, rowToVideo)

	switch {
	case err == nil:
		return video, nil
	case errors.Is(err, pgx.ErrNoRows):
		return video, fmt.Errorf("repo error: %w", apperrors.ErrVideoNotFound)
	default:
		return video, fmt.Errorf("db error: %w", err)
	}
}

func rowToVideo(row pgx.CollectableRow) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.CreatedAt, &v.Title, &v.VideoURL, &v.ThumbnailURL, &v.Duration, &v.Views)
	return v, err
}
