package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
)

type HistoryRepo struct {
	DB DBTX
}

const recordWatch = `-- name: RecordWatch
INSERT INTO watch_history (user_id, video_id)
VALUES ($1, $2)
ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = clock_timestamp()
`

// RecordWatch bumps the entry to the top of the history on a rewatch
func (r *HistoryRepo) RecordWatch(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, recordWatch, userID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("repo error: %w", apperrors.ErrVideoNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const listWatched = `-- name: ListWatched
SELECT
	v.id, v.owner_id, v.created_at, v.title, v.video_url, v.thumbnail_url, v.duration, v.views,
	o.username, o.full_name, o.avatar_url,
	h.watched_at
FROM watch_history h
JOIN videos v ON v.id = h.video_id
JOIN users o ON o.id = v.owner_id
WHERE h.user_id = $1
ORDER BY h.watched_at DESC
`

func (r *HistoryRepo) ListWatched(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	rows, _ := r.DB.Query(ctx, listWatched, userID)
	watched, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WatchedVideo, error) {
		var w models.WatchedVideo
		err := row.Scan(
			&w.Video.ID, &w.Video.OwnerID, &w.Video.CreatedAt, &w.Video.Title, &w.Video.VideoURL,
			&w.Video.ThumbnailURL, &w.Video.Duration, &w.Video.Views,
			&w.Owner.Username, &w.Owner.FullName, &w.Owner.AvatarURL,
			&w.WatchedAt,
		)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return watched, nil
}
