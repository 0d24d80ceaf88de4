package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
	"github.com/pmorozov/vidhub/internal/repository"
	"github.com/pmorozov/vidhub/internal/testutil"
)

func createTestVideo(t *testing.T, r *VideoRepo, ownerID uuid.UUID, title string) models.Video {
	t.Helper()

	video, err := r.CreateVideo(t.Context(), repository.CreateVideoParams{
		OwnerID:      ownerID,
		Title:        title,
		VideoURL:     "https://assets.test/video.mp4",
		ThumbnailURL: "https://assets.test/thumb.png",
		Duration:     decimal.NewFromFloat(42.5),
	})
	require.NoError(t, err)
	return video
}

func Test_VideoRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create and get video", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := VideoRepo{DB: tx}

			owner := createTestUser(t, &users, "uploader")
			created := createTestVideo(t, &r, owner.ID, "First upload")

			got, err := r.GetVideoByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, "First upload", got.Title)
			assert.True(t, decimal.NewFromFloat(42.5).Equal(got.Duration), "duration should keep its fraction")
			assert.Equal(t, int64(0), got.Views)
			assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Second)
		})
	})

	t.Run("get video not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := VideoRepo{DB: tx}

			_, err := r.GetVideoByID(t.Context(), uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})
}

func Test_HistoryRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("record and list", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			videos := VideoRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := createTestUser(t, &users, "uploader")
			viewer := createTestUser(t, &users, "viewer")
			first := createTestVideo(t, &videos, owner.ID, "First upload")
			second := createTestVideo(t, &videos, owner.ID, "Second upload")

			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, first.ID))
			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, second.ID))

			watched, err := r.ListWatched(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Len(t, watched, 2)
			assert.Equal(t, "Second upload", watched[0].Video.Title, "newest watch should be first")
			assert.Equal(t, "First upload", watched[1].Video.Title)
			assert.Equal(t, "uploader", watched[0].Owner.Username)
			assert.WithinDuration(t, time.Now(), watched[0].WatchedAt, time.Second)
		})
	})

	t.Run("rewatch bumps the entry", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			videos := VideoRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := createTestUser(t, &users, "uploader")
			viewer := createTestUser(t, &users, "viewer")
			first := createTestVideo(t, &videos, owner.ID, "First upload")
			second := createTestVideo(t, &videos, owner.ID, "Second upload")

			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, first.ID))
			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, second.ID))
			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, first.ID))

			watched, err := r.ListWatched(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Len(t, watched, 2, "rewatch must not duplicate the entry")
			assert.Equal(t, "First upload", watched[0].Video.Title, "rewatched video moves to the top")
		})
	})

	t.Run("history is per user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			videos := VideoRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := createTestUser(t, &users, "uploader")
			viewer := createTestUser(t, &users, "viewer")
			other := createTestUser(t, &users, "other")
			video := createTestVideo(t, &videos, owner.ID, "First upload")

			require.NoError(t, r.RecordWatch(t.Context(), viewer.ID, video.ID))

			watched, err := r.ListWatched(t.Context(), other.ID)
			require.NoError(t, err)
			assert.Empty(t, watched)
		})
	})

	t.Run("unknown video", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			viewer := createTestUser(t, &users, "viewer")

			err := r.RecordWatch(t.Context(), viewer.ID, uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrVideoNotFound)
		})
	})
}
