package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pmorozov/vidhub/internal/apperrors"
	"github.com/pmorozov/vidhub/internal/models"
)

type SubscriptionRepo struct {
	DB DBTX
}

const subscribe = `-- name: Subscribe
INSERT INTO subscriptions (subscriber_id, channel_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

func (r *SubscriptionRepo) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, subscribe, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const unsubscribe = `-- name: Unsubscribe
DELETE FROM subscriptions
WHERE subscriber_id = $1 AND channel_id = $2
`

func (r *SubscriptionRepo) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, unsubscribe, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getChannelProfile = `-- name: GetChannelProfile
SELECT
	u.username,
	u.full_name,
	u.avatar_url,
	u.cover_url,
	(SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers,
	(SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to,
	EXISTS (
		SELECT 1 FROM subscriptions s
		WHERE s.channel_id = u.id AND s.subscriber_id = $2
	) AS is_subscribed
FROM users u
WHERE u.username = lower($1)
`

func (r *SubscriptionRepo) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	rows, _ := r.DB.Query(ctx, getChannelProfile, username, viewerID)
	profile, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.ChannelProfile, error) {
		var p models.ChannelProfile
		err := row.Scan(&p.Username, &p.FullName, &p.AvatarURL, &p.CoverURL, &p.SubscriberCount, &p.SubscribedToCount, &p.IsSubscribed)
		return p, err
	})

	switch {
	case err == nil:
		return profile, nil
	case errors.Is(err, pgx.ErrNoRows):
		return profile, fmt.Errorf("repo error: %w", apperrors.ErrChannelNotFound)
	default:
		return profile, fmt.Errorf("db error: %w", err)
	}
}
