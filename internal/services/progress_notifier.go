package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coursehub-backend/internal/models"
)

// RedisProgressNotifier publishes save outcomes on the user's update channel,
// which the websocket hub relays to that user's own connections.
type RedisProgressNotifier struct {
	redis *redis.Client
	log   *zap.Logger
}

func NewRedisProgressNotifier(redisClient *redis.Client, log *zap.Logger) *RedisProgressNotifier {
	return &RedisProgressNotifier{redis: redisClient, log: log}
}

func UserUpdatesChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

func (n *RedisProgressNotifier) ProgressSaved(ctx context.Context, rec *models.ProgressRecord) {
	n.publish(ctx, rec.UserID, models.WSMessage{
		Type:    "progress_saved",
		Payload: models.ProgressSaved{Record: rec},
	})
}

func (n *RedisProgressNotifier) ProgressSaveFailed(ctx context.Context, userID, lessonID uuid.UUID, err error) {
	n.publish(ctx, userID, models.WSMessage{
		Type: "progress_save_failed",
		Payload: models.ProgressSaveFailed{
			LessonID:     lessonID,
			ErrorMessage: "Progress could not be saved, it will be retried on the next update",
		},
	})
}

func (n *RedisProgressNotifier) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := n.redis.Publish(ctx, UserUpdatesChannel(userID), string(data)).Err(); err != nil {
		n.log.Warn("progress notification publish failed",
			zap.String("user_id", userID.String()),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}
