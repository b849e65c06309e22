package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCourseLocked = errors.New("course lessons are being updated by another request")

// CourseLocker serialises lesson-set writes per course.
type CourseLocker interface {
	TryLock(ctx context.Context, courseID uuid.UUID) (unlock func(), err error)
}

// RedisCourseLocker holds the lock as a SET NX key so it spans every instance.
type RedisCourseLocker struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewRedisCourseLocker(redisClient *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCourseLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCourseLocker{redis: redisClient, ttl: ttl, log: log}
}

// Only the holder's token may release the key.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisCourseLocker) TryLock(ctx context.Context, courseID uuid.UUID) (func(), error) {
	key := fmt.Sprintf("course_lock:%s", courseID.String())
	token := uuid.NewString()

	locked, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire course lock: %w", err)
	}
	if !locked {
		return nil, ErrCourseLocked
	}

	return func() { l.release(key, token) }, nil
}

// release deletes the key if this holder still owns it. A failed release
// leaves the course locked until the TTL runs out.
func (l *RedisCourseLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseLockScript.Run(ctx, l.redis, []string{key}, token).Err(); err != nil {
		l.log.Warn("course lock release failed",
			zap.String("key", key),
			zap.Duration("ttl", l.ttl),
			zap.Error(err),
		)
	}
}

// LocalCourseLocker is the in-process variant for a single instance.
type LocalCourseLocker struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func NewLocalCourseLocker() *LocalCourseLocker {
	return &LocalCourseLocker{active: make(map[uuid.UUID]struct{})}
}

func (l *LocalCourseLocker) TryLock(_ context.Context, courseID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[courseID]; busy {
		return nil, ErrCourseLocked
	}
	l.active[courseID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, courseID)
			l.mu.Unlock()
		})
	}, nil
}
