package middleware

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/sirupsen/logrus"

	"cadence/config"
	"cadence/models"
	"cadence/utils"
)

// ScheduleRunLimiter throttles manual scheduling runs per user and sequence.
func ScheduleRunLimiter() fiber.Handler {
	return perResourceLimiter(config.AppConfig.RateLimitScheduleRun,
		"Too many scheduling runs. Please wait before running again.")
}

// SenderTestLimiter throttles connection tests against a sender's SMTP
// server.
func SenderTestLimiter() fiber.Handler {
	return perResourceLimiter(config.AppConfig.RateLimitTestSender,
		"Too many test requests. Please wait before testing again.")
}

func perResourceLimiter(max int, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Set by the JWT middleware
			user := c.Locals("user").(*models.User)
			return utils.GenerateRateLimitKey(user.ID, c.Params("id"), c.Path())
		},
		LimitReached: func(c *fiber.Ctx) error {
			user := c.Locals("user").(*models.User)
			logrus.WithFields(logrus.Fields{
				"user_id":  user.ID,
				"endpoint": c.Path(),
				"ip":       c.IP(),
			}).Warn("Rate limit hit")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       message,
				"retry_after": "1 minute",
			})
		},
		Storage: rateLimitStorage(),
	})
}

// rateLimitStorage returns Redis-backed storage when configured so limits
// hold across instances; nil falls back to fiber's in-memory store.
func rateLimitStorage() fiber.Storage {
	if config.AppConfig.Redis.Enabled {
		return NewRedisStorage(config.AppConfig.Redis)
	}
	return nil
}

// RedisStorage implements fiber.Storage for Redis
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(config config.RedisConfig) *RedisStorage {
	return &RedisStorage{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Address,
			Password: config.Password,
			DB:       config.DB,
		}),
	}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	return r.client.Get(context.Background(), key).Bytes()
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return r.client.Set(context.Background(), key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), key).Err()
}

func (r *RedisStorage) Reset() error {
	return r.client.FlushDB(context.Background()).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
