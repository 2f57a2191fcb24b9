package jwt

import (
	"social-realtime-backend/internal/env"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	USER_SECRET string
	RedisClient *redis.Client
)

const RefreshTokenTTL = 24 * 30 * time.Hour

const (
	RoleUser Role = iota
)

var RoleSecrets = map[Role]string{
	RoleUser: USER_SECRET,
}

func init() {
	USER_SECRET = env.Get(env.UserSecretKey)
	RoleSecrets[RoleUser] = USER_SECRET

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AuthRedisURL),
		Password: env.Get(env.AuthRedisPass),
		DB:       0,
	})
}
