// Command batchlogin obtains a forum session token by password or SMS code
// and stores it in Redis for the batch runners to pick up.
package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circletools/circle-batch-client/pkg/client"
	"github.com/circletools/circle-batch-client/pkg/logging"
	"github.com/circletools/circle-batch-client/pkg/session"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	// Configuration from environment
	baseURL := getEnv("BASE_URL", "https://suo.jiushu1234.com")
	phone := os.Getenv("PHONE")
	password := os.Getenv("PASSWORD")
	code := os.Getenv("SMS_CODE")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	sendCode := getEnvBool("SEND_CODE", false)

	if phone == "" {
		logger.Fatal().Msg("PHONE is required")
	}

	apiClient, err := client.New(client.DefaultConfig(baseURL, ""))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create forum client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Request an SMS code and exit; a second invocation with SMS_CODE set
	// completes the login.
	if sendCode {
		if err := apiClient.SendCode(ctx, phone); err != nil {
			logger.Fatal().Err(err).Msg("Failed to request SMS code")
		}
		logger.Info().Str("phone", phone).Msg("SMS code sent, rerun with SMS_CODE set")
		return
	}

	req := client.LoginRequest{Phone: phone}
	switch {
	case code != "":
		req.Type = 2
		req.Code = code
	case password != "":
		req.Type = 1
		req.Password = password
	default:
		logger.Fatal().Msg("PASSWORD or SMS_CODE is required (or SEND_CODE=1 to request a code)")
	}

	token, err := apiClient.Login(ctx, req)
	if err != nil {
		logger.Fatal().Err(err).Str("phone", phone).Msg("Login failed")
	}

	store := session.NewStore(redis.NewClient(&redis.Options{Addr: redisURL}))
	sess := &session.Session{
		Token:      token,
		Phone:      phone,
		LoggedInAt: time.Now(),
		ExpiresAt:  time.Now().Add(session.DefaultTTL),
	}
	if err := store.Set(ctx, sess); err != nil {
		logger.Fatal().Err(err).Msg("Failed to store session")
	}

	logger.Info().
		Str("phone", phone).
		Time("expires_at", sess.ExpiresAt).
		Msg("Session stored")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || value == "true"
	}
	return defaultValue
}
