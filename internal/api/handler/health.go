package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/repository/redis"
)

var validate = validator.New()

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including Redis connectivity
func ReadyCheck(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "redis not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}
