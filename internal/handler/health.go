package handler

import (
	"context"
	"net/http"
	"time"

	"parkcore/internal/infra"
	"parkcore/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, breakers ...*infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var deadLetters int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			deadLetters, _ = worker.DLQLength(ctx, rdb, worker.QueueShiftReport)
		}

		cbs := make(map[string]string, len(breakers))
		for _, b := range breakers {
			cbs[b.Name()] = b.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":                  status == http.StatusOK,
			"db":                  dbStatus,
			"redis":               redisStatus,
			"report_dead_letters": deadLetters,
			"breakers":            cbs,
		})
	}
}
