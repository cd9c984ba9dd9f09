// Package health exposes a JSON liveness endpoint backed by the request
// counters the health-marker middleware keeps in Redis.
package health

import (
	"context"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	ctx := context.Background()
	out := fiber.Map{
		"time": time.Now().UTC(),
	}

	dbStatus := "not configured"
	if h.DB != nil {
		dbStatus = "ok"
		if sqlDB, err := h.DB.DB(); err != nil {
			dbStatus = "error: " + err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error: " + err.Error()
		}
	}
	out["database"] = dbStatus

	redisStatus := "not configured"
	if h.Rdb != nil {
		redisStatus = "ok"
		if err := h.Rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		} else {
			reqTotal, _ := h.Rdb.Get(ctx, middleware.KeyReqTotal).Int64()
			reqErrors, _ := h.Rdb.Get(ctx, middleware.KeyReqErrors).Int64()
			resCount, _ := h.Rdb.Get(ctx, middleware.KeyResCount).Int64()
			resTime, _ := h.Rdb.Get(ctx, middleware.KeyResTime).Float64()
			avg := float64(0)
			if resCount > 0 {
				avg = resTime / float64(resCount)
			}
			out["requests"] = fiber.Map{
				"total":       reqTotal,
				"errors":      reqErrors,
				"avg_resp_ms": avg,
			}
		}
	}
	out["redis"] = redisStatus

	status := fiber.StatusOK
	if dbStatus != "ok" && dbStatus != "not configured" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(out)
}
