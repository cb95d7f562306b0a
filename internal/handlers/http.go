package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	u "latex2pdf/internal/utils"
)

// HandleCompile is the HTTP entrypoint wrapping the core handler for the
// local server surface. Error responses are delegated to the app's JSON
// error handler via fiber errors.
func (svc *CompileService) HandleCompile(c *fiber.Ctx) error {
	var req CompileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	cacheKey := computeCacheKey(&req)

	// Try to serve from the redis response cache
	if svc.Redis != nil && svc.Config.Cache.Enabled {
		if cached, err := getCachedPDF(c, svc.Redis, cacheKey, req.OutputFilename); err == nil && cached != nil {
			return c.Send(cached)
		}
	}

	resp := svc.Handle(c.UserContext(), req)
	if resp.StatusCode != fiber.StatusOK {
		return fiber.NewError(resp.StatusCode, resp.Body)
	}

	pdf, err := base64.StdEncoding.DecodeString(resp.Body)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Corrupt compilation result: "+err.Error())
	}

	if svc.Redis != nil && svc.Config.Cache.Enabled {
		ttl := time.Duration(svc.Config.Cache.TTLSecs) * time.Second
		setCachedPDF(c, svc.Redis, cacheKey, pdf, ttl)
	}

	requestID := c.Get("X-Request-ID")
	u.Info("PDF compiled", "filename", req.OutputFilename, "request_id", requestID)

	for k, v := range resp.Headers {
		c.Set(k, v)
	}
	return c.Send(pdf)
}

// computeCacheKey creates a SHA256-based cache key from the request payload.
func computeCacheKey(req *CompileRequest) string {
	h := sha256.New()
	h.Write([]byte(req.LatexSource))
	h.Write([]byte(req.OutputFilename))
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedPDF attempts to retrieve a cached PDF from redis.
func getCachedPDF(c *fiber.Ctx, rdb *redis.Client, key, filename string) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	cached, err := rdb.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil, err
	}

	u.Info("PDF cache hit", "key", key)
	c.Set("Content-Type", "application/pdf")
	if filename != "" {
		c.Set("Content-Disposition", "attachment; filename="+filename)
	}
	return cached, nil
}

// setCachedPDF stores a compiled PDF in redis.
func setCachedPDF(c *fiber.Ctx, rdb *redis.Client, key string, data []byte, ttl time.Duration) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := rdb.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}
