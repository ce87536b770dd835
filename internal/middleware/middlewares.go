package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"lingocap/internal/config"
	"lingocap/pkg/logger"
	"lingocap/pkg/utils"
)

type MiddlewareManager struct {
	cfg     *config.Config
	origins []string
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{cfg: cfg, origins: origins, logger: logger}
}

// RequestLoggerMiddleware logs one line per request.
func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		req := c.Request()
		res := c.Response()
		mw.logger.Infof("method: %s, uri: %s, status: %d, ip: %s, request_id: %s, took: %s",
			req.Method, req.URL.String(), res.Status, utils.GetIPAddress(c), utils.GetRequestID(c), time.Since(start),
		)
		return err
	}
}
