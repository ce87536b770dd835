package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lingocap/internal/captions"
	captionsHttp "lingocap/internal/captions/delivery/http"
	captionsRepository "lingocap/internal/captions/repository"
	captionsUsecase "lingocap/internal/captions/usecase"
	"lingocap/internal/middleware"
	"lingocap/pkg/utils"
	"lingocap/web"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	cRepo, err := captionsRepository.NewCaptionsRepo(s.db)
	if err != nil {
		return err
	}
	cRedisRepo := captionsRepository.NewCaptionsRedisRepo(s.redisClient, s.cfg.Redis.JobKeyPrefix)

	var cAWSRepo captions.AWSRepository
	if s.cfg.S3.Enabled && s.s3Client != nil {
		cAWSRepo = captionsRepository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.TrackBucket)
	}

	captionsUC := captionsUsecase.NewCaptionsUseCase(s.cfg, cRepo, cRedisRepo, cAWSRepo, s.words, s.artifacts, s.logger)
	captionsHandlers := captionsHttp.NewCaptionsHandler(captionsUC, s.logger)

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer

	mw := middleware.NewMiddlewareManager(s.cfg, []string{"*"}, s.logger)
	e.Use(mw.RequestLoggerMiddleware)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	captionsHttp.MapCaptionRoutes(v1, captionsHandlers)
	captionsHttp.MapPageRoutes(e, captionsHandlers)

	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
