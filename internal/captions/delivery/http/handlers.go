package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lingocap/internal/captions"
	"lingocap/internal/models"
	"lingocap/pkg/logger"
	"lingocap/pkg/utils"
)

type captionsHandler struct {
	captionsUC captions.UseCase
	logger     logger.Logger
}

func NewCaptionsHandler(captionsUC captions.UseCase, log logger.Logger) captions.Handler {
	return &captionsHandler{captionsUC: captionsUC, logger: log}
}

// Home renders the cached video catalog.
func (h *captionsHandler) Home() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		videos, err := h.captionsUC.ListVideos(c.Request().Context(), pagination)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.Render(http.StatusOK, "home.html", videos)
	}
}

// Player renders the playback page and kicks off the pipeline when the
// requested track does not exist yet.
func (h *captionsHandler) Player() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.CaptionRequest{
			URL:        c.QueryParam("url"),
			TargetLang: c.QueryParam("lang"),
			SourceLang: c.QueryParam("orig"),
		}
		job, err := h.captionsUC.RequestCaptions(c.Request().Context(), input)
		if err != nil {
			return c.Render(http.StatusNotFound, "error.html", map[string]string{"Reason": err.Error()})
		}
		info, err := h.captionsUC.GetPlaybackInfo(c.Request().Context(), job.VideoID, job.TargetLang)
		if err != nil {
			// First request for this video: the catalog row appears once
			// the fetch stage completes.
			info = &models.PlaybackInfo{
				VideoID:   job.VideoID,
				Language:  job.TargetLang,
				StreamURL: "/api/v1/videos/" + job.VideoID + "/stream",
				Status:    job.Status,
			}
		}
		return c.Render(http.StatusOK, "player.html", map[string]interface{}{
			"Job":  job,
			"Info": info,
		})
	}
}

func (h *captionsHandler) RequestCaptions() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.CaptionRequest{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.captionsUC.RequestCaptions(c.Request().Context(), input)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *captionsHandler) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		job, err := h.captionsUC.GetJob(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *captionsHandler) ListVideos() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		videos, err := h.captionsUC.ListVideos(c.Request().Context(), pagination)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, videos)
	}
}

func (h *captionsHandler) GetPlaybackInfo() echo.HandlerFunc {
	return func(c echo.Context) error {
		info, err := h.captionsUC.GetPlaybackInfo(c.Request().Context(), c.Param("video_id"), c.QueryParam("lang"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, info)
	}
}

// StreamVideo serves the cached media file; echo handles Range requests.
func (h *captionsHandler) StreamVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := h.captionsUC.GetVideo(c.Request().Context(), c.Param("video_id"))
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.File(video.MediaPath)
	}
}

func (h *captionsHandler) GetCaptions() echo.HandlerFunc {
	return func(c echo.Context) error {
		lang := c.QueryParam("lang")
		track, err := h.captionsUC.GetTrack(c.Request().Context(), c.Param("video_id"), lang)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/vtt; charset=utf-8")
		c.Response().Header().Set("Cache-Control", "max-age=3600")
		return c.File(track.Path)
	}
}

func (h *captionsHandler) GetThumbnail() echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := h.captionsUC.GetVideo(c.Request().Context(), c.Param("video_id"))
		if err != nil || video.ThumbnailPath == "" {
			return c.NoContent(http.StatusNotFound)
		}
		c.Response().Header().Set("Cache-Control", "max-age=3600")
		return c.File(video.ThumbnailPath)
	}
}

// GetWordDictionary serves per-word translations of a video's transcript
// for learner word lookup on the player page.
func (h *captionsHandler) GetWordDictionary() echo.HandlerFunc {
	return func(c echo.Context) error {
		dict, err := h.captionsUC.GetWordDictionary(
			c.Request().Context(), c.Param("video_id"), c.QueryParam("src"), c.QueryParam("dst"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		c.Response().Header().Set("Cache-Control", "max-age=3600")
		return c.JSON(http.StatusOK, dict)
	}
}

func (h *captionsHandler) ShareTrack() echo.HandlerFunc {
	return func(c echo.Context) error {
		url, err := h.captionsUC.ShareTrack(c.Request().Context(), c.Param("video_id"), c.QueryParam("lang"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"url": url})
	}
}
