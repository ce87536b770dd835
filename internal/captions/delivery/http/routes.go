package http

import (
	"github.com/labstack/echo/v4"

	"lingocap/internal/captions"
)

func MapCaptionRoutes(group *echo.Group, h captions.Handler) {
	group.POST("/captions", h.RequestCaptions())
	group.GET("/captions/jobs/:job_id", h.GetJob())
	group.GET("/videos", h.ListVideos())
	group.GET("/videos/:video_id/playback-info", h.GetPlaybackInfo())
	group.GET("/videos/:video_id/stream", h.StreamVideo())
	group.GET("/videos/:video_id/captions", h.GetCaptions())
	group.GET("/videos/:video_id/thumbnail", h.GetThumbnail())
	group.GET("/videos/:video_id/words", h.GetWordDictionary())
	group.GET("/videos/:video_id/share", h.ShareTrack())
}

func MapPageRoutes(e *echo.Echo, h captions.Handler) {
	e.GET("/", h.Home())
	e.GET("/player", h.Player())
}
