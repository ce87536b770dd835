package captions

import "github.com/labstack/echo/v4"

// Handler is the HTTP delivery surface.
type Handler interface {
	Home() echo.HandlerFunc
	Player() echo.HandlerFunc
	RequestCaptions() echo.HandlerFunc
	GetJob() echo.HandlerFunc
	ListVideos() echo.HandlerFunc
	GetPlaybackInfo() echo.HandlerFunc
	StreamVideo() echo.HandlerFunc
	GetCaptions() echo.HandlerFunc
	GetThumbnail() echo.HandlerFunc
	GetWordDictionary() echo.HandlerFunc
	ShareTrack() echo.HandlerFunc
}
