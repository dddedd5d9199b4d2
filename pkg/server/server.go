package server

import (
	"errors"
	"net/http"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"
	"ringwav/pkg/logic/capture"
	"ringwav/pkg/logic/dumper"
	"ringwav/pkg/logic/playback"

	"github.com/gin-gonic/gin"
)

// RecorderServer 录音与回放的 HTTP 控制接口
type RecorderServer struct {
	recorder *capture.Recorder
	store    *dumper.WAVDumper
	player   *playback.Player
	now      func() time.Time
}

func NewRecorderServer(recorder *capture.Recorder, store *dumper.WAVDumper, player *playback.Player) *RecorderServer {
	return &RecorderServer{
		recorder: recorder,
		store:    store,
		player:   player,
		now:      time.Now,
	}
}

// Router 注册所有路由
func (s *RecorderServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.POST("/capture/start", s.HandleStart)
	r.POST("/capture/stop", s.HandleStop)
	r.GET("/capture/status", s.HandleStatus)

	r.GET("/recordings", s.HandleList)
	r.POST("/recordings", s.HandleUpload)
	r.GET("/recordings/:name", s.HandleInfo)
	r.GET("/recordings/:name/raw", s.HandleRaw)
	r.POST("/recordings/:name/play", s.HandlePlay)

	r.GET("/playback/status", s.HandlePlaybackStatus)
	r.POST("/playback/stop", s.HandlePlaybackStop)
	return r
}

// Shutdown 停止进行中的录音和播放
func (s *RecorderServer) Shutdown() {
	if s.recorder.Capture().State() == capture.StateCapturing {
		if result, err := s.recorder.Stop(); err != nil {
			logger.Error("Failed to stop capture on shutdown: %v", err)
		} else if result.Path != "" {
			logger.Info("Capture saved on shutdown: %s", result.Path)
		}
	}
	if s.player.Status().Playing {
		s.player.Stop() //nolint:errcheck
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// statusFor 把错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrAlreadyCapturing),
		errors.Is(err, capture.ErrNotCapturing),
		errors.Is(err, playback.ErrAlreadyPlaying),
		errors.Is(err, playback.ErrNotPlaying):
		return http.StatusConflict
	case errors.Is(err, capture.ErrNoDevice):
		return http.StatusServiceUnavailable
	case errors.Is(err, wav.ErrBadFormat),
		errors.Is(err, wav.ErrMissingChunk),
		errors.Is(err, wav.ErrTruncatedInput),
		errors.Is(err, wav.ErrUnsupportedBitDepth):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dumper.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dumper.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
