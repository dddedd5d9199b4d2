package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 上传大小上限
const maxUploadSize = 64 << 20

type recordingInfo struct {
	Name          string `json:"name,omitempty"`
	Path          string `json:"path,omitempty"`
	Channels      int    `json:"channels"`
	SampleRate    int    `json:"sample_rate"`
	BitsPerSample int    `json:"bits_per_sample"`
	Frames        int    `json:"frames"`
	Bytes         int    `json:"bytes"`
	Duration      string `json:"duration"`
}

func newRecordingInfo(name, path string, f *wav.File) recordingInfo {
	return recordingInfo{
		Name:          name,
		Path:          path,
		Channels:      f.Channels(),
		SampleRate:    f.SampleRate(),
		BitsPerSample: f.BitsPerSample(),
		Frames:        f.Frames(),
		Bytes:         len(f.Data()),
		Duration:      wav.FormatDuration(f.Duration()),
	}
}

// HandleStart 开始录音
func (s *RecorderServer) HandleStart(c *gin.Context) {
	info, err := s.recorder.Start()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// HandleStop 停止录音，返回生成的文件信息
func (s *RecorderServer) HandleStop(c *gin.Context) {
	result, err := s.recorder.Stop()
	if result == nil {
		abortWithError(c, err)
		return
	}

	var name string
	if result.Path != "" {
		name = filepath.Base(result.Path)
	}
	resp := gin.H{
		"session":   result.Session,
		"recording": newRecordingInfo(name, result.Path, result.File),
	}
	if err != nil {
		logger.Warn("Capture stopped with error: %v", err)
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// HandleStatus 返回采集状态
func (s *RecorderServer) HandleStatus(c *gin.Context) {
	capturer := s.recorder.Capture()
	resp := gin.H{"state": capturer.State().String()}
	if info, ok := capturer.Session(); ok {
		resp["session"] = info
	}
	c.JSON(http.StatusOK, resp)
}

// HandleList 列出已保存的录音
func (s *RecorderServer) HandleList(c *gin.Context) {
	entries, err := s.store.List()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": entries})
}

// HandleUpload 校验并保存请求体中的 WAV 文件
func (s *RecorderServer) HandleUpload(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read body: %v", err)})
		return
	}
	if len(body) > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}

	f, err := wav.Parse(body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	path, err := s.store.Save(f, s.now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	logger.Info("Recording uploaded: %s (%s)", path, wav.FormatDuration(f.Duration()))
	c.JSON(http.StatusCreated, newRecordingInfo(filepath.Base(path), path, f))
}

// HandleInfo 返回录音的格式信息
func (s *RecorderServer) HandleInfo(c *gin.Context) {
	name := c.Param("name")
	f, err := s.store.Load(name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRecordingInfo(name, "", f))
}

// HandleRaw 下载录音文件
func (s *RecorderServer) HandleRaw(c *gin.Context) {
	data, err := s.store.ReadRaw(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}

// HandlePlay 在后台播放录音
func (s *RecorderServer) HandlePlay(c *gin.Context) {
	name := c.Param("name")
	f, err := s.store.Load(name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.player.Start(name, f); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.player.Status())
}

func (s *RecorderServer) HandlePlaybackStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.player.Status())
}

func (s *RecorderServer) HandlePlaybackStop(c *gin.Context) {
	if err := s.player.Stop(); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
