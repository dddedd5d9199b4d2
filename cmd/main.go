package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ringwav/internal/config"
	"ringwav/pkg/logger"
	"ringwav/pkg/logic/capture"
	"ringwav/pkg/logic/device"
	"ringwav/pkg/logic/dumper"
	"ringwav/pkg/logic/playback"
	"ringwav/pkg/server"

	"github.com/gin-gonic/gin"
)

type closableDevice interface {
	capture.Device
	Close() error
}

type nopCloser struct{ capture.Device }

func (nopCloser) Close() error { return nil }

func newDevice(cfg config.CaptureConfig) (closableDevice, error) {
	switch cfg.Device {
	case "file":
		d, err := device.NewFileDevice(cfg.SourceFile)
		if err != nil {
			return nil, err
		}
		return nopCloser{d}, nil
	default:
		return device.NewPortAudioDevice(cfg.Channels, 0)
	}
}

func newOutput(cfg config.PlaybackConfig) playback.Output {
	if cfg.Output == "null" {
		return playback.NewNullOutput(true)
	}
	return playback.NewOtoOutput()
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 设置 gin 为 release 模式，关闭调试信息
	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(&cfg.Log)
	defer logger.Sync() //nolint:errcheck

	dev, err := newDevice(cfg.Capture)
	if err != nil {
		logger.Fatal("Failed to open capture device %q: %v", cfg.Capture.Device, err)
	}
	defer dev.Close()

	capturer, err := capture.NewCapture(dev, uint16(cfg.Capture.BitsPerSample))
	if err != nil {
		logger.Fatal("Failed to create capture: %v", err)
	}
	store, err := dumper.NewWAVDumper(cfg.Capture.Dir, cfg.Capture.Prefix)
	if err != nil {
		logger.Fatal("Failed to create recording store: %v", err)
	}
	recorder := capture.NewRecorder(capturer, store, capture.RecorderOptions{
		MaxSeconds:   cfg.Capture.MaxSeconds,
		SampleRate:   cfg.Capture.SampleRate,
		PollInterval: cfg.Capture.PollInterval,
		AutoSave:     cfg.Capture.AutoSave,
	})
	player, err := playback.NewPlayer(newOutput(cfg.Playback), playback.Options{
		SampleRate: cfg.Playback.SampleRate,
		Channels:   cfg.Playback.Channels,
		BufferSize: cfg.Playback.BufferSize,
	})
	if err != nil {
		logger.Fatal("Failed to create player: %v", err)
	}

	srv := server.NewRecorderServer(recorder, store, player)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("Starting ringwav server on :%d, recordings in %s", cfg.Server.HTTPPort, store.Dir())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown: %v", err)
	}
	srv.Shutdown()
}
