package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"
)

// Store 保存完成的录音
type Store interface {
	Save(f *wav.File, at time.Time) (string, error)
}

type RecorderOptions struct {
	MaxSeconds   int
	SampleRate   int
	PollInterval time.Duration
	AutoSave     bool
}

// Result 一次完整录音的结果
type Result struct {
	Session SessionInfo
	File    *wav.File
	Path    string // 未保存时为空
}

// Recorder 负责驱动 Capture：开始采集后按固定间隔 Tick，停止时生成 WAV 并保存
type Recorder struct {
	capture *Capture
	store   Store
	opts    RecorderOptions

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

const defaultPollInterval = 50 * time.Millisecond

func NewRecorder(capture *Capture, store Store, opts RecorderOptions) *Recorder {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Recorder{
		capture: capture,
		store:   store,
		opts:    opts,
	}
}

// Capture 返回底层采集器
func (r *Recorder) Capture() *Capture {
	return r.capture
}

// Start 开始录音并启动轮询
func (r *Recorder) Start() (SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := r.capture.Start(r.opts.MaxSeconds, r.opts.SampleRate)
	if err != nil {
		return SessionInfo{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.pollLoop(ctx, r.done)

	return info, nil
}

func (r *Recorder) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.capture.Tick()
			if errors.Is(err, ErrNotCapturing) {
				return
			}
			if err != nil {
				logger.Error("Capture poll failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Debug("Captured %d frames", n)
			}
		}
	}
}

// Stop 停止录音，封装为 WAV，开启 AutoSave 时写入 Store
func (r *Recorder) Stop() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel = nil
		r.done = nil
	}

	rec, stopErr := r.capture.Stop()
	if rec == nil {
		return nil, stopErr
	}

	f, err := rec.Build()
	if err != nil {
		return nil, errors.Join(stopErr, fmt.Errorf("failed to build WAV: %w", err))
	}

	result := &Result{Session: rec.Session, File: f}
	if r.opts.AutoSave && r.store != nil {
		path, err := r.store.Save(f, rec.Session.StartedAt)
		if err != nil {
			logger.Error("Failed to save recording: %v", err)
			return result, errors.Join(stopErr, err)
		}
		result.Path = path
		logger.Info("Recording saved: %s", path)
	}

	logger.Info("Recording size: %d KB, duration: %s", len(f.Data())/1024, wav.FormatDuration(f.Duration()))
	return result, stopErr
}
