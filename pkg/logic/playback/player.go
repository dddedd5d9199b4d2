package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"
)

var (
	ErrAlreadyPlaying = errors.New("playback: already playing")
	ErrNotPlaying     = errors.New("playback: not playing")
)

// Options 输出设备的格式，BufferSize 为每次从文件拉取的帧数
type Options struct {
	SampleRate int
	Channels   int
	BufferSize int
}

// Status 播放状态快照
type Status struct {
	Playing    bool   `json:"playing"`
	Name       string `json:"name,omitempty"`
	Position   int    `json:"position"` // 已读取的帧
	Frames     int    `json:"frames"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// Player 把 WAV 文件转换为输出设备的采样率和声道数后写入 Output。同一时刻只播放一个文件。
type Player struct {
	output Output
	opts   Options

	mu     sync.Mutex
	name   string
	file   *wav.File
	cursor *Cursor
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewPlayer(output Output, opts Options) (*Player, error) {
	if opts.SampleRate <= 0 || opts.Channels <= 0 || opts.BufferSize <= 0 {
		return nil, fmt.Errorf("invalid playback options: %+v", opts)
	}
	return &Player{output: output, opts: opts}, nil
}

func (p *Player) begin(ctx context.Context, name string, f *wav.File) (context.Context, *Cursor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return nil, nil, ErrAlreadyPlaying
	}
	ctx, cancel := context.WithCancel(ctx)
	p.name = name
	p.file = f
	p.cursor = NewCursor(f)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.err = nil
	return ctx, p.cursor, nil
}

func (p *Player) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel()
	p.err = err
	close(p.done)
	p.done = nil
	p.cancel = nil
	p.cursor = nil
	p.file = nil
	p.name = ""
}

// Play 播放 f，阻塞到播放结束或 ctx 取消
func (p *Player) Play(ctx context.Context, name string, f *wav.File) error {
	ctx, cursor, err := p.begin(ctx, name, f)
	if err != nil {
		return err
	}
	err = p.run(ctx, name, f, cursor)
	p.finish(err)
	return err
}

// Start 在后台播放 f
func (p *Player) Start(name string, f *wav.File) error {
	ctx, cursor, err := p.begin(context.Background(), name, f)
	if err != nil {
		return err
	}
	go func() {
		err := p.run(ctx, name, f, cursor)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Playback of %s failed: %v", name, err)
		}
		p.finish(err)
	}()
	return nil
}

// Stop 中断当前播放并等待输出关闭
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.done == nil {
		p.mu.Unlock()
		return ErrNotPlaying
	}
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Wait 等待当前播放结束，返回播放过程中的错误
func (p *Player) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return Status{}
	}
	return Status{
		Playing:    true,
		Name:       p.name,
		Position:   p.cursor.Position(),
		Frames:     p.file.Frames(),
		SampleRate: p.file.SampleRate(),
	}
}

func (p *Player) run(ctx context.Context, name string, f *wav.File, cursor *Cursor) error {
	if err := p.output.Open(p.opts.SampleRate, p.opts.Channels, p.opts.BufferSize); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer func() {
		if err := p.output.Close(); err != nil {
			logger.Warn("Failed to close output: %v", err)
		}
	}()

	resampler, err := NewResampler(f.SampleRate(), p.opts.SampleRate, p.opts.Channels)
	if err != nil {
		return err
	}
	defer resampler.Close()

	logger.Info("Playing %s: %d Hz %d ch -> %d Hz %d ch, duration %s",
		name, f.SampleRate(), f.Channels(), p.opts.SampleRate, p.opts.Channels, wav.FormatDuration(f.Duration()))

	in := make([]float32, p.opts.BufferSize*f.Channels())
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("Playback of %s interrupted at frame %d", name, cursor.Position())
			return err
		}

		n, err := cursor.Read(in)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		out, err := resampler.Process(remix(in[:n*f.Channels()], f.Channels(), p.opts.Channels))
		if err != nil {
			return err
		}
		if len(out) > 0 {
			if err := p.output.Write(out); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}

	tail, err := resampler.Flush()
	if err != nil {
		return err
	}
	if len(tail) > 0 {
		if err := p.output.Write(tail); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	logger.Info("Playback of %s finished", name)
	return nil
}

// remix 转换声道数并量化为 16 位：输出单声道时取各声道平均，否则按声道序号循环取输入声道
func remix(in []float32, inChannels, outChannels int) []int16 {
	frames := len(in) / inChannels
	out := make([]int16, frames*outChannels)
	for i := 0; i < frames; i++ {
		frame := in[i*inChannels : (i+1)*inChannels]
		for c := 0; c < outChannels; c++ {
			var v float32
			switch {
			case inChannels == outChannels:
				v = frame[c]
			case outChannels == 1:
				for _, s := range frame {
					v += s
				}
				v /= float32(inChannels)
			default:
				v = frame[c%inChannels]
			}
			out[i*outChannels+c] = toInt16(v)
		}
	}
	return out
}

func toInt16(v float32) int16 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int16(math.Round(float64(v) * math.MaxInt16))
}
