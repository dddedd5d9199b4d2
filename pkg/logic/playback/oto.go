package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"ringwav/pkg/logger"

	"github.com/ebitengine/oto/v3"
)

var (
	// oto 每个进程只能创建一个 Context
	globalOtoMutex sync.Mutex
	globalContext  *oto.Context
	globalRate     int
	globalChannels int
)

// OtoOutput 通过 oto 输出到系统声卡
type OtoOutput struct {
	mu     sync.Mutex
	player *oto.Player
	writer *io.PipeWriter
	reader *io.PipeReader
	buf    []byte
	closed bool
}

func NewOtoOutput() *OtoOutput {
	return &OtoOutput{closed: true}
}

func otoContext(sampleRate, channels, bufferSize int) (*oto.Context, error) {
	globalOtoMutex.Lock()
	defer globalOtoMutex.Unlock()

	if globalContext != nil {
		if globalRate != sampleRate || globalChannels != channels {
			return nil, fmt.Errorf("oto context already created with %d Hz / %d channels", globalRate, globalChannels)
		}
		return globalContext, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferSize) * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	globalContext = ctx
	globalRate = sampleRate
	globalChannels = channels
	logger.Info("Oto context created: %d Hz, %d channels", sampleRate, channels)
	return ctx, nil
}

func (o *OtoOutput) Open(sampleRate, channels, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open")
	}
	ctx, err := otoContext(sampleRate, channels, bufferSize)
	if err != nil {
		return err
	}

	o.reader, o.writer = io.Pipe()
	o.player = ctx.NewPlayer(o.reader)
	o.player.Play()
	o.closed = false
	return nil
}

func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	// 先关闭写端，让 player 读到 EOF 后播完剩余数据
	o.writer.Close()
	for o.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	o.player.Close()
	o.reader.Close()

	o.player = nil
	o.writer = nil
	o.reader = nil
	return nil
}

func (o *OtoOutput) Write(samples []int16) error {
	o.mu.Lock()
	if o.closed || o.writer == nil {
		o.mu.Unlock()
		return errOutputClosed
	}
	writer := o.writer
	o.buf = o.buf[:0]
	for _, s := range samples {
		o.buf = append(o.buf, byte(s), byte(s>>8))
	}
	buf := o.buf
	o.mu.Unlock()

	// 管道写入会阻塞到 player 读走数据为止，从而控制播放速度
	_, err := writer.Write(buf)
	return err
}

func (o *OtoOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed && o.player != nil
}
