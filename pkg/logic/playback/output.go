package playback

import (
	"errors"
	"sync"
	"time"
)

// Output 音频输出，写入交错排列的 16 位采样
type Output interface {
	Open(sampleRate, channels, bufferSize int) error
	Close() error
	Write(samples []int16) error
	IsPlaying() bool
}

var errOutputClosed = errors.New("output closed")

// NullOutput 丢弃所有数据，按采样时长 sleep 以保持实时速度
type NullOutput struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	open       bool
	realtime   bool
}

// NewNullOutput realtime 为 false 时立即返回，不等待
func NewNullOutput(realtime bool) *NullOutput {
	return &NullOutput{realtime: realtime}
}

func (n *NullOutput) Open(sampleRate, channels, bufferSize int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sampleRate = sampleRate
	n.channels = channels
	n.open = true
	return nil
}

func (n *NullOutput) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = false
	return nil
}

func (n *NullOutput) Write(samples []int16) error {
	n.mu.Lock()
	if !n.open {
		n.mu.Unlock()
		return errOutputClosed
	}
	rate, channels, realtime := n.sampleRate, n.channels, n.realtime
	n.mu.Unlock()

	if realtime && rate > 0 && channels > 0 {
		time.Sleep(time.Duration(len(samples)/channels) * time.Second / time.Duration(rate))
	}
	return nil
}

func (n *NullOutput) IsPlaying() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.open
}

// BufferOutput 把写入的数据保存在内存中，用于测试
type BufferOutput struct {
	mu         sync.Mutex
	buffer     []int16
	sampleRate int
	channels   int
	opens      int
	open       bool
}

func NewBufferOutput() *BufferOutput {
	return &BufferOutput{}
}

func (b *BufferOutput) Open(sampleRate, channels, bufferSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleRate = sampleRate
	b.channels = channels
	b.buffer = b.buffer[:0]
	b.opens++
	b.open = true
	return nil
}

func (b *BufferOutput) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	return nil
}

func (b *BufferOutput) Write(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return errOutputClosed
	}
	b.buffer = append(b.buffer, samples...)
	return nil
}

func (b *BufferOutput) IsPlaying() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Samples 返回目前写入的全部采样
func (b *BufferOutput) Samples() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int16(nil), b.buffer...)
}

// Format 返回最近一次 Open 的采样率和声道数
func (b *BufferOutput) Format() (sampleRate, channels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sampleRate, b.channels
}
