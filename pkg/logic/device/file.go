package device

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"
	"ringwav/pkg/logic/capture"
)

var _ capture.Device = (*FileDevice)(nil)

// 每 20ms 推送一次，模拟实时音频流
const fileChunkInterval = 20 * time.Millisecond

type fileStream struct {
	ring   *Ring
	pos    int // 文件内的读取位置（帧）
	stopCh chan struct{}
	done   chan struct{}
}

// FileDevice 把 WAV 文件当作采集源，按实时速度循环写入环形区域。
// 没有麦克风的环境（测试、服务器）用它代替 PortAudioDevice。
type FileDevice struct {
	mu      sync.Mutex
	path    string
	name    string
	file    *wav.File
	streams map[string]*fileStream
}

func NewFileDevice(path string) (*FileDevice, error) {
	f, err := wav.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV source: %w", err)
	}
	if f.Frames() == 0 {
		return nil, fmt.Errorf("WAV source %s has no audio data", path)
	}
	return newFileDevice(filepath.Base(path), f), nil
}

func newFileDevice(name string, f *wav.File) *FileDevice {
	return &FileDevice{
		name:    name,
		file:    f,
		streams: make(map[string]*fileStream),
	}
}

func (d *FileDevice) ListSources() []string {
	return []string{d.name}
}

func (d *FileDevice) Start(id string, loop bool, maxSeconds, sampleRate int) (capture.Clip, error) {
	s, err := d.open(id, loop, maxSeconds, sampleRate)
	if err != nil {
		return nil, err
	}
	go d.readLoop(s)
	logger.Info("File source started: %s rate=%d channels=%d", d.name, sampleRate, d.file.Channels())
	return s.ring, nil
}

func (d *FileDevice) open(id string, loop bool, maxSeconds, sampleRate int) (*fileStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id != d.name {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	if _, ok := d.streams[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceBusy, id)
	}
	if d.file.SampleRate() != sampleRate {
		return nil, fmt.Errorf("%w: sample rate %d (expected %d)", ErrFormatMismatch, d.file.SampleRate(), sampleRate)
	}

	ring, err := NewRing(maxSeconds*sampleRate, d.file.Channels(), loop)
	if err != nil {
		return nil, err
	}
	s := &fileStream{
		ring:   ring,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	d.streams[id] = s
	return s, nil
}

func (d *FileDevice) readLoop(s *fileStream) {
	defer close(s.done)

	chunk := int(time.Duration(d.file.SampleRate()) * fileChunkInterval / time.Second)
	ticker := time.NewTicker(fileChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := d.advance(s, chunk); err != nil {
				logger.Error("File source %s: failed to read WAV data: %v", d.name, err)
				return
			}
		}
	}
}

// advance 从文件当前位置取 frames 帧写入环形区域，到文件末尾后从头继续
func (d *FileDevice) advance(s *fileStream, frames int) error {
	for frames > 0 {
		buf, err := d.file.Float32Buffer(s.pos, frames)
		if err != nil {
			return err
		}
		n := len(buf.Data) / buf.Format.NumChannels
		s.ring.Write(buf.Data)
		frames -= n
		s.pos += n
		if s.pos >= d.file.Frames() {
			s.pos = 0
		}
	}
	return nil
}

func (d *FileDevice) Position(id string) int {
	d.mu.Lock()
	s, ok := d.streams[id]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	return s.ring.Position()
}

func (d *FileDevice) Stop(id string) error {
	d.mu.Lock()
	s, ok := d.streams[id]
	delete(d.streams, id)
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}

	close(s.stopCh)
	<-s.done
	logger.Info("File source stopped: %s", d.name)
	return nil
}
