package playback

import (
	"fmt"
	"sync"

	"ringwav/internal/protocol/wav"
)

// Cursor 顺序读取 WAV 文件，按需解码
type Cursor struct {
	mu   sync.Mutex
	file *wav.File
	pos  int // 下一个读取的帧
}

func NewCursor(f *wav.File) *Cursor {
	return &Cursor{file: f}
}

// Read 从当前位置读取 len(dst)/Channels 帧，超出文件末尾的部分填充静音。
// 返回实际读到的帧数，读完后返回 0。
func (c *Cursor) Read(dst []float32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.file.Channels()
	if len(dst)%ch != 0 {
		return 0, fmt.Errorf("buffer of %d samples is not a whole number of %d-channel frames", len(dst), ch)
	}

	samples, err := wav.DecodeRange(c.file, c.pos, len(dst)/ch)
	if err != nil {
		return 0, err
	}
	n := copy(dst, samples)
	clear(dst[n:])

	frames := n / ch
	c.pos += frames
	return frames, nil
}

// Seek 跳到第 frame 帧，超出范围时截断到 [0, Frames()]
func (c *Cursor) Seek(frame int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = max(0, min(frame, c.file.Frames()))
}

func (c *Cursor) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Done 是否已经读到文件末尾
func (c *Cursor) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos >= c.file.Frames()
}
