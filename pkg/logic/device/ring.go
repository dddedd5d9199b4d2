package device

import (
	"fmt"
	"sync"
)

// Ring 设备写入的环形区域，容量固定，按帧计数，采样交错存放。
// loop 为 false 时写满一圈后停止写入，写入位置回到 0。
type Ring struct {
	mu       sync.Mutex
	buf      []float32
	frames   int
	channels int
	head     int // 下一个写入的帧
	loop     bool
	done     bool
	written  int64 // 累计写入帧数
}

// NewRing 创建容量为 frames 帧的环形区域
func NewRing(frames, channels int, loop bool) (*Ring, error) {
	if frames <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid ring size: %d frames, %d channels", frames, channels)
	}
	return &Ring{
		buf:      make([]float32, frames*channels),
		frames:   frames,
		channels: channels,
		loop:     loop,
	}, nil
}

func (r *Ring) Frames() int   { return r.frames }
func (r *Ring) Channels() int { return r.channels }

// Write 写入交错采样，末尾不足一帧的部分丢弃，返回写入的帧数。
// 写到末尾后从头覆盖最旧的数据，不会阻塞调用方（通常是音频回调）。
func (r *Ring) Write(samples []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.channels
	frames := len(samples) / ch
	written := 0
	for written < frames && !r.done {
		n := min(frames-written, r.frames-r.head)
		copy(r.buf[r.head*ch:(r.head+n)*ch], samples[written*ch:(written+n)*ch])
		written += n
		r.head += n
		if r.head == r.frames {
			r.head = 0
			if !r.loop {
				r.done = true
			}
		}
	}
	r.written += int64(written)
	return written
}

// Position 当前写入位置，范围 [0, Frames())
func (r *Ring) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.head
}

// Written 累计写入的帧数
func (r *Ring) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Done 非循环模式下是否已写满一圈
func (r *Ring) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Read 从 offset 帧开始读取 len(dst)/Channels() 帧
func (r *Ring) Read(dst []float32, offset int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(dst)%r.channels != 0 {
		return fmt.Errorf("read buffer of %d samples is not a whole number of %d-channel frames", len(dst), r.channels)
	}
	n := len(dst) / r.channels
	if offset < 0 || offset+n > r.frames {
		return fmt.Errorf("read [%d, %d) outside ring of %d frames", offset, offset+n, r.frames)
	}
	copy(dst, r.buf[offset*r.channels:(offset+n)*r.channels])
	return nil
}
