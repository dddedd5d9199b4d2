package capture

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"

	"github.com/google/uuid"
)

// State 采集状态
type State int

const (
	StateIdle State = iota
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCapturing:
		return "Capturing"
	default:
		return "Unknown"
	}
}

// SessionInfo 会话快照
type SessionInfo struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Capacity      int       `json:"capacity"` // 环形区域容量（帧）
	Channels      int       `json:"channels"`
	SampleRate    int       `json:"sample_rate"`
	BitsPerSample int       `json:"bits_per_sample"`
	StartedAt     time.Time `json:"started_at"`
	Cursor        int       `json:"cursor"`
	Bytes         int       `json:"bytes"`
}

// Recording 停止采集后得到的 PCM 数据
type Recording struct {
	Session SessionInfo
	PCM     []byte
}

// Frames 录到的帧数
func (r *Recording) Frames() int {
	align := r.Session.Channels * r.Session.BitsPerSample / 8
	if align == 0 {
		return 0
	}
	return len(r.PCM) / align
}

// Build 将录音封装为 WAV 文件
func (r *Recording) Build() (*wav.File, error) {
	return wav.Build(uint16(r.Session.Channels), uint32(r.Session.SampleRate), uint16(r.Session.BitsPerSample), r.PCM)
}

type session struct {
	info     SessionInfo
	clip     Clip
	cursor   int // 上次读到的位置
	sink     bytes.Buffer
	scratch  []float32
	lastPoll time.Time
}

// drain 读取 [from, to) 区间的帧，编码后追加到 sink
func (s *session) drain(from, to int, bits uint16) (int, error) {
	frames := to - from
	if frames <= 0 {
		return 0, nil
	}

	n := frames * s.info.Channels
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	samples := s.scratch[:n]
	if err := s.clip.Read(samples, from); err != nil {
		return 0, fmt.Errorf("failed to read frames [%d, %d): %w", from, to, err)
	}

	buf := s.sink.AvailableBuffer()
	for _, v := range samples {
		buf, _ = wav.AppendSample(buf, v, bits)
	}
	s.sink.Write(buf)
	return frames, nil
}

// Capture 从设备的环形缓冲区中持续取出新数据。
//
// 设备循环写入一块固定容量的区域，Capture 在每次 Poll 时比较设备写入位置和
// 上次读到的位置，取出新增的帧。设备在两次 Poll 之间写满一整圈（或更多）时，
// 无法区分绕了一圈还是两圈，数据会丢失，因此调用方每圈至少要 Poll 一次。
//
// 同一时刻只允许一个会话。所有操作由同一把锁串行化。
type Capture struct {
	mu      sync.Mutex
	device  Device
	bits    uint16
	session *session
	now     func() time.Time
}

// NewCapture 创建采集器，bitsPerSample 为输出 PCM 的位深
func NewCapture(device Device, bitsPerSample uint16) (*Capture, error) {
	if _, err := wav.BytesPerSample(bitsPerSample); err != nil {
		return nil, err
	}
	return &Capture{
		device: device,
		bits:   bitsPerSample,
		now:    time.Now,
	}, nil
}

// State 返回当前状态
func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return StateCapturing
	}
	return StateIdle
}

// Session 返回当前会话的快照
func (c *Capture) Session() (SessionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return SessionInfo{}, false
	}
	return c.session.snapshot(), true
}

func (s *session) snapshot() SessionInfo {
	info := s.info
	info.Cursor = s.cursor
	info.Bytes = s.sink.Len()
	return info
}

// Start 使用第一个可用的采集源开始采集
func (c *Capture) Start(maxSeconds, sampleRate int) (SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		logger.Warn("Capture already running, session %s", c.session.info.ID)
		return SessionInfo{}, ErrAlreadyCapturing
	}
	if maxSeconds <= 0 || sampleRate <= 0 {
		return SessionInfo{}, fmt.Errorf("invalid capture parameters: max_seconds=%d sample_rate=%d", maxSeconds, sampleRate)
	}

	sources := c.device.ListSources()
	if len(sources) == 0 {
		logger.Error("No capture device available")
		return SessionInfo{}, ErrNoDevice
	}
	source := sources[0]

	clip, err := c.device.Start(source, true, maxSeconds, sampleRate)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("failed to start device %q: %w", source, err)
	}
	if clip.Frames() <= 0 || clip.Channels() <= 0 {
		c.device.Stop(source) //nolint:errcheck
		return SessionInfo{}, fmt.Errorf("device %q returned an empty clip (%d frames, %d channels)",
			source, clip.Frames(), clip.Channels())
	}

	now := c.now()
	c.session = &session{
		info: SessionInfo{
			ID:            uuid.NewString(),
			Source:        source,
			Capacity:      clip.Frames(),
			Channels:      clip.Channels(),
			SampleRate:    sampleRate,
			BitsPerSample: int(c.bits),
			StartedAt:     now,
		},
		clip:     clip,
		cursor:   0,
		lastPoll: now,
	}

	logger.Info("Capture started: session=%s source=%q capacity=%d channels=%d rate=%d",
		c.session.info.ID, source, clip.Frames(), clip.Channels(), sampleRate)
	return c.session.snapshot(), nil
}

// Poll 以设备当前写入位置 cursor 取出新增的帧，返回本次追加的帧数。
// cursor 小于上次位置时视为绕回：先读 [last, capacity)，再读 [0, cursor)。
// 无论读取是否成功，上次位置都会更新为 cursor。
func (c *Capture) Poll(cursor int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll(cursor)
}

// Tick 查询设备位置并 Poll，由定时器驱动
func (c *Capture) Tick() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return 0, ErrNotCapturing
	}
	return c.poll(c.device.Position(c.session.info.Source))
}

func (c *Capture) poll(cursor int) (int, error) {
	s := c.session
	if s == nil {
		return 0, ErrNotCapturing
	}
	if cursor < 0 || cursor >= s.info.Capacity {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrCursorOutOfRange, cursor, s.info.Capacity)
	}

	now := c.now()
	lap := time.Duration(s.info.Capacity) * time.Second / time.Duration(s.info.SampleRate)
	if elapsed := now.Sub(s.lastPoll); elapsed >= lap {
		logger.Warn("Capture %s: %v since last poll is at least one lap (%v), samples may be lost",
			s.info.ID, elapsed, lap)
	}
	s.lastPoll = now

	last := s.cursor
	s.cursor = cursor

	switch {
	case cursor == last:
		return 0, nil
	case cursor > last:
		return s.drain(last, cursor, c.bits)
	default:
		head, err := s.drain(last, s.info.Capacity, c.bits)
		if err != nil {
			return head, err
		}
		tail, err := s.drain(0, cursor, c.bits)
		return head + tail, err
	}
}

// Stop 结束会话并返回累积的 PCM 数据。
// 停止前会按设备当前位置做最后一次 Poll；设备停止失败时仍然释放会话并返回数据和错误。
func (c *Capture) Stop() (*Recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		logger.Warn("Capture is not running")
		return nil, ErrNotCapturing
	}
	defer func() {
		c.session = nil
	}()

	var errs []error
	if _, err := c.poll(c.device.Position(s.info.Source)); err != nil {
		errs = append(errs, fmt.Errorf("final poll: %w", err))
	}
	if err := c.device.Stop(s.info.Source); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop device %q: %w", s.info.Source, err))
	}

	rec := &Recording{
		Session: s.snapshot(),
		PCM:     s.sink.Bytes(),
	}
	logger.Info("Capture stopped: session=%s bytes=%d frames=%d", s.info.ID, len(rec.PCM), rec.Frames())

	return rec, errors.Join(errs...)
}
