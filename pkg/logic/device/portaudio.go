package device

import (
	"fmt"
	"strings"
	"sync"

	"ringwav/pkg/logger"
	"ringwav/pkg/logic/capture"

	"github.com/gordonklaus/portaudio"
)

const defaultFramesPerBuffer = 512

var _ capture.Device = (*PortAudioDevice)(nil)

type paStream struct {
	stream *portaudio.Stream
	ring   *Ring
}

// PortAudioDevice 通过 PortAudio 采集麦克风，回调直接写入环形区域
type PortAudioDevice struct {
	mu              sync.Mutex
	channels        int
	framesPerBuffer int
	streams         map[string]*paStream
}

// NewPortAudioDevice 初始化 PortAudio，使用完毕后需要调用 Close
func NewPortAudioDevice(channels, framesPerBuffer int) (*PortAudioDevice, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = defaultFramesPerBuffer
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	return &PortAudioDevice{
		channels:        channels,
		framesPerBuffer: framesPerBuffer,
		streams:         make(map[string]*paStream),
	}, nil
}

// inputDevices 返回所有输入设备，默认输入设备排在第一位
func (d *PortAudioDevice) inputDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var inputs []*portaudio.DeviceInfo
	for _, info := range devices {
		if info.MaxInputChannels < d.channels {
			continue
		}
		if def != nil && info.Name == def.Name {
			inputs = append([]*portaudio.DeviceInfo{info}, inputs...)
			continue
		}
		inputs = append(inputs, info)
	}
	return inputs, nil
}

func (d *PortAudioDevice) ListSources() []string {
	inputs, err := d.inputDevices()
	if err != nil {
		logger.Error("Failed to list input devices: %v", err)
		return nil
	}
	names := make([]string, 0, len(inputs))
	for _, info := range inputs {
		names = append(names, info.Name)
	}
	return names
}

func (d *PortAudioDevice) Start(id string, loop bool, maxSeconds, sampleRate int) (capture.Clip, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.streams[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceBusy, id)
	}

	inputs, err := d.inputDevices()
	if err != nil {
		return nil, err
	}
	var info *portaudio.DeviceInfo
	for _, in := range inputs {
		if in.Name == id {
			info = in
			break
		}
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}

	ring, err := NewRing(maxSeconds*sampleRate, d.channels, loop)
	if err != nil {
		return nil, err
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = d.channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = d.framesPerBuffer

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		ring.Write(in)
	})
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "denied") || strings.Contains(msg, "unauthorized") {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("portaudio open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close() //nolint:errcheck
		return nil, fmt.Errorf("portaudio start stream: %w", err)
	}

	d.streams[id] = &paStream{stream: stream, ring: ring}
	logger.Info("PortAudio stream started: device=%q rate=%d channels=%d frames=%d",
		id, sampleRate, d.channels, ring.Frames())
	return ring, nil
}

func (d *PortAudioDevice) Position(id string) int {
	d.mu.Lock()
	s, ok := d.streams[id]
	d.mu.Unlock()
	if !ok {
		return 0
	}
	return s.ring.Position()
}

func (d *PortAudioDevice) Stop(id string) error {
	d.mu.Lock()
	s, ok := d.streams[id]
	delete(d.streams, id)
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}

	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	if stopErr != nil {
		return fmt.Errorf("portaudio stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("portaudio close stream: %w", closeErr)
	}
	logger.Info("PortAudio stream stopped: device=%q", id)
	return nil
}

// Close 停止所有流并释放 PortAudio
func (d *PortAudioDevice) Close() error {
	d.mu.Lock()
	ids := make([]string, 0, len(d.streams))
	for id := range d.streams {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		if err := d.Stop(id); err != nil {
			logger.Warn("Failed to stop stream %q: %v", id, err)
		}
	}
	return portaudio.Terminate()
}
