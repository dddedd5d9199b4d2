package playback

import (
	"bytes"
	"fmt"

	"ringwav/pkg/logger"

	"github.com/zaf/resample"
)

// Resampler 把交错排列的 16 位采样从一个采样率转换到另一个采样率。
// 输入输出采样率相同时直接透传。
type Resampler struct {
	resampler     *resample.Resampler
	buffer        *bytes.Buffer
	inputBuffer   []int16 // 累积不足一个处理单位的样本
	channels      int
	sampleRateIn  int
	sampleRateOut int
	minSamples    int // 每次送入重采样器的最小样本数
	closed        bool
}

func NewResampler(sampleRateIn, sampleRateOut, channels int) (*Resampler, error) {
	if sampleRateIn <= 0 || sampleRateOut <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid resampler parameters: %d Hz -> %d Hz, %d channels", sampleRateIn, sampleRateOut, channels)
	}

	r := &Resampler{
		channels:      channels,
		sampleRateIn:  sampleRateIn,
		sampleRateOut: sampleRateOut,
	}
	if sampleRateIn == sampleRateOut {
		return r, nil
	}

	buffer := new(bytes.Buffer)
	resampler, err := resample.New(
		buffer,
		float64(sampleRateIn),
		float64(sampleRateOut),
		channels,
		resample.I16,
		resample.HighQ,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.resampler = resampler
	r.buffer = buffer

	// 以输入采样率的 20ms 作为最小处理单位，保证按整帧切分
	r.minSamples = max(1, sampleRateIn*20/1000) * channels
	return r, nil
}

// Passthrough 输入输出采样率相同
func (r *Resampler) Passthrough() bool {
	return r.resampler == nil
}

// Process 送入一段样本，返回目前可以输出的重采样结果
func (r *Resampler) Process(samples []int16) ([]int16, error) {
	if r.closed {
		return nil, fmt.Errorf("resampler closed")
	}
	if r.Passthrough() {
		return append([]int16(nil), samples...), nil
	}

	r.inputBuffer = append(r.inputBuffer, samples...)
	if len(r.inputBuffer) < r.minSamples {
		return nil, nil
	}

	processable := (len(r.inputBuffer) / r.minSamples) * r.minSamples
	out, err := r.write(r.inputBuffer[:processable])
	if err != nil {
		return nil, err
	}

	remaining := copy(r.inputBuffer, r.inputBuffer[processable:])
	r.inputBuffer = r.inputBuffer[:remaining]
	return out, nil
}

func (r *Resampler) write(samples []int16) ([]int16, error) {
	audioBytes := make([]byte, len(samples)*2)
	for i, sample := range samples {
		audioBytes[i*2] = byte(sample)
		audioBytes[i*2+1] = byte(sample >> 8)
	}

	if _, err := r.resampler.Write(audioBytes); err != nil {
		logger.Error("Resampling %d Hz -> %d Hz failed: %v", r.sampleRateIn, r.sampleRateOut, err)
		return nil, err
	}
	return r.drain(), nil
}

// drain 取出重采样器已经输出的数据
func (r *Resampler) drain() []int16 {
	resampledBytes := r.buffer.Bytes()
	out := make([]int16, len(resampledBytes)/2)
	for i := range out {
		out[i] = int16(resampledBytes[i*2]) | int16(resampledBytes[i*2+1])<<8
	}
	r.buffer.Reset()
	return out
}

// Flush 送入剩余样本并结束重采样，之后不能再调用 Process
func (r *Resampler) Flush() ([]int16, error) {
	if r.closed {
		return nil, nil
	}
	if r.Passthrough() {
		r.closed = true
		return nil, nil
	}

	var out []int16
	tail := len(r.inputBuffer) / r.channels * r.channels
	if tail > 0 {
		var err error
		if out, err = r.write(r.inputBuffer[:tail]); err != nil {
			return nil, err
		}
	}
	r.inputBuffer = r.inputBuffer[:0]

	r.closed = true
	if err := r.resampler.Close(); err != nil {
		return out, fmt.Errorf("failed to close resampler: %w", err)
	}
	return append(out, r.drain()...), nil
}

// Close 放弃未处理的样本并释放资源
func (r *Resampler) Close() error {
	if r.closed || r.Passthrough() {
		r.closed = true
		return nil
	}
	r.closed = true
	return r.resampler.Close()
}
