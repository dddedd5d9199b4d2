package playback

import (
	"context"
	"math"
	"testing"
	"time"

	"ringwav/internal/protocol/wav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFile(t *testing.T, channels uint16, sampleRate uint32, samples []float32) *wav.File {
	pcm, err := wav.EncodeSamples(samples, 16)
	require.NoError(t, err)
	f, err := wav.Build(channels, sampleRate, 16, pcm)
	require.NoError(t, err)
	return f
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%64) / 64
	}
	return out
}

func TestCursor_ReadAndPad(t *testing.T) {
	f := buildFile(t, 2, 8000, []float32{0.5, -0.5, 0.25, -0.25, 0.125, -0.125})
	c := NewCursor(f)

	dst := make([]float32, 4)
	n, err := c.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDeltaSlice(t, []float32{0.5, -0.5, 0.25, -0.25}, dst, 1e-4)
	assert.False(t, c.Done())

	dst = []float32{9, 9, 9, 9}
	n, err = c.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDeltaSlice(t, []float32{0.125, -0.125, 0, 0}, dst, 1e-4, "past the end is silence")
	assert.True(t, c.Done())

	n, err = c.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []float32{0, 0, 0, 0}, dst)

	_, err = c.Read(make([]float32, 3))
	assert.Error(t, err, "partial frame")
}

func TestCursor_Seek(t *testing.T) {
	f := buildFile(t, 1, 8000, []float32{0, 0.25, 0.5, 0.75})
	c := NewCursor(f)

	c.Seek(2)
	assert.Equal(t, 2, c.Position())
	dst := make([]float32, 1)
	_, err := c.Read(dst)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dst[0], 1e-4)

	c.Seek(100)
	assert.Equal(t, 4, c.Position())
	assert.True(t, c.Done())

	c.Seek(-5)
	assert.Equal(t, 0, c.Position())
}

func TestRemix(t *testing.T) {
	assert.Equal(t, []int16{16384, 16384, -16384, -16384}, remix([]float32{0.5, -0.5}, 1, 2))
	assert.Equal(t, []int16{0, 16384}, remix([]float32{0.5, -0.5, 0.25, 0.75}, 2, 1))
	assert.Equal(t, []int16{32767, -32767}, remix([]float32{2, -2}, 2, 2), "clamped")
	assert.Equal(t, []int16{0}, remix([]float32{float32(math.NaN())}, 1, 1))
}

func TestPlayer_PlayPassthrough(t *testing.T) {
	samples := ramp(100)
	f := buildFile(t, 1, 8000, samples)
	out := NewBufferOutput()
	p, err := NewPlayer(out, Options{SampleRate: 8000, Channels: 2, BufferSize: 7})
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), "ramp.wav", f))

	rate, channels := out.Format()
	assert.Equal(t, 8000, rate)
	assert.Equal(t, 2, channels)
	assert.False(t, out.IsPlaying(), "output closed after playback")

	decoded, err := wav.DecodeRange(f, 0, f.Frames())
	require.NoError(t, err)
	want := remix(decoded, 1, 2)
	assert.Equal(t, want, out.Samples())
	assert.False(t, p.Status().Playing)
}

func TestPlayer_Resample(t *testing.T) {
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	f := buildFile(t, 1, 16000, samples)
	out := NewBufferOutput()
	p, err := NewPlayer(out, Options{SampleRate: 8000, Channels: 1, BufferSize: 512})
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), "sine.wav", f))
	assert.InDelta(t, 8000, len(out.Samples()), 200)
}

func TestPlayer_AlreadyPlayingAndStop(t *testing.T) {
	f := buildFile(t, 1, 8000, make([]float32, 8000*10))
	p, err := NewPlayer(NewNullOutput(true), Options{SampleRate: 8000, Channels: 1, BufferSize: 80})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Stop(), ErrNotPlaying)

	require.NoError(t, p.Start("long.wav", f))
	assert.ErrorIs(t, p.Start("long.wav", f), ErrAlreadyPlaying)
	assert.ErrorIs(t, p.Play(context.Background(), "long.wav", f), ErrAlreadyPlaying)

	status := p.Status()
	assert.True(t, status.Playing)
	assert.Equal(t, "long.wav", status.Name)
	assert.Equal(t, 80000, status.Frames)

	require.NoError(t, p.Stop())
	assert.False(t, p.Status().Playing)
	assert.ErrorIs(t, p.Wait(), context.Canceled)

	require.NoError(t, p.Start("long.wav", f), "player is reusable after stop")
	require.NoError(t, p.Stop())
}

func TestPlayer_ContextCancel(t *testing.T) {
	f := buildFile(t, 1, 8000, make([]float32, 8000*10))
	p, err := NewPlayer(NewNullOutput(true), Options{SampleRate: 8000, Channels: 1, BufferSize: 80})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = p.Play(ctx, "long.wav", f)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlayer_StartWait(t *testing.T) {
	f := buildFile(t, 2, 8000, ramp(64))
	out := NewBufferOutput()
	p, err := NewPlayer(out, Options{SampleRate: 8000, Channels: 2, BufferSize: 16})
	require.NoError(t, err)

	require.NoError(t, p.Start("short.wav", f))
	require.NoError(t, p.Wait())
	assert.Len(t, out.Samples(), 64)
}

func TestNewPlayer_InvalidOptions(t *testing.T) {
	_, err := NewPlayer(NewBufferOutput(), Options{SampleRate: 0, Channels: 1, BufferSize: 1})
	assert.Error(t, err)
}

func TestNullOutput(t *testing.T) {
	n := NewNullOutput(false)
	assert.Error(t, n.Write([]int16{1}))
	require.NoError(t, n.Open(8000, 1, 64))
	assert.True(t, n.IsPlaying())
	assert.NoError(t, n.Write(make([]int16, 8000)))
	require.NoError(t, n.Close())
	assert.False(t, n.IsPlaying())
}

func TestResampler_Passthrough(t *testing.T) {
	r, err := NewResampler(8000, 8000, 2)
	require.NoError(t, err)
	assert.True(t, r.Passthrough())

	out, err := r.Process([]int16{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, 3, 4}, out)

	tail, err := r.Flush()
	require.NoError(t, err)
	assert.Empty(t, tail)

	_, err = r.Process([]int16{1})
	assert.Error(t, err)
}

func TestResampler_Accumulates(t *testing.T) {
	r, err := NewResampler(48000, 16000, 1)
	require.NoError(t, err)
	defer r.Close()

	// 20ms @ 48kHz = 960 个样本，不足时先累积
	out, err := r.Process(make([]int16, 500))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Len(t, r.inputBuffer, 500)

	_, err = r.Process(make([]int16, 500))
	require.NoError(t, err)
	assert.Len(t, r.inputBuffer, 40)
}

func TestResampler_InvalidParams(t *testing.T) {
	_, err := NewResampler(0, 8000, 1)
	assert.Error(t, err)
	_, err = NewResampler(8000, 8000, 0)
	assert.Error(t, err)
}
