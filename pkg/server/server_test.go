package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logic/capture"
	"ringwav/pkg/logic/dumper"
	"ringwav/pkg/logic/playback"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentClip struct{ frames int }

func (c silentClip) Frames() int   { return c.frames }
func (c silentClip) Channels() int { return 1 }
func (c silentClip) Read(dst []float32, offset int) error {
	clear(dst)
	return nil
}

type stubDevice struct {
	mu      sync.Mutex
	sources []string
	pos     int
}

func (d *stubDevice) ListSources() []string { return d.sources }
func (d *stubDevice) Start(id string, loop bool, maxSeconds, sampleRate int) (capture.Clip, error) {
	return silentClip{frames: maxSeconds * sampleRate}, nil
}
func (d *stubDevice) Position(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}
func (d *stubDevice) Stop(id string) error { return nil }

type testEnv struct {
	server *RecorderServer
	router *gin.Engine
	device *stubDevice
	output *playback.BufferOutput
}

func newTestEnv(t *testing.T, sources ...string) *testEnv {
	gin.SetMode(gin.TestMode)

	device := &stubDevice{sources: sources}
	capturer, err := capture.NewCapture(device, 16)
	require.NoError(t, err)
	store, err := dumper.NewWAVDumper(t.TempDir(), "take")
	require.NoError(t, err)
	recorder := capture.NewRecorder(capturer, store, capture.RecorderOptions{
		MaxSeconds:   1,
		SampleRate:   8000,
		PollInterval: 10 * time.Millisecond,
		AutoSave:     true,
	})
	output := playback.NewBufferOutput()
	player, err := playback.NewPlayer(output, playback.Options{SampleRate: 8000, Channels: 1, BufferSize: 256})
	require.NoError(t, err)

	s := NewRecorderServer(recorder, store, player)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local) }
	return &testEnv{server: s, router: s.Router(), device: device, output: output}
}

func (e *testEnv) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func wavBytes(t *testing.T, frames int) []byte {
	f, err := wav.Build(1, 8000, 16, make([]byte, frames*2))
	require.NoError(t, err)
	return f.Bytes()
}

func TestServer_CaptureFlow(t *testing.T) {
	env := newTestEnv(t, "mic")

	w := env.do(http.MethodGet, "/capture/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Idle", decode(t, w)["state"])

	w = env.do(http.MethodPost, "/capture/start", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "mic", decode(t, w)["source"])

	w = env.do(http.MethodPost, "/capture/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodGet, "/capture/status", nil)
	assert.Equal(t, "Capturing", decode(t, w)["state"])

	env.device.mu.Lock()
	env.device.pos = 4000
	env.device.mu.Unlock()

	w = env.do(http.MethodPost, "/capture/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode(t, w)["recording"].(map[string]any)
	assert.EqualValues(t, 4000, rec["frames"])
	assert.Equal(t, "00:00.500", rec["duration"])
	name := rec["name"].(string)
	assert.Regexp(t, `^take_\d{8}_\d{6}\.wav$`, name)

	w = env.do(http.MethodPost, "/capture/stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodGet, "/recordings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["recordings"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0].(map[string]any)["name"])

	w = env.do(http.MethodGet, "/recordings/"+name, nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode(t, w)
	assert.EqualValues(t, 8000, info["sample_rate"])
	assert.EqualValues(t, 16, info["bits_per_sample"])

	w = env.do(http.MethodGet, "/recordings/"+name+"/raw", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Len(t, w.Body.Bytes(), wav.CanonicalHeaderSize+8000)
}

func TestServer_NoDevice(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/capture/start", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_Upload(t *testing.T) {
	env := newTestEnv(t, "mic")

	w := env.do(http.MethodPost, "/recordings", wavBytes(t, 800))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "take_20240501_120000.wav", decode(t, w)["name"])

	w = env.do(http.MethodPost, "/recordings", []byte("RIFF"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(http.MethodPost, "/recordings", []byte("RIFF\x04\x00\x00\x00WAVE"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "missing fmt/data")
}

func TestServer_NotFoundAndInvalid(t *testing.T) {
	env := newTestEnv(t, "mic")

	w := env.do(http.MethodGet, "/recordings/missing.wav", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/recordings/notes.txt/raw", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/recordings/missing.wav/play", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Playback(t *testing.T) {
	env := newTestEnv(t, "mic")

	w := env.do(http.MethodPost, "/recordings", wavBytes(t, 800))
	require.Equal(t, http.StatusCreated, w.Code)
	name := decode(t, w)["name"].(string)

	w = env.do(http.MethodPost, "/playback/stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/recordings/"+name+"/play", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.NoError(t, env.server.player.Wait())
	assert.Len(t, env.output.Samples(), 800)

	w = env.do(http.MethodGet, "/playback/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["playing"])
}

func TestServer_ShutdownStopsCapture(t *testing.T) {
	env := newTestEnv(t, "mic")

	w := env.do(http.MethodPost, "/capture/start", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	env.server.Shutdown()
	assert.Equal(t, capture.StateIdle, env.server.recorder.Capture().State())

	entries, err := env.server.store.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(capture.ErrAlreadyCapturing))
	assert.Equal(t, http.StatusConflict, statusFor(capture.ErrNotCapturing))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(capture.ErrNoDevice))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wav.ErrBadFormat))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wav.ErrMissingChunk))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wav.ErrTruncatedInput))
	assert.Equal(t, http.StatusNotFound, statusFor(dumper.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
