package testcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Client 录音服务的 HTTP 客户端，用于联调
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Recording 服务端返回的录音信息
type Recording struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Channels      int    `json:"channels"`
	SampleRate    int    `json:"sample_rate"`
	BitsPerSample int    `json:"bits_per_sample"`
	Frames        int    `json:"frames"`
	Bytes         int    `json:"bytes"`
	Duration      string `json:"duration"`
}

type StopResponse struct {
	Session   map[string]any `json:"session"`
	Recording Recording      `json:"recording"`
	Error     string         `json:"error"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

// StatusCode 返回错误中的 HTTP 状态码，非 HTTP 错误返回 0
func StatusCode(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.code
	}
	return 0
}

func (c *Client) do(method, path string, body []byte, want int, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return &statusError{code: resp.StatusCode, body: string(data)}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *Client) Start() (map[string]any, error) {
	var out map[string]any
	err := c.do(http.MethodPost, "/capture/start", nil, http.StatusCreated, &out)
	return out, err
}

func (c *Client) Stop() (*StopResponse, error) {
	var out StopResponse
	if err := c.do(http.MethodPost, "/capture/stop", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Upload(filename string) (*Recording, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %v", err)
	}
	var out Recording
	if err := c.do(http.MethodPost, "/recordings", data, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Download(name string) ([]byte, error) {
	var data []byte
	err := c.do(http.MethodGet, "/recordings/"+name+"/raw", nil, http.StatusOK, &data)
	return data, err
}

func (c *Client) Play(name string) error {
	return c.do(http.MethodPost, "/recordings/"+name+"/play", nil, http.StatusAccepted, nil)
}
