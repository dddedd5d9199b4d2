package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`    // MB
	MaxBackups int    `yaml:"max_backups"` // 保留的旧文件个数
	MaxAge     int    `yaml:"max_age"`     // 天
	Compress   bool   `yaml:"compress"`
}

type CaptureConfig struct {
	Device        string        `yaml:"device"` // portaudio 或 file
	SourceFile    string        `yaml:"source_file"`
	Dir           string        `yaml:"dir"`
	Prefix        string        `yaml:"prefix"`
	SampleRate    int           `yaml:"sample_rate"`
	Channels      int           `yaml:"channels"`
	BitsPerSample int           `yaml:"bits_per_sample"`
	MaxSeconds    int           `yaml:"max_seconds"` // 环形缓冲区一圈的时长
	PollInterval  time.Duration `yaml:"poll_interval"`
	AutoSave      bool          `yaml:"auto_save"`
}

type PlaybackConfig struct {
	Output     string `yaml:"output"` // oto 或 null
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	BufferSize int    `yaml:"buffer_size"` // 每次拉取的帧数
}

type Config struct {
	Server struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"server"`
	Capture  CaptureConfig  `yaml:"capture"`
	Playback PlaybackConfig `yaml:"playback"`
	Log      LogConfig      `yaml:"log"`
}

// Default 返回默认配置
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Capture.Device == "" {
		c.Capture.Device = "portaudio"
	}
	if c.Capture.Dir == "" {
		c.Capture.Dir = "recordings"
	}
	if c.Capture.Prefix == "" {
		c.Capture.Prefix = "recording"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.Channels == 0 {
		c.Capture.Channels = 1
	}
	if c.Capture.BitsPerSample == 0 {
		c.Capture.BitsPerSample = 16
	}
	if c.Capture.MaxSeconds == 0 {
		c.Capture.MaxSeconds = 1
	}
	if c.Capture.PollInterval == 0 {
		c.Capture.PollInterval = 50 * time.Millisecond
	}
	if c.Playback.Output == "" {
		c.Playback.Output = "oto"
	}
	if c.Playback.SampleRate == 0 {
		c.Playback.SampleRate = 48000
	}
	if c.Playback.Channels == 0 {
		c.Playback.Channels = 2
	}
	if c.Playback.BufferSize == 0 {
		c.Playback.BufferSize = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() error {
	if v := os.Getenv("RINGWAV_CAPTURE_DIR"); v != "" {
		c.Capture.Dir = v
	}
	if v := os.Getenv("RINGWAV_CAPTURE_PREFIX"); v != "" {
		c.Capture.Prefix = v
	}
	if v := os.Getenv("RINGWAV_CAPTURE_DEVICE"); v != "" {
		c.Capture.Device = v
	}
	if v := os.Getenv("RINGWAV_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RINGWAV_HTTP_PORT %q: %v", v, err)
		}
		c.Server.HTTPPort = port
	}
	return nil
}

// Validate 检查配置是否合法
func (c *Config) Validate() error {
	switch c.Capture.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported capture bits_per_sample: %d", c.Capture.BitsPerSample)
	}
	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("capture sample_rate must be positive, got %d", c.Capture.SampleRate)
	}
	if c.Capture.Channels <= 0 || c.Capture.Channels > 0xFFFF {
		return fmt.Errorf("invalid capture channels: %d", c.Capture.Channels)
	}
	if c.Capture.MaxSeconds <= 0 {
		return fmt.Errorf("capture max_seconds must be positive, got %d", c.Capture.MaxSeconds)
	}
	// 每圈至少要轮询一次，否则无法区分绕了一圈还是两圈
	if c.Capture.PollInterval <= 0 || c.Capture.PollInterval >= time.Duration(c.Capture.MaxSeconds)*time.Second {
		return fmt.Errorf("capture poll_interval %v must be positive and shorter than one lap (%ds)",
			c.Capture.PollInterval, c.Capture.MaxSeconds)
	}
	switch c.Capture.Device {
	case "portaudio":
	case "file":
		if c.Capture.SourceFile == "" {
			return fmt.Errorf("capture device \"file\" requires source_file")
		}
	default:
		return fmt.Errorf("unknown capture device: %q", c.Capture.Device)
	}
	switch c.Playback.Output {
	case "oto", "null":
	default:
		return fmt.Errorf("unknown playback output: %q", c.Playback.Output)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// .env 文件可选
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return config, nil
}
