package dumper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"ringwav/internal/protocol/wav"
	"ringwav/pkg/logger"
)

var (
	ErrInvalidName = errors.New("dumper: invalid recording name")
	ErrNotFound    = errors.New("dumper: recording not found")
)

const (
	defaultPrefix = "recording"
	timeLayout    = "20060102_150405"
	extension     = ".wav"
)

var unsafeChars = regexp.MustCompile(`[^0-9a-zA-Z\-_]+`)

// Entry 目录中的一个录音文件
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// WAVDumper 把录音写入目录，文件名为 <prefix>_yyyyMMdd_HHmmss.wav
type WAVDumper struct {
	dir    string
	prefix string
}

func NewWAVDumper(dir, prefix string) (*WAVDumper, error) {
	if dir == "" {
		return nil, fmt.Errorf("recording directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}
	return &WAVDumper{dir: dir, prefix: SanitizePrefix(prefix)}, nil
}

// SanitizePrefix 把文件名前缀中的非法字符替换为下划线
func SanitizePrefix(prefix string) string {
	prefix = strings.Trim(unsafeChars.ReplaceAllString(prefix, "_"), "_")
	if prefix == "" {
		return defaultPrefix
	}
	return prefix
}

func (d *WAVDumper) Dir() string { return d.dir }

// FileName 返回 at 时刻对应的文件名
func (d *WAVDumper) FileName(at time.Time) string {
	return d.prefix + "_" + at.Format(timeLayout) + extension
}

// Save 写入 f，同一秒内重名时追加序号，返回文件路径
func (d *WAVDumper) Save(f *wav.File, at time.Time) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %v", err)
	}

	base := strings.TrimSuffix(d.FileName(at), extension)
	name := base + extension
	for i := 1; ; i++ {
		path := filepath.Join(d.dir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			name = fmt.Sprintf("%s_%d%s", base, i, extension)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create WAV file: %v", err)
		}

		if _, err := f.WriteTo(file); err != nil {
			file.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write WAV file: %v", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("failed to close WAV file: %v", err)
		}
		logger.Debug("WAV file written: %s (%d bytes)", path, wav.CanonicalHeaderSize+len(f.Data()))
		return path, nil
	}
}

// Path 校验录音名并返回完整路径
func (d *WAVDumper) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		!strings.EqualFold(filepath.Ext(name), extension) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(d.dir, name), nil
}

// List 按修改时间从新到旧列出目录中的 WAV 文件
func (d *WAVDumper) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %v", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), extension) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].Name > entries[j].Name
		}
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Load 读取并解析录音
func (d *WAVDumper) Load(name string) (*wav.File, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := wav.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, err
}

// ReadRaw 返回录音文件的原始字节
func (d *WAVDumper) ReadRaw(name string) ([]byte, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return data, err
}
