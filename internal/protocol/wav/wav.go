package wav

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// FormatPCM 整型 PCM
	FormatPCM uint16 = 1
	// FormatChunkSize 标准 PCM fmt 块大小
	FormatChunkSize = 16
	// CanonicalHeaderSize RIFF 头 + fmt 块 + data 块头
	CanonicalHeaderSize = RiffHeaderSize + ChunkHeaderSize + FormatChunkSize + ChunkHeaderSize
)

// RiffHeader 文件头
type RiffHeader struct {
	ID       FourCC // "RIFF"
	Size     uint32 // 文件总大小 - 8
	FormType FourCC // "WAVE"
}

func readRiffHeader(buf []byte) (RiffHeader, error) {
	if len(buf) < RiffHeaderSize {
		return RiffHeader{}, fmt.Errorf("%w: RIFF header needs %d bytes, have %d", ErrTruncatedInput, RiffHeaderSize, len(buf))
	}
	var h RiffHeader
	copy(h.ID[:], buf[0:4])
	h.Size = binary.LittleEndian.Uint32(buf[4:8])
	copy(h.FormType[:], buf[8:12])

	if h.ID != RiffID {
		return RiffHeader{}, fmt.Errorf("%w: not a RIFF file (id %q)", ErrBadFormat, h.ID.String())
	}
	if h.FormType != WaveID {
		return RiffHeader{}, fmt.Errorf("%w: not a WAVE file (form type %q)", ErrBadFormat, h.FormType.String())
	}
	return h, nil
}

// AppendTo 追加 12 字节 RIFF 头
func (h RiffHeader) AppendTo(dst []byte) []byte {
	dst = append(dst, h.ID[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, h.Size)
	return append(dst, h.FormType[:]...)
}

// WAVFormat WAV 文件格式信息
type WAVFormat struct {
	AudioFormat   uint16 // 音频格式（1 表示 PCM）
	NumChannels   uint16 // 声道数
	SampleRate    uint32 // 采样率
	ByteRate      uint32 // 字节率 = SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // 数据块对齐 = NumChannels * BitsPerSample/8
	BitsPerSample uint16 // 采样位数
}

// NewWAVFormat 创建 PCM 格式，ByteRate 和 BlockAlign 由其余字段推导
func NewWAVFormat(channels uint16, sampleRate uint32, bitsPerSample uint16) (WAVFormat, error) {
	f := WAVFormat{
		AudioFormat:   FormatPCM,
		NumChannels:   channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
	}
	f.BlockAlign = channels * (bitsPerSample / 8)
	f.ByteRate = sampleRate * uint32(f.BlockAlign)

	if err := f.Validate(); err != nil {
		return WAVFormat{}, err
	}
	return f, nil
}

// Validate 验证 WAV 格式是否合法
func (f *WAVFormat) Validate() error {
	if f.AudioFormat != FormatPCM {
		return fmt.Errorf("%w: unsupported audio format %d (expected 1 for PCM)", ErrBadFormat, f.AudioFormat)
	}
	if err := checkBitDepth(f.BitsPerSample); err != nil {
		return fmt.Errorf("%w: %w", ErrBadFormat, err)
	}
	if f.NumChannels == 0 {
		return fmt.Errorf("%w: channels must be at least 1", ErrBadFormat)
	}
	if f.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrBadFormat)
	}
	blockAlign := uint32(f.NumChannels) * uint32(f.BitsPerSample/8)
	if uint32(f.BlockAlign) != blockAlign || blockAlign > 0xFFFF {
		return fmt.Errorf("%w: invalid block align %d", ErrBadFormat, f.BlockAlign)
	}
	if uint64(f.ByteRate) != uint64(f.SampleRate)*uint64(blockAlign) {
		return fmt.Errorf("%w: invalid byte rate %d", ErrBadFormat, f.ByteRate)
	}
	return nil
}

// AppendTo 追加 16 字节 fmt 块内容
func (f WAVFormat) AppendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, f.AudioFormat)
	dst = binary.LittleEndian.AppendUint16(dst, f.NumChannels)
	dst = binary.LittleEndian.AppendUint32(dst, f.SampleRate)
	dst = binary.LittleEndian.AppendUint32(dst, f.ByteRate)
	dst = binary.LittleEndian.AppendUint16(dst, f.BlockAlign)
	return binary.LittleEndian.AppendUint16(dst, f.BitsPerSample)
}

// parseFormat 解析 fmt 块内容，忽略 16 字节之后的扩展字段
func parseFormat(body []byte) (WAVFormat, error) {
	if len(body) < FormatChunkSize {
		return WAVFormat{}, fmt.Errorf("%w: fmt chunk is %d bytes, need %d", ErrBadFormat, len(body), FormatChunkSize)
	}
	f := WAVFormat{
		AudioFormat:   binary.LittleEndian.Uint16(body[0:2]),
		NumChannels:   binary.LittleEndian.Uint16(body[2:4]),
		SampleRate:    binary.LittleEndian.Uint32(body[4:8]),
		ByteRate:      binary.LittleEndian.Uint32(body[8:12]),
		BlockAlign:    binary.LittleEndian.Uint16(body[12:14]),
		BitsPerSample: binary.LittleEndian.Uint16(body[14:16]),
	}
	if err := f.Validate(); err != nil {
		return WAVFormat{}, err
	}
	return f, nil
}

// File 一个完整的 WAV 文件：RIFF 头、格式描述和 PCM 数据。构建后不可修改。
type File struct {
	header RiffHeader
	format WAVFormat
	data   []byte
}

// Header 返回 RIFF 头
func (f *File) Header() RiffHeader {
	return f.header
}

// Format 返回格式信息
func (f *File) Format() WAVFormat {
	return f.format
}

// Data 返回原始 PCM 数据，调用方不得修改
func (f *File) Data() []byte {
	return f.data
}

func (f *File) Channels() int {
	return int(f.format.NumChannels)
}

func (f *File) SampleRate() int {
	return int(f.format.SampleRate)
}

func (f *File) BitsPerSample() int {
	return int(f.format.BitsPerSample)
}

// Frames 帧数（每帧包含所有声道的一个采样）
func (f *File) Frames() int {
	return len(f.data) / int(f.format.BlockAlign)
}

// Duration 音频时长
func (f *File) Duration() time.Duration {
	return time.Duration(f.Frames()) * time.Second / time.Duration(f.format.SampleRate)
}

// FormatDuration 格式化为 mm:ss.mmm
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, (ms/1000)%60, ms%1000)
}
