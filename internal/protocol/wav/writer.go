package wav

import (
	"fmt"
	"io"
	"math"
	"os"
)

// Build 由声道数、采样率、位深和 PCM 数据构建 WAV 文件
func Build(channels uint16, sampleRate uint32, bitsPerSample uint16, pcm []byte) (*File, error) {
	format, err := NewWAVFormat(channels, sampleRate, bitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("invalid WAV format: %w", err)
	}
	if len(pcm)%int(format.BlockAlign) != 0 {
		return nil, fmt.Errorf("%w: pcm length %d is not a multiple of block align %d",
			ErrBadFormat, len(pcm), format.BlockAlign)
	}
	if uint64(len(pcm)) > math.MaxUint32-(CanonicalHeaderSize-ChunkHeaderSize) {
		return nil, fmt.Errorf("%w: pcm length %d does not fit a RIFF size field", ErrBadFormat, len(pcm))
	}

	data := make([]byte, len(pcm))
	copy(data, pcm)

	// 4 (WAVE) + (8 + 16) fmt 块 + (8 + len) data 块
	size := 4 + (ChunkHeaderSize + FormatChunkSize) + (ChunkHeaderSize + uint32(len(pcm)))

	return &File{
		header: RiffHeader{ID: RiffID, Size: size, FormType: WaveID},
		format: format,
		data:   data,
	}, nil
}

// Bytes 按标准 44 字节头 + PCM 数据的布局序列化，块的顺序固定为 fmt、data
func (f *File) Bytes() []byte {
	out := make([]byte, 0, CanonicalHeaderSize+len(f.data))
	out = RiffHeader{
		ID:       RiffID,
		Size:     4 + (ChunkHeaderSize + FormatChunkSize) + (ChunkHeaderSize + uint32(len(f.data))),
		FormType: WaveID,
	}.AppendTo(out)
	out = ChunkHeader{ID: FmtID, Size: FormatChunkSize}.AppendTo(out)
	out = f.format.AppendTo(out)
	out = ChunkHeader{ID: DataID, Size: uint32(len(f.data))}.AppendTo(out)
	return append(out, f.data...)
}

// WriteTo 实现 io.WriterTo
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("failed to write WAV data: %w", err)
	}
	return int64(n), nil
}

// WriteFile 将 WAV 文件写入磁盘
func WriteFile(filename string, f *File) error {
	if err := os.WriteFile(filename, f.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
