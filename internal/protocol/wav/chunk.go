package wav

import (
	"encoding/binary"
	"fmt"
)

// FourCC 4 字节 ASCII 块标识，比较时区分大小写
type FourCC [4]byte

func (c FourCC) String() string {
	return string(c[:])
}

var (
	RiffID = FourCC{'R', 'I', 'F', 'F'}
	WaveID = FourCC{'W', 'A', 'V', 'E'}
	FmtID  = FourCC{'f', 'm', 't', ' '}
	DataID = FourCC{'d', 'a', 't', 'a'}
)

const (
	// ChunkHeaderSize 块头大小：4 字节 ID + 4 字节长度
	ChunkHeaderSize = 8
	// RiffHeaderSize RIFF 头大小："RIFF" + size + "WAVE"
	RiffHeaderSize = 12
)

// ChunkHeader 块头，Size 不包含块头本身的 8 字节
type ChunkHeader struct {
	ID   FourCC
	Size uint32
}

// ReadChunkHeader 从 buf 的 offset 处读取块头
func ReadChunkHeader(buf []byte, offset int) (ChunkHeader, error) {
	if offset < 0 || offset > len(buf) || len(buf)-offset < ChunkHeaderSize {
		return ChunkHeader{}, fmt.Errorf("%w: chunk header at offset %d needs %d bytes, buffer has %d",
			ErrTruncatedInput, offset, ChunkHeaderSize, len(buf))
	}

	var h ChunkHeader
	copy(h.ID[:], buf[offset:offset+4])
	h.Size = binary.LittleEndian.Uint32(buf[offset+4 : offset+8])
	return h, nil
}

// AppendTo 将块头追加到 dst，固定 8 字节
func (h ChunkHeader) AppendTo(dst []byte) []byte {
	dst = append(dst, h.ID[:]...)
	return binary.LittleEndian.AppendUint32(dst, h.Size)
}

// Bytes 编码块头
func (h ChunkHeader) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, ChunkHeaderSize))
}

// paddedSize 奇数长度的块后面跟一个填充字节
func (h ChunkHeader) paddedSize() int64 {
	return int64(h.Size) + int64(h.Size&1)
}

// chunkKind 按块标识分派的三种块
type chunkKind int

const (
	chunkUnknown chunkKind = iota
	chunkFormat
	chunkData
)

func kindOf(id FourCC) chunkKind {
	switch id {
	case FmtID:
		return chunkFormat
	case DataID:
		return chunkData
	default:
		return chunkUnknown
	}
}
