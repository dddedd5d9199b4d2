package wav

import (
	"fmt"
	"io"
	"os"
)

// Parse 解析完整的 WAV 字节流。
//
// 从偏移 12 开始逐块遍历：遇到 "fmt " 解析格式，遇到 "data" 取出 PCM 数据后停止，
// 其他块（JUNK、LIST 等）直接跳过。奇数长度的块后面有一个填充字节，计算下一块
// 偏移时会算上它。任何错误都不会返回部分填充的 File。
func Parse(data []byte) (*File, error) {
	header, err := readRiffHeader(data)
	if err != nil {
		return nil, err
	}

	var (
		format    WAVFormat
		pcm       []byte
		foundFmt  bool
		foundData bool
	)

	offset := int64(RiffHeaderSize)
	size := int64(len(data))

walk:
	for offset < size {
		chunk, err := ReadChunkHeader(data, int(offset))
		if err != nil {
			return nil, err
		}

		bodyStart := offset + ChunkHeaderSize
		bodyEnd := bodyStart + int64(chunk.Size)
		if bodyEnd > size {
			return nil, fmt.Errorf("%w: chunk %q at offset %d claims %d bytes, only %d remain",
				ErrTruncatedInput, chunk.ID.String(), offset, chunk.Size, size-bodyStart)
		}
		body := data[bodyStart:bodyEnd]

		switch kindOf(chunk.ID) {
		case chunkFormat:
			if format, err = parseFormat(body); err != nil {
				return nil, err
			}
			foundFmt = true
		case chunkData:
			pcm = make([]byte, len(body))
			copy(pcm, body)
			foundData = true
			break walk
		case chunkUnknown:
			// 跳过其他块
		}

		offset = bodyStart + chunk.paddedSize()
	}

	if !foundFmt {
		return nil, fmt.Errorf("%w: %q", ErrMissingChunk, FmtID.String())
	}
	if !foundData {
		return nil, fmt.Errorf("%w: %q", ErrMissingChunk, DataID.String())
	}
	if len(pcm)%int(format.BlockAlign) != 0 {
		return nil, fmt.Errorf("%w: data length %d is not a multiple of block align %d",
			ErrBadFormat, len(pcm), format.BlockAlign)
	}

	return &File{
		header: header,
		format: format,
		data:   pcm,
	}, nil
}

// Decode 从 reader 读取全部内容并解析
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV data: %w", err)
	}
	return Parse(data)
}

// ReadFile 读取并解析 WAV 文件
func ReadFile(filename string) (*File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WAV file %s: %w", filename, err)
	}
	return f, nil
}
