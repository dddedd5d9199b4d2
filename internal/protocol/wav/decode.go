package wav

import (
	"fmt"

	"github.com/go-audio/audio"
)

// DecodeRange 按需解码 [startFrame, startFrame+count) 区间的帧，返回交错排列的浮点采样。
// 超出文件末尾的部分被截断，startFrame 等于或超过总帧数时返回空切片。
func DecodeRange(f *File, startFrame, count int) ([]float32, error) {
	if startFrame < 0 || count < 0 {
		return nil, fmt.Errorf("%w: start %d, count %d", ErrInvalidRange, startFrame, count)
	}

	frames := f.Frames()
	if startFrame >= frames {
		return []float32{}, nil
	}
	end := startFrame + count
	if end > frames || end < startFrame {
		end = frames
	}

	align := int(f.format.BlockAlign)
	return DecodeSamples(f.data[startFrame*align:end*align], f.format.BitsPerSample)
}

// Float32Buffer 以 go-audio 的缓冲区形式返回指定区间
func (f *File) Float32Buffer(startFrame, count int) (*audio.Float32Buffer, error) {
	data, err := DecodeRange(f, startFrame, count)
	if err != nil {
		return nil, err
	}
	return &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: f.Channels(),
			SampleRate:  f.SampleRate(),
		},
		Data:           data,
		SourceBitDepth: f.BitsPerSample(),
	}, nil
}
