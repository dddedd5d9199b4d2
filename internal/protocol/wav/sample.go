package wav

import (
	"fmt"
	"math"
)

// 编码使用 2^(bits-1)-1 作为满幅，解码除以 2^(bits-1)。
// 两者在边界上不是严格互逆的：EncodeSample(1.0, 16) 得到 32767，
// 再解码为 32767/32768；而 -32768 解码为 -1.0，-1.0 编码为 -32767。
// 所有位深都按有符号补码处理，包括 8 位。

func checkBitDepth(bits uint16) error {
	switch bits {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bits)
	}
}

// BytesPerSample 单个采样的字节数
func BytesPerSample(bits uint16) (int, error) {
	if err := checkBitDepth(bits); err != nil {
		return 0, err
	}
	return int(bits / 8), nil
}

// AppendSample 将归一化浮点采样编码为小端有符号 PCM 并追加到 dst。
// 超出 [-1, 1] 的值会被钳位，NaN 按静音处理。
func AppendSample(dst []byte, sample float32, bits uint16) ([]byte, error) {
	if err := checkBitDepth(bits); err != nil {
		return dst, err
	}

	v := float64(sample)
	switch {
	case math.IsNaN(v):
		v = 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}

	scale := float64(int64(1)<<(bits-1) - 1)
	u := uint64(int64(math.Round(v * scale)))
	for i := 0; i < int(bits/8); i++ {
		dst = append(dst, byte(u>>(8*i)))
	}
	return dst, nil
}

// EncodeSample 编码单个采样
func EncodeSample(sample float32, bits uint16) ([]byte, error) {
	return AppendSample(make([]byte, 0, 4), sample, bits)
}

// DecodeSample 从小端字节还原有符号整数并映射到 [-1.0, 1.0)
func DecodeSample(b []byte, bits uint16) (float32, error) {
	if err := checkBitDepth(bits); err != nil {
		return 0, err
	}
	width := int(bits / 8)
	if len(b) < width {
		return 0, fmt.Errorf("%w: sample needs %d bytes, have %d", ErrTruncatedInput, width, len(b))
	}
	return decodeSample(b, bits), nil
}

// decodeSample 调用方保证位深合法且 b 足够长
func decodeSample(b []byte, bits uint16) float32 {
	var u uint64
	for i := 0; i < int(bits/8); i++ {
		u |= uint64(b[i]) << (8 * i)
	}
	shift := 64 - bits
	n := int64(u<<shift) >> shift
	return float32(float64(n) / float64(int64(1)<<(bits-1)))
}

// EncodeSamples 批量编码
func EncodeSamples(samples []float32, bits uint16) ([]byte, error) {
	width, err := BytesPerSample(bits)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(samples)*width)
	for _, s := range samples {
		out, _ = AppendSample(out, s, bits)
	}
	return out, nil
}

// DecodeSamples 批量解码，len(b) 必须是采样宽度的整数倍
func DecodeSamples(b []byte, bits uint16) ([]float32, error) {
	width, err := BytesPerSample(bits)
	if err != nil {
		return nil, err
	}
	if len(b)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of sample width %d", ErrTruncatedInput, len(b), width)
	}
	out := make([]float32, len(b)/width)
	for i := range out {
		out[i] = decodeSample(b[i*width:], bits)
	}
	return out, nil
}
