package wav

import "errors"

var (
	// ErrBadFormat 魔数错误、格式描述不合法或参数不合法
	ErrBadFormat = errors.New("wav: bad format")
	// ErrMissingChunk 缺少必需的 "fmt " 或 "data" 块
	ErrMissingChunk = errors.New("wav: missing chunk")
	// ErrTruncatedInput 缓冲区比块头或块内容声明的长度短
	ErrTruncatedInput = errors.New("wav: truncated input")
	// ErrUnsupportedBitDepth 采样位数不在 8/16/24/32 之内
	ErrUnsupportedBitDepth = errors.New("wav: unsupported bits per sample")
	// ErrInvalidRange 解码区间非法
	ErrInvalidRange = errors.New("wav: invalid sample range")
)
