package capture

// Device 采集设备。实现方负责真正的硬件交互，这里只依赖最小接口。
type Device interface {
	// ListSources 返回可用的采集源，第一个作为默认
	ListSources() []string
	// Start 开始采集，设备以 loop 方式循环写入容量为 maxSeconds*sampleRate 帧的环形区域
	Start(id string, loop bool, maxSeconds, sampleRate int) (Clip, error)
	// Position 返回设备当前写入位置，范围 [0, Clip.Frames())
	Position(id string) int
	// Stop 停止采集
	Stop(id string) error
}

// Clip 设备写入的环形区域
type Clip interface {
	// Frames 容量（帧）
	Frames() int
	Channels() int
	// Read 从第 offset 帧开始读取 len(dst)/Channels() 帧，不能跨越区域末尾
	Read(dst []float32, offset int) error
}
