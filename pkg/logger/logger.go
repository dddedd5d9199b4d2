package logger

import (
	"io"
	"os"
	"sync"

	"ringwav/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
	once  sync.Once
)

// 未调用 InitLogger 之前（例如单元测试）日志直接丢弃
func init() {
	Log = zap.NewNop()
	Sugar = Log.Sugar()
}

// BracketEncoder 输出 [time][LEVEL][caller] message 格式的日志
type BracketEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

// DefaultLogConfig returns default log configuration
func DefaultLogConfig() config.LogConfig {
	return config.LogConfig{
		Level:      "info",
		File:       "logs/ringwav.log",
		MaxSize:    100, // 100 MB
		MaxBackups: 5,   // keep 5 backups
		MaxAge:     30,  // 30 days
		Compress:   true,
	}
}

func NewBracketEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return &BracketEncoder{
		Encoder: zapcore.NewJSONEncoder(config),
		pool:    buffer.NewPool(),
	}
}

func (e *BracketEncoder) Clone() zapcore.Encoder {
	return &BracketEncoder{
		Encoder: e.Encoder.Clone(),
		pool:    e.pool,
	}
}

func (e *BracketEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := e.pool.Get()

	buf.AppendString("[")
	buf.AppendString(entry.Time.Format("2006-01-02T15:04:05.000-0700"))
	buf.AppendString("]")

	buf.AppendString("[")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString("]")

	buf.AppendString("[")
	buf.AppendString(entry.Caller.TrimmedPath())
	buf.AppendString("]")

	if entry.LoggerName != "" {
		buf.AppendString("[")
		buf.AppendString(entry.LoggerName)
		buf.AppendString("]")
	}

	buf.AppendString(" ")
	buf.AppendString(entry.Message)
	buf.AppendString("\n")

	return buf, nil
}

// newCore 创建写到 w 的 core
func newCore(w io.Writer, level zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapcore.NewCore(
		NewBracketEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
}

// InitLogger initializes the global logger instance
// logLevel: "debug", "info", "warn", "error", "dpanic", "panic", "fatal"
// logFile: path to log file, if empty logs will be written to stdout only
func InitLogger(cfg *config.LogConfig) {
	once.Do(func() {
		if cfg == nil {
			defaultConfig := DefaultLogConfig()
			cfg = &defaultConfig
		}

		level := zap.InfoLevel
		if err := level.Set(cfg.Level); err != nil {
			level = zap.InfoLevel
		}

		core := newCore(os.Stdout, level)
		if cfg.File != "" {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize, // megabytes
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge, // days
				Compress:   cfg.Compress,
			}
			core = zapcore.NewTee(core, newCore(rotator, level))
		}

		Log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
		Sugar = Log.Sugar()
	})
}

// Debug logs a message at debug level
func Debug(msg string, fields ...interface{}) {
	Sugar.Debugf(msg, fields...)
}

// Info logs a message at info level
func Info(msg string, fields ...interface{}) {
	Sugar.Infof(msg, fields...)
}

// Warn logs a message at warn level
func Warn(msg string, fields ...interface{}) {
	Sugar.Warnf(msg, fields...)
}

// Error logs a message at error level
func Error(msg string, fields ...interface{}) {
	Sugar.Errorf(msg, fields...)
}

// Fatal logs a message at fatal level
func Fatal(msg string, fields ...interface{}) {
	Sugar.Fatalf(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}
