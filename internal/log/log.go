package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志对象
var Logger *zap.SugaredLogger

func init() {
	InitLogger(DefaultLogConfig())
}

// LogConfig 日志配置
type LogConfig struct {
	Filename   string        // 日志文件路径，为空时使用/dev/stderr
	MaxSize    int           // 单个日志文件最大大小，单位MB
	MaxBackups int           // 最大保留的旧日志文件数量
	MaxAge     int           // 旧日志文件保留的最大天数
	Compress   bool          // 是否压缩旧日志文件
	Level      zapcore.Level // 日志级别
	Mirror     bool          // 写文件时是否同时输出到stderr
}

// DefaultLogConfig 返回默认日志配置
//
// stdout is reserved for cat-files output, so nothing here ever writes to it.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Filename:   "",
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
		Level:      zapcore.InfoLevel,
		Mirror:     false,
	}
}

// InitLogger 初始化日志系统
func InitLogger(config LogConfig) {
	var writeSyncers []zapcore.WriteSyncer

	if config.Filename == "" || config.Filename == "/dev/stderr" {
		writeSyncers = append(writeSyncers, zapcore.Lock(zapcore.AddSync(os.Stderr)))
	} else {
		writeSyncers = append(writeSyncers, getLogWriter(config))
		if config.Mirror {
			writeSyncers = append(writeSyncers, zapcore.Lock(zapcore.AddSync(os.Stderr)))
		}
	}

	core := zapcore.NewCore(getEncoder(), zapcore.NewMultiWriteSyncer(writeSyncers...), config.Level)
	Logger = zap.New(core, zap.AddCaller()).Sugar()
}

// Init 简化初始化。level 为空时使用 info，debug 为 true 时强制 debug 级别
func Init(filename, level string, debug bool) error {
	config := DefaultLogConfig()
	config.Filename = filename
	config.Mirror = filename != ""

	if level != "" {
		l, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return err
		}
		config.Level = l
	}
	if debug {
		config.Level = zapcore.DebugLevel
	}
	InitLogger(config)
	return nil
}

// Close 关闭日志，确保所有日志都被写入
func Close() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func getEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getLogWriter(config LogConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	})
}
