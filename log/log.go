package log

// 日志组件：基于zap构建JSON日志，按插件（zapcore.Core）组合输出目标，文件输出由lumberjack负责轮转

import (
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Plugin = zapcore.Core

// 单个日志文件的最大大小，单位MB
const maxFileSize = 200

/*
无输入，输出一个Zap日志库的编码器配置

在生产环境默认配置的基础上，日志级别使用大写，时间使用ISO8601格式
*/
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// 仅当日志级别>=DPanicLevel时记录堆栈，并附带调用者信息
func defaultOptions() []zap.Option {
	var stackTraceLevel zap.LevelEnablerFunc = func(level zapcore.Level) bool {
		return level >= zapcore.DPanicLevel
	}
	return []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(stackTraceLevel),
	}
}

/*
输入一个日志插件和可选的Zap配置选项，输出一个Zap日志库实例

默认选项优先应用，传入的选项追加在后面
*/
func NewLogger(plugin Plugin, options ...zap.Option) *zap.Logger {
	return zap.New(plugin, append(defaultOptions(), options...)...)
}

// 使用JSON编码器创建一个写入指定目标的插件
func NewPlugin(writer zapcore.WriteSyncer, enabler zapcore.LevelEnabler) Plugin {
	return zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), writer, enabler)
}

func NewStdoutPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stdout)), enabler)
}

func NewStderrPlugin(enabler zapcore.LevelEnabler) Plugin {
	return NewPlugin(zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

/*
输入一个日志文件路径和日志级别过滤器，输出一个插件和一个io.Closer

lumberjack没有暴露sync方法，调用方需要在进程退出前Close，保证缓冲内容落盘
*/
func NewFilePlugin(filePath string, enabler zapcore.LevelEnabler) (Plugin, io.Closer) {
	writer := &lumberjack.Logger{
		Filename:  filePath,
		MaxSize:   maxFileSize,
		LocalTime: true,
		Compress:  true,
	}
	return NewPlugin(zapcore.AddSync(writer), enabler), writer
}

// 将多个插件合并为一个，日志会同时写入所有插件
func NewTeePlugin(plugins ...Plugin) Plugin {
	return zapcore.NewTee(plugins...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

/*
输入日志级别文本和日志文件路径，输出日志实例、一个io.Closer和一个错误

日志始终写入标准输出；文件路径非空时同时写入轮转文件。级别文本非法时返回错误
*/
func Setup(levelText, filePath string) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, nil, err
	}

	plugin := NewStdoutPlugin(level)
	var closer io.Closer = nopCloser{}
	if filePath != "" {
		var filePlugin Plugin
		filePlugin, closer = NewFilePlugin(filePath, level)
		plugin = NewTeePlugin(plugin, filePlugin)
	}
	return NewLogger(plugin), closer, nil
}

// 刷新日志并关闭文件输出，两个错误都会被返回
func Close(logger *zap.Logger, closer io.Closer) error {
	return multierr.Append(logger.Sync(), closer.Close())
}
