package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"stem-service/pkg/config"
)

// Fields 结构化日志字段
type Fields = map[string]interface{}

// Logger 日志服务
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

var (
	globalMu     sync.RWMutex
	globalLogger = &Logger{entry: logrus.NewEntry(logrus.StandardLogger())}
)

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	out, closer := newWriter(cfg.Log)
	l.SetOutput(out)

	return &Logger{entry: logrus.NewEntry(l), closer: closer}
}

func newWriter(cfg config.LogConfig) (io.Writer, io.Closer) {
	var rotate *lumberjack.Logger
	if cfg.Filename != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.Filename), 0o755)
		rotate = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		if rotate != nil {
			return rotate, rotate
		}
	case "both":
		if rotate != nil {
			return io.MultiWriter(os.Stdout, rotate), rotate
		}
	case "stderr":
		return os.Stderr, nil
	}
	return os.Stdout, nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// SetGlobalLogger 设置全局日志服务
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Global 返回全局日志服务
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Entry exposes the underlying logrus entry for adapters such as the gorm logger.
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

// With 返回带固定字段的子日志
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields)), closer: l.closer}
}

func (l *Logger) withFields(fields []Fields) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	merged := logrus.Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return l.entry.WithFields(merged)
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.withFields(fields).Debug(msg) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.withFields(fields).Info(msg) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.withFields(fields).Warn(msg) }
func (l *Logger) Error(msg string, fields ...Fields) { l.withFields(fields).Error(msg) }
func (l *Logger) Fatal(msg string, fields ...Fields) { l.withFields(fields).Fatal(msg) }

func Debug(msg string, fields ...Fields) { Global().Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { Global().Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { Global().Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { Global().Error(msg, fields...) }
func Fatal(msg string, fields ...Fields) { Global().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { Global().entry.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Global().entry.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Global().entry.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Global().entry.Errorf(format, args...) }
