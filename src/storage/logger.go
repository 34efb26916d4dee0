package storage

import (
	"GexPrep/src/config"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// Logger 日志记录器结构体
type Logger struct {
	file     *os.File     // 日志文件句柄，控制台模式下为nil
	filename string       // 日志文件路径
	console  io.Writer    // 控制台输出
	hl       hclog.Logger // 实际负责格式化输出
	level    LogLevel     // 最低记录级别
	mu       sync.Mutex   // 互斥锁，保证并发安全
}

// NewLogger 创建同时写控制台和日志文件的记录器
// 参数:
//
//	filename: 日志文件路径
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename string) (*Logger, error) {
	// 打开或创建日志文件，权限设置为0644
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		file:     file,
		filename: filename,
		console:  os.Stdout,
		level:    INFO,
	}
	l.hl = l.newBackend()
	return l, nil
}

// NewConsoleLogger 创建只写入 w 的记录器
func NewConsoleLogger(w io.Writer) *Logger {
	l := &Logger{console: w, level: INFO}
	l.hl = l.newBackend()
	return l
}

func (l *Logger) newBackend() hclog.Logger {
	out := l.console
	if l.file != nil {
		out = io.MultiWriter(l.console, l.file)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "gexprep",
		Level:      hclog.Trace, // 级别过滤由 Logger 自己完成
		Output:     out,
		TimeFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel 按名称设置最低级别，无法识别时保持不变
func (l *Logger) SetLevel(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG", "TRACE":
		l.level = DEBUG
	case "INFO":
		l.level = INFO
	case "WARN", "WARNING":
		l.level = WARNING
	case "ERROR":
		l.level = ERROR
	}
}

// Log 关闭
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Enabled 判断 level 是否会被记录，用于跳过代价较高的消息构造
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// Reopen 重新打开一个文件，外部轮转(如 logrotate)后收到 SIGHUP 时调用
// 参数：
// filename：新文件的路径
// 返回值：
// error：重建文件时的错误
func (l *Logger) Reopen(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reopen(filename)
}

func (l *Logger) reopen(filename string) error {
	// 关闭旧文件
	if l.file != nil {
		_ = l.file.Close()
	}

	// 重新打开
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		l.hl = l.newBackend()
		return err
	}
	l.file = file
	l.filename = filename
	l.hl = l.newBackend()
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()         // 加锁保证线程安全
	defer l.mu.Unlock() // 方法结束时自动解锁

	if level < l.level {
		return
	}

	switch level {
	case DEBUG:
		l.hl.Debug(message)
	case INFO:
		l.hl.Info(message)
	case WARNING:
		l.hl.Warn(message)
	case ERROR:
		l.hl.Error(message)
	default:
		l.hl.Error(message, "level", level.String())
	}
}

// CheckRotate 日志文件超过 log_max_size 时轮转
func (l *Logger) CheckRotate(cfg *config.Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}

	limit := eval(cfg.LogMaxSize)
	if limit <= 0 || info.Size() <= limit {
		return nil
	}
	return l.rotateLog()
}

func (l *Logger) rotateLog() error {
	ext := filepath.Ext(l.filename)
	rotated := fmt.Sprintf("%s.%s%s",
		strings.TrimSuffix(l.filename, ext),
		time.Now().Format("20060102150405"),
		ext)

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	if err := os.Rename(l.filename, rotated); err != nil {
		return err
	}
	return l.reopen(l.filename)
}

// String 实现LogLevel的String方法
// 返回值:
//
//	string: 日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// eval 解析 "10 * 1024 * 1024" 形式的字节数
func eval(expr string) int64 {
	if strings.TrimSpace(expr) == "" {
		return 0
	}
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }   // 记录调试信息
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }    // 记录普通信息
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) } // 记录警告信息
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }   // 记录错误信息
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }   // 记录致命错误
