package eventlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/zhitaogpt/BinanceAlphaTool/pkg/logger"
)

// Level 日志条目级别
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// 条目前缀标记，面板按前缀着色
func (l Level) marker() string {
	switch l {
	case LevelSuccess:
		return "✅"
	case LevelWarning:
		return "⚠️"
	case LevelError:
		return "❌"
	default:
		return "ℹ️"
	}
}

// Log 追加式事件日志，保存人类可读的状态行。
// 单写多读：交易循环是唯一写入方，控制面快照并发读取。
// 无上限增长由消费方自行处理（协议约定）。
type Log struct {
	mu      sync.RWMutex
	entries []string
	now     func() time.Time
}

func New() *Log {
	return &Log{now: time.Now}
}

func (l *Log) append(level Level, msg string) {
	line := fmt.Sprintf("[%s] %s %s", l.now().Format("15:04:05"), level.marker(), msg)

	l.mu.Lock()
	l.entries = append(l.entries, line)
	l.mu.Unlock()

	// 同步镜像到 logrus，文件日志里也能看到完整事件流
	switch level {
	case LevelWarning:
		logger.Warnf("%s", msg)
	case LevelError:
		logger.Errorf("%s", msg)
	default:
		logger.Infof("%s", msg)
	}
}

// Infof 记录普通信息
func (l *Log) Infof(format string, args ...interface{}) {
	l.append(LevelInfo, fmt.Sprintf(format, args...))
}

// Successf 记录成功事件
func (l *Log) Successf(format string, args ...interface{}) {
	l.append(LevelSuccess, fmt.Sprintf(format, args...))
}

// Warnf 记录警告
func (l *Log) Warnf(format string, args ...interface{}) {
	l.append(LevelWarning, fmt.Sprintf(format, args...))
}

// Errorf 记录错误
func (l *Log) Errorf(format string, args ...interface{}) {
	l.append(LevelError, fmt.Sprintf(format, args...))
}

// Snapshot 返回当前全部条目的只读副本
func (l *Log) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail 返回最近 n 条
func (l *Log) Tail(n int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]string, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len 返回条目数量
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
