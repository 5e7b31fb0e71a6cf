package logger

import (
	"io"
	"strings"
)

// Logger 元件共用的日誌介面，由 cmd 建立後注入 service 與 lifecycle
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Sync() error
	Shutdown() error // 關閉檔案輸出
}

// Level 日誌級別
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel looks up a level name, ignoring case. Unknown names return
// LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return LevelInfo, false
	}
	return l, true
}

// Format 控制 console 輸出格式；輪替檔案只會是 text 或 json
type Format int

const (
	FormatText Format = iota
	FormatJSON
	// FormatPretty 彩色終端輸出（tint）；非 TTY 時自動關閉顏色
	FormatPretty
)

var formatNames = map[string]Format{
	"text":    FormatText,
	"json":    FormatJSON,
	"pretty":  FormatPretty,
	"console": FormatPretty,
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatPretty:
		return "pretty"
	default:
		return "text"
	}
}

// ParseFormat looks up a format name, ignoring case. Unknown names return
// FormatText and false.
func ParseFormat(s string) (Format, bool) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return FormatText, false
	}
	return f, true
}

// Output 日誌輸出目標
type Output int

const (
	OutputStdout Output = iota
	OutputStderr
	OutputFile
)

// Config 日誌配置
type Config struct {
	Level   Level
	Format  Format
	Outputs []OutputConfig
	File    FileConfig

	// Secrets 為 profile 密碼與金鑰 passphrase，出現在任何訊息或參數中都會被遮蔽
	Secrets []string
}

// OutputConfig 輸出配置；Writer 非 nil 時取代 stdout/stderr（測試用）
type OutputConfig struct {
	Type   Output
	Writer io.Writer
}

// FileConfig 輪替檔案設定（lumberjack）
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// DefaultFileConfig returns the rotation settings used when file logging
// is enabled without tuning it
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Enabled:    true,
		Path:       path,
		MaxSizeMB:  10,
		MaxAgeDays: 30,
		MaxBackups: 5,
		Compress:   true,
	}
}
