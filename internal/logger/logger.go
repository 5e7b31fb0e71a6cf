package logger

import (
	"fmt"
	"os"
)

// LevelEnv 覆寫日誌級別的環境變數
const LevelEnv = "SFTPSWEEP_LOG_LEVEL"

// New 建立 logger 並交由呼叫端注入到各元件（不再使用全域 logger）
// 若 SFTPSWEEP_LOG_LEVEL 為合法級別，將覆寫 config.Level
func New(config Config) (Logger, error) {
	if lvl, ok := ParseLevel(os.Getenv(LevelEnv)); ok {
		config.Level = lvl
	}

	logger, err := NewSlogLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create slog logger: %w", err)
	}
	return logger, nil
}

// Nop 回傳不輸出的 logger，用於測試或未設定時
func Nop() Logger {
	return &NullLogger{}
}

// NullLogger 空 logger（不做任何事）
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
