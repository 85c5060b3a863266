// internal/utils/logger/config.go
package logger

import "io"

type Config struct {
	LogFile     string // empty disables the JSON file sink
	MaxSize     int    // megabytes
	MaxAge      int    // days
	MaxBackups  int
	Compress    bool
	Development bool
	Output      io.Writer // console sink, stderr when nil
}

// DefaultConfig returns a console-only logger configuration
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "",
		MaxSize:     10,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}
