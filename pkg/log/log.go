// Package log 提供基于 zerolog 的全局日志，stderr 输出可选 console 或 json，文件输出由 lumberjack 轮转.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/gradevault/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按全局配置初始化 logger，并同步 gin 的运行模式.
func Init() {
	initOnce.Do(func() {
		cfg := configs.GetConfig()

		logger = New(cfg.Log, cfg.Server.Debug)
		log.Logger = logger

		mode := gin.ReleaseMode
		if cfg.Server.Debug {
			mode = gin.DebugMode
		}

		gin.SetMode(mode)
	})
}

// New 按配置构建一个 logger，不修改全局状态.
func New(cfg configs.LogConfig, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	if debug && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	zc := zerolog.New(output(cfg)).Level(lvl).With().Timestamp().Str("app", configs.AppName)
	if debug {
		zc = zc.Caller()
	}

	return zc.Logger()
}

func output(cfg configs.LogConfig) io.Writer {
	var stderr io.Writer = os.Stderr
	if cfg.Format != "json" {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	if !cfg.EnableFile || cfg.FilePath == "" {
		return stderr
	}

	// 文件中始终写 json，便于采集
	return zerolog.MultiLevelWriter(stderr, &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}

// Logger 返回全局 logger，未初始化时先按当前配置初始化.
func Logger() *zerolog.Logger {
	Init()
	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// GinWriter 把 gin 的文本输出逐行转成 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.logger.WithLevel(w.level).Msg(line)
		}
	}

	return len(p), nil
}
