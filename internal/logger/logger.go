// Package logger configures the go-logging backends shared by every geobase
// package and bridges GORM's SQL tracing into them.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/op/go-logging"
	gormlogger "gorm.io/gorm/logger"
)

const (
	LOG_ROTATION_INTERVAL = 24 * time.Hour      // every day
	LOG_MAX_AGE           = 30 * 24 * time.Hour // every month
	LOG_FORMAT            = "%{time:2006-01-02 15:04:05.000} [%{level:.4s}] %{module} %{shortfile} %{message}"
	LOG_COLOR_FORMAT      = "%{color}%{time:2006-01-02 15:04:05.000} [%{level:.4s}]%{color:reset} %{module} %{shortfile} %{message}"
)

var log = logging.MustGetLogger("logger")

// InitConsoleLog sends every module to stdout at the given level.
func InitConsoleLog(levelString string) error {
	level, err := parseLevel(levelString)
	if err != nil {
		return err
	}
	stdout := logging.AddModuleLevel(
		logging.NewBackendFormatter(
			logging.NewLogBackend(os.Stdout, "", 0),
			logging.MustStringFormatter(LOG_COLOR_FORMAT),
		),
	)
	stdout.SetLevel(level, "")
	logging.SetBackend(stdout)
	return nil
}

// InitLog logs to stdout and to a daily-rotated file at filePath.
func InitLog(filePath string, levelString string) error {
	level, err := parseLevel(levelString)
	if err != nil {
		return err
	}

	stdout := logging.AddModuleLevel(
		logging.NewBackendFormatter(
			logging.NewLogBackend(os.Stdout, "", 0),
			logging.MustStringFormatter(LOG_COLOR_FORMAT),
		),
	)
	stdout.SetLevel(level, "")

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("log dir: %w", err)
	}

	ioWriter, err := rotatelogs.New(
		filePath+".%Y-%m-%d",
		rotatelogs.WithLinkName(filePath),
		rotatelogs.WithMaxAge(LOG_MAX_AGE),
		rotatelogs.WithRotationTime(LOG_ROTATION_INTERVAL),
	)
	if err != nil {
		return fmt.Errorf("rotatelogs: %w", err)
	}

	file := logging.AddModuleLevel(
		logging.NewBackendFormatter(
			logging.NewLogBackend(ioWriter, "", 0),
			logging.MustStringFormatter(LOG_FORMAT),
		),
	)
	file.SetLevel(level, "")
	logging.SetBackend(stdout, file)
	return nil
}

// Init picks InitLog when filePath is set, InitConsoleLog otherwise.
func Init(filePath, levelString string) error {
	if filePath == "" {
		return InitConsoleLog(levelString)
	}
	return InitLog(filePath, levelString)
}

func parseLevel(s string) (logging.Level, error) {
	if s == "" {
		return logging.INFO, nil
	}
	return logging.LogLevel(strings.ToUpper(s))
}

// GormWriter routes GORM's logger output to the "gorm" module.
type GormWriter struct {
	log *logging.Logger
}

func NewGormWriter() GormWriter {
	return GormWriter{log: logging.MustGetLogger("gorm")}
}

func (w GormWriter) Printf(format string, args ...interface{}) {
	w.log.Infof(format, args...)
}

// NewGormLogger logs slow queries and SQL traces through GormWriter.
func NewGormLogger(slow time.Duration) gormlogger.Interface {
	level := gormlogger.Warn
	if logging.GetLevel("gorm") >= logging.DEBUG {
		level = gormlogger.Info
	}
	log.Debugf("gorm log level %d, slow threshold %s", level, slow)
	return gormlogger.New(NewGormWriter(), gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
