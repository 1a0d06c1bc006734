package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, logging.INFO, level)

	level, err = parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, logging.DEBUG, level)

	_, err = parseLevel("chatty")
	assert.Error(t, err)
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init("", "loud"))
}

func TestInitLogWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "geobase.log")
	require.NoError(t, InitLog(path, "INFO"))
	t.Cleanup(func() { _ = InitConsoleLog("INFO") })

	logging.MustGetLogger("test").Info("hello from the test")

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	body, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello from the test")
}

func TestNewGormLoggerFollowsModuleLevel(t *testing.T) {
	require.NoError(t, InitConsoleLog("INFO"))
	logging.SetLevel(logging.DEBUG, "gorm")
	t.Cleanup(func() { logging.SetLevel(logging.INFO, "gorm") })

	l := NewGormLogger(time.Second)
	assert.NotNil(t, l.LogMode(gormlogger.Silent))
}
