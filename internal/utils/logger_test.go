// internal/utils/logger_test.go
package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, InitLogger(logFile))

	logger := GetLogger()
	logger.SetLogLevel(INFO)
	logger.Info("转换完成", map[string]interface{}{"chapters": 3})

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[INFO]")
	assert.Contains(t, string(content), "转换完成")
	assert.Contains(t, string(content), "chapters=3")
}

func TestLogger_LevelFilter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, InitLogger(logFile))

	logger := GetLogger()
	logger.SetLogLevel(ERROR)
	defer logger.SetLogLevel(INFO)

	logger.Info("被过滤的信息", nil)
	logger.Warn("被过滤的警告", nil)
	logger.Error("保留的错误", nil)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "被过滤")
	assert.Contains(t, string(content), "[ERROR]")
	assert.Contains(t, string(content), "保留的错误")
}
