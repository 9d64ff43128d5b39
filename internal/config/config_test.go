// internal/config/config_test.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 把所有路径类环境变量指向临时目录，避免在仓库里创建workshop等目录
func setTestEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("WORKSHOP_DIR", filepath.Join(dir, "workshop"))
	t.Setenv("STATIC_DIR", filepath.Join(dir, "static"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("PORT", "")
	t.Setenv("MAX_WORKERS", "")
	t.Setenv("MAX_SEGMENT_LENGTH", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_URL", "")
	t.Setenv("CONFIG_SECRET", "")
	return filepath.Join(dir, "workshop")
}

func TestLoad_Defaults(t *testing.T) {
	setTestEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Port)
	assert.Equal(t, 5, cfg.MaxWorkers)
	assert.Equal(t, 350, cfg.MaxSegmentLength)
	assert.True(t, cfg.DebugMode)
	assert.Empty(t, cfg.DeepSeekAPIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setTestEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_WORKERS", "8")
	t.Setenv("MAX_SEGMENT_LENGTH", "500")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 8, cfg.MaxWorkers)
	assert.Equal(t, 500, cfg.MaxSegmentLength)
	assert.Equal(t, "sk-test", cfg.DeepSeekAPIKey)
}

func TestInitConfig_DefaultsAndPersistence(t *testing.T) {
	workshop := setTestEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-init-test")

	require.NoError(t, InitConfig(workshop))

	cfg := GetCurrentConfig()
	assert.Equal(t, "deepseek", cfg.LLMProvider)
	assert.Equal(t, "sk-init-test", cfg.LLMConfig["api_key"])
	assert.Equal(t, "deepseek-chat", cfg.LLMConfig["default_model"])

	assert.FileExists(t, filepath.Join(workshop, "config.json"))
}

func TestInitConfig_EncryptedKeyRoundTrip(t *testing.T) {
	workshop := setTestEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-secret-key")
	t.Setenv("CONFIG_SECRET", "测试加密口令")

	require.NoError(t, InitConfig(workshop))

	// 内存中保持明文
	assert.Equal(t, "sk-secret-key", GetCurrentConfig().LLMConfig["api_key"])

	// 落盘的密钥已加密
	data, err := os.ReadFile(filepath.Join(workshop, "config.json"))
	require.NoError(t, err)

	var saved AppConfig
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.True(t, len(saved.LLMConfig["api_key"]) > len(encryptedKeyPrefix))
	assert.Contains(t, saved.LLMConfig["api_key"], encryptedKeyPrefix)
	assert.NotContains(t, saved.LLMConfig["api_key"], "sk-secret-key")

	// 重新初始化时从文件解密恢复明文
	t.Setenv("DEEPSEEK_API_KEY", "")
	require.NoError(t, InitConfig(workshop))
	assert.Equal(t, "sk-secret-key", GetCurrentConfig().LLMConfig["api_key"])
}

func TestInitConfig_EncryptedKeyWithoutSecret(t *testing.T) {
	workshop := setTestEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-secret-key")
	t.Setenv("CONFIG_SECRET", "口令")
	require.NoError(t, InitConfig(workshop))

	// 丢失口令时无法解密，密钥清空而不是报错
	t.Setenv("CONFIG_SECRET", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	require.NoError(t, InitConfig(workshop))
	assert.Empty(t, GetCurrentConfig().LLMConfig["api_key"])
}

func TestUpdateProcessingConfig(t *testing.T) {
	workshop := setTestEnv(t)
	require.NoError(t, InitConfig(workshop))

	require.NoError(t, UpdateProcessingConfig(10, 500))
	cfg := GetCurrentConfig()
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 500, cfg.MaxSegmentLength)

	assert.Error(t, UpdateProcessingConfig(0, 500))
	assert.Error(t, UpdateProcessingConfig(21, 500))
	assert.Error(t, UpdateProcessingConfig(10, 99))
	assert.Error(t, UpdateProcessingConfig(10, 2001))

	// 非法更新不影响已有配置
	cfg = GetCurrentConfig()
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 500, cfg.MaxSegmentLength)
}

func TestUpdateLLMConfig(t *testing.T) {
	workshop := setTestEnv(t)
	require.NoError(t, InitConfig(workshop))

	require.NoError(t, UpdateLLMConfig("openai", map[string]string{
		"api_key":       "sk-openai",
		"default_model": "gpt-4o-mini",
	}))

	cfg := GetCurrentConfig()
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMConfig["default_model"])
}

func TestInitConfig_SavedProcessingValuesSurvive(t *testing.T) {
	workshop := setTestEnv(t)
	require.NoError(t, InitConfig(workshop))
	require.NoError(t, UpdateProcessingConfig(3, 200))

	// 重新初始化时保留文件中的处理配置
	require.NoError(t, InitConfig(workshop))
	cfg := GetCurrentConfig()
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, 200, cfg.MaxSegmentLength)
}
