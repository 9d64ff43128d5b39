// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// 配置文件中加密存储的密钥前缀
const encryptedKeyPrefix = "enc:"

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port        string `json:"port"`
	WorkshopDir string `json:"workshop_dir"`
	StaticDir   string `json:"static_dir"`
	LogDir      string `json:"log_dir"`
	DebugMode   bool   `json:"debug_mode"`

	// 文本处理配置
	MaxWorkers       int `json:"max_workers"`
	MaxSegmentLength int `json:"max_segment_length"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// Config 存储应用配置
type Config struct {
	Port             string
	DeepSeekAPIKey   string
	LLMAPIURL        string
	WorkshopDir      string
	StaticDir        string
	LogDir           string
	DebugMode        bool
	MaxWorkers       int
	MaxSegmentLength int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	// 创建配置
	config := &Config{
		Port:             getEnv("PORT", "8888"),
		DeepSeekAPIKey:   getEnv("DEEPSEEK_API_KEY", ""),
		LLMAPIURL:        getEnv("LLM_API_URL", ""),
		WorkshopDir:      getEnvPath("WORKSHOP_DIR", "workshop"),
		StaticDir:        getEnvPath("STATIC_DIR", "static"),
		LogDir:           getEnvPath("LOG_DIR", "logs"),
		DebugMode:        getEnvBool("DEBUG_MODE", true),
		MaxWorkers:       getEnvInt("MAX_WORKERS", 5),
		MaxSegmentLength: getEnvInt("MAX_SEGMENT_LENGTH", 350),
	}

	// 验证API密钥
	if config.DeepSeekAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置DeepSeek API密钥，将需要在设置页面中配置才能调用LLM")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数类型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Printf("警告: 环境变量 %s 不是有效整数: %s\n", key, value)
		return defaultValue
	}
	return n
}

// InitConfig 初始化配置管理器
func InitConfig(workshopDir string) error {
	configFile = filepath.Join(workshopDir, "config.json")

	// 加载基础配置
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	// 创建初始配置
	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:             baseConfig.Port,
		WorkshopDir:      baseConfig.WorkshopDir,
		StaticDir:        baseConfig.StaticDir,
		LogDir:           baseConfig.LogDir,
		DebugMode:        baseConfig.DebugMode,
		MaxWorkers:       baseConfig.MaxWorkers,
		MaxSegmentLength: baseConfig.MaxSegmentLength,
		LLMProvider:      "deepseek", // 默认使用DeepSeek
		LLMConfig: map[string]string{
			"api_key":       baseConfig.DeepSeekAPIKey,
			"default_model": "deepseek-chat",
		},
	}

	if baseConfig.LLMAPIURL != "" {
		currentConfig.LLMConfig["base_url"] = baseConfig.LLMAPIURL
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置，保留文件中的LLM设置，但使用最新的基础配置
				savedConfig.Port = baseConfig.Port
				savedConfig.WorkshopDir = baseConfig.WorkshopDir
				savedConfig.StaticDir = baseConfig.StaticDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				if savedConfig.MaxWorkers <= 0 {
					savedConfig.MaxWorkers = baseConfig.MaxWorkers
				}
				if savedConfig.MaxSegmentLength <= 0 {
					savedConfig.MaxSegmentLength = baseConfig.MaxSegmentLength
				}

				// 解密文件中加密存储的密钥
				if savedConfig.LLMConfig != nil {
					decryptAPIKey(savedConfig.LLMConfig)
				}

				// 如果文件中没有API密钥，使用环境变量的密钥
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.DeepSeekAPIKey
				}

				currentConfig = &savedConfig
			}
		}
	}

	// 保存初始配置到文件
	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:             baseConfig.Port,
			WorkshopDir:      baseConfig.WorkshopDir,
			StaticDir:        baseConfig.StaticDir,
			LogDir:           baseConfig.LogDir,
			DebugMode:        baseConfig.DebugMode,
			MaxWorkers:       baseConfig.MaxWorkers,
			MaxSegmentLength: baseConfig.MaxSegmentLength,
			LLMProvider:      "deepseek",
			LLMConfig: map[string]string{
				"api_key": baseConfig.DeepSeekAPIKey,
			},
		}
	}

	// 返回配置的副本
	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return SaveConfig()
}

// UpdateProcessingConfig 更新文本处理配置
func UpdateProcessingConfig(maxWorkers, maxSegmentLength int) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	if maxWorkers < 1 || maxWorkers > 20 {
		return fmt.Errorf("并发数必须在1到20之间")
	}
	if maxSegmentLength < 100 || maxSegmentLength > 2000 {
		return fmt.Errorf("分段长度必须在100到2000之间")
	}

	currentConfig.MaxWorkers = maxWorkers
	currentConfig.MaxSegmentLength = maxSegmentLength

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	// 确保目录存在
	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	// 落盘前加密密钥，内存中的配置不受影响
	toSave := *currentConfig
	if toSave.LLMConfig != nil {
		llmCopy := make(map[string]string, len(toSave.LLMConfig))
		for k, v := range toSave.LLMConfig {
			llmCopy[k] = v
		}
		encryptAPIKey(llmCopy)
		toSave.LLMConfig = llmCopy
	}

	// 序列化并保存
	data, err := json.MarshalIndent(&toSave, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}

// encryptAPIKey 在设置了CONFIG_SECRET时加密密钥后再写入文件
func encryptAPIKey(llmConfig map[string]string) {
	secret := os.Getenv("CONFIG_SECRET")
	key := llmConfig["api_key"]
	if secret == "" || key == "" || strings.HasPrefix(key, encryptedKeyPrefix) {
		return
	}

	encrypted, err := utils.Encrypt(key, secret)
	if err != nil {
		log.Printf("警告: 加密API密钥失败: %v", err)
		return
	}
	llmConfig["api_key"] = encryptedKeyPrefix + encrypted
}

// decryptAPIKey 解密配置文件中加密存储的密钥
func decryptAPIKey(llmConfig map[string]string) {
	key := llmConfig["api_key"]
	if !strings.HasPrefix(key, encryptedKeyPrefix) {
		return
	}

	secret := os.Getenv("CONFIG_SECRET")
	if secret == "" {
		log.Println("警告: 配置文件中的API密钥已加密，但未设置CONFIG_SECRET")
		llmConfig["api_key"] = ""
		return
	}

	decrypted, err := utils.Decrypt(strings.TrimPrefix(key, encryptedKeyPrefix), secret)
	if err != nil {
		log.Printf("警告: 解密API密钥失败: %v", err)
		llmConfig["api_key"] = ""
		return
	}
	llmConfig["api_key"] = decrypted
}
