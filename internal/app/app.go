// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/NovelScriptMCP/internal/api"
	"github.com/Corphon/NovelScriptMCP/internal/config"
	"github.com/Corphon/NovelScriptMCP/internal/di"
	"github.com/Corphon/NovelScriptMCP/internal/llm"
	"github.com/Corphon/NovelScriptMCP/internal/services"
	"github.com/Corphon/NovelScriptMCP/internal/storage"
	"github.com/Corphon/NovelScriptMCP/internal/utils"

	// 注册所有LLM提供者
	_ "github.com/Corphon/NovelScriptMCP/internal/llm/providers/deepseek"
	_ "github.com/Corphon/NovelScriptMCP/internal/llm/providers/openai"
)

// server 抽象HTTP服务器，便于测试时替换
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App 应用程序实例
type App struct {
	config   *config.AppConfig
	router   http.Handler
	server   server
	stopChan chan os.Signal
}

// 全局应用实例（单例模式）
var instance *App

// GetApp 获取应用实例
func GetApp() *App {
	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// GetConfig 返回应用配置
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer 获取依赖注入容器
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode 检查是否处于调试模式
func IsDebugMode() bool {
	if instance == nil || instance.config == nil {
		return false
	}
	return instance.config.DebugMode
}

// Initialize 初始化整个应用：配置、日志、服务、路由
func Initialize() error {
	app := GetApp()

	cfg := config.GetCurrentConfig()
	app.config = cfg

	if err := initLogger(cfg.LogDir, cfg.DebugMode); err != nil {
		return fmt.Errorf("初始化日志系统失败: %w", err)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}

	router, err := api.SetupRouter()
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}
	app.router = router

	return nil
}

// initLogger 初始化日志系统，日志文件按日期命名
func initLogger(logDir string, debug bool) error {
	logFile := filepath.Join(logDir,
		fmt.Sprintf("app_%s.log", time.Now().Format("20060102")))
	if err := utils.InitLogger(logFile); err != nil {
		return err
	}
	if debug {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}
	return nil
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()
	logger := utils.GetLogger()

	// 存储服务
	fileStorage, err := storage.NewFileStorage(cfg.WorkshopDir)
	if err != nil {
		return fmt.Errorf("初始化存储服务失败: %w", err)
	}
	container.Register("storage", fileStorage)

	// 审计日志
	audit, err := services.NewAuditLogger(filepath.Join(cfg.LogDir, "debug.log"))
	if err != nil {
		return fmt.Errorf("初始化审计日志失败: %w", err)
	}
	container.Register("audit", audit)

	// LLM提供者，密钥未配置时允许启动但无法转换
	var provider llm.Provider
	if cfg.LLMConfig["api_key"] != "" {
		provider, err = llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
		if err != nil {
			return fmt.Errorf("初始化LLM提供者失败: %w", err)
		}
	} else {
		logger.Warn("未配置API密钥，转换功能不可用", map[string]interface{}{
			"provider": cfg.LLMProvider,
		})
	}

	// 提取服务
	extraction := services.NewExtractionService(provider, audit)
	if err := extraction.LoadTemplates("."); err != nil {
		logger.Warn("提示词模板未加载", map[string]interface{}{
			"error": err.Error(),
		})
	}
	container.Register("extraction", extraction)

	// 进度服务
	progress := services.NewProgressService()
	container.Register("progress", progress)

	// 转换流程服务
	pipeline := services.NewPipelineService(extraction, fileStorage,
		cfg.MaxWorkers, cfg.MaxSegmentLength)
	container.Register("pipeline", pipeline)

	// 任务服务
	task := services.NewTaskService(pipeline, progress)
	container.Register("task", task)

	return nil
}

// Run 启动HTTP服务器并阻塞直到收到停止信号
func Run() error {
	app := GetApp()

	if app.server == nil {
		port := "8888"
		if app.config != nil && app.config.Port != "" {
			port = app.config.Port
		}
		app.server = &http.Server{
			Addr:    ":" + port,
			Handler: app.router,
		}
	}

	// 周期性输出指标汇总，随服务器停止
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	utils.NewAPIMetrics().StartMetricsCollection(metricsCtx)

	go func() {
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.GetLogger().Fatalf("启动服务器失败: %v", err)
		}
	}()

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-app.stopChan

	utils.GetLogger().Info("正在关闭服务器...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	app.cleanup()
	return nil
}

// cleanup 释放应用持有的资源
func (a *App) cleanup() {
	container := di.GetContainer()

	// 已完成的进度跟踪器无需保留
	if progress, ok := container.Get("progress").(*services.ProgressService); ok && progress != nil {
		progress.CleanupCompletedTasks(0)
	}

	utils.GetLogger().Info("应用资源清理完成", nil)
}
