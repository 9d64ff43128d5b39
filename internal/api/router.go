// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/NovelScriptMCP/internal/config"
	"github.com/Corphon/NovelScriptMCP/internal/di"
	"github.com/Corphon/NovelScriptMCP/internal/services"
	"github.com/Corphon/NovelScriptMCP/internal/storage"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	// 获取配置
	cfg := config.GetCurrentConfig()

	// 确保上传暂存目录存在
	os.MkdirAll(uploadDir, 0755)

	// 只从容器获取服务，不再创建新实例
	container := di.GetContainer()

	taskService, ok := container.Get("task").(*services.TaskService)
	if !ok {
		return nil, fmt.Errorf("任务服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	extractionService, ok := container.Get("extraction").(*services.ExtractionService)
	if !ok {
		return nil, fmt.Errorf("提取服务未正确初始化")
	}

	pipelineService, ok := container.Get("pipeline").(*services.PipelineService)
	if !ok {
		return nil, fmt.Errorf("转换服务未正确初始化")
	}

	fileStorage, ok := container.Get("storage").(*storage.FileStorage)
	if !ok {
		return nil, fmt.Errorf("存储服务未正确初始化")
	}

	handler := NewHandler(
		taskService,
		progressService,
		extractionService,
		pipelineService,
		fileStorage,
	)

	// 创建路由
	r := gin.Default()

	// 启用CORS与请求指标
	r.Use(corsMiddleware())
	r.Use(metricsMiddleware())

	// 静态文件服务
	r.Static("/static", cfg.StaticDir)

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", handler.IndexPage)

	// WebSocket 进度推送
	r.GET("/ws/progress/:taskID", handler.ProgressWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// 文件上传与转换
		api.POST("/upload", handler.UploadFile)
		api.POST("/convert", ConversionRateLimit(), handler.StartConversion)

		// 进度查询
		api.GET("/progress/:taskID", handler.GetProgress)
		api.GET("/progress/:taskID/subscribe", handler.SubscribeProgress)

		// 结果获取
		api.GET("/result/:taskID/combined", handler.GetCombinedResult)

		// 设置
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.POST("", handler.SaveSettings)
		}

		// 模板状态
		api.GET("/templates/status", handler.TemplateNotLoadedStatus)

		// 运行指标
		api.GET("/stats", handler.GetStats)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
