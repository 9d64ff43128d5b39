// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/NovelScriptMCP/internal/config"
	"github.com/Corphon/NovelScriptMCP/internal/llm"
	"github.com/Corphon/NovelScriptMCP/internal/services"
	"github.com/Corphon/NovelScriptMCP/internal/storage"
	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// 上传文件的暂存目录
const uploadDir = "temp"

// Handler API处理器
type Handler struct {
	TaskService       *services.TaskService
	ProgressService   *services.ProgressService
	ExtractionService *services.ExtractionService
	PipelineService   *services.PipelineService
	Storage           *storage.FileStorage
	Response          *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	taskService *services.TaskService,
	progressService *services.ProgressService,
	extractionService *services.ExtractionService,
	pipelineService *services.PipelineService,
	fs *storage.FileStorage) *Handler {

	return &Handler{
		TaskService:       taskService,
		ProgressService:   progressService,
		ExtractionService: extractionService,
		PipelineService:   pipelineService,
		Storage:           fs,
		Response:          NewResponseHelper(),
	}
}

// IndexPage 返回主页
func (h *Handler) IndexPage(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	c.File(filepath.Join(cfg.StaticDir, "index.html"))
}

// UploadFile 接收上传的小说文本文件并暂存
func (h *Handler) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.Response.BadRequest(c, "未找到上传文件", err.Error())
		return
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".txt") {
		h.Response.Error(c, http.StatusBadRequest, ErrorUnsupportedFormat,
			"只支持txt格式的文本文件", file.Filename)
		return
	}

	filename := storage.SafeFileName(filepath.Base(file.Filename))
	dst := filepath.Join(uploadDir, filename)

	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorUploadFailed,
			"保存上传文件失败", err.Error())
		return
	}

	h.Response.Success(c, gin.H{
		"filename":     filename,
		"project_name": strings.TrimSuffix(filename, filepath.Ext(filename)),
		"size":         file.Size,
	}, "上传成功")
}

// ConvertRequest 发起转换的请求体
type ConvertRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// StartConversion 对已上传的文件发起后台转换
func (h *Handler) StartConversion(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	filename := storage.SafeFileName(filepath.Base(req.Filename))
	content, err := os.ReadFile(filepath.Join(uploadDir, filename))
	if err != nil {
		h.Response.Error(c, http.StatusNotFound, ErrorSourceNotFound,
			"上传文件不存在，请先上传", filename)
		return
	}

	// 模板缺失时立即报错，不创建任务
	if !h.ExtractionService.TemplatesLoaded() {
		h.Response.Error(c, http.StatusConflict, ErrorTemplateNotLoaded,
			"提示词模板未加载，无法开始转换",
			fmt.Sprintf("请确认 %s 和 %s 文件存在", services.SegmentPromptFile, services.ChapterPromptFile))
		return
	}

	projectName := strings.TrimSuffix(filename, filepath.Ext(filename))
	taskID := h.TaskService.Start(projectName, string(content))

	h.Response.Accepted(c, gin.H{
		"task_id":      taskID,
		"project_name": projectName,
	}, "转换已开始，请订阅进度更新")
}

// SubscribeProgress 订阅任务进度的SSE端点
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, http.StatusNotFound, ErrorTaskNotFound, "任务不存在", taskID)
		return
	}

	// 设置SSE响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			if update.Status == "completed" || update.Status == "failed" {
				return
			}
		case <-ticker.C:
			// 心跳保持连接
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// GetProgress 返回任务当前进度快照
func (h *Handler) GetProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, http.StatusNotFound, ErrorTaskNotFound, "任务不存在", taskID)
		return
	}

	h.Response.Success(c, tracker.Snapshot())
}

// GetCombinedResult 返回任务的汇总脚本JSON
func (h *Handler) GetCombinedResult(c *gin.Context) {
	taskID := c.Param("taskID")

	task, exists := h.TaskService.Get(taskID)
	if !exists {
		h.Response.Error(c, http.StatusNotFound, ErrorTaskNotFound, "任务不存在", taskID)
		return
	}

	projectDir := storage.SafeFileName(task.ProjectName)
	if !h.Storage.FileExists(projectDir, "combined.json") {
		h.Response.Error(c, http.StatusConflict, ErrorResultNotReady,
			"转换尚未完成，结果不可用", taskID)
		return
	}

	var combined []json.RawMessage
	if err := h.Storage.LoadJSONFile(projectDir, "combined.json", &combined); err != nil {
		h.Response.InternalError(c, "读取转换结果失败", err.Error())
		return
	}

	h.Response.Success(c, combined)
}

// GetSettings 返回当前设置，密钥脱敏
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()

	h.Response.Success(c, gin.H{
		"llm_provider":       cfg.LLMProvider,
		"api_key":            maskAPIKey(cfg.LLMConfig["api_key"]),
		"base_url":           cfg.LLMConfig["base_url"],
		"default_model":      cfg.LLMConfig["default_model"],
		"max_workers":        cfg.MaxWorkers,
		"max_segment_length": cfg.MaxSegmentLength,
	})
}

// SettingsRequest 更新设置的请求体
type SettingsRequest struct {
	LLMProvider      string `json:"llm_provider"`
	APIKey           string `json:"api_key"`
	BaseURL          string `json:"base_url"`
	DefaultModel     string `json:"default_model"`
	MaxWorkers       int    `json:"max_workers"`
	MaxSegmentLength int    `json:"max_segment_length"`
}

// SaveSettings 更新LLM与文本处理设置
func (h *Handler) SaveSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效", err.Error())
		return
	}

	cfg := config.GetCurrentConfig()

	providerName := req.LLMProvider
	if providerName == "" {
		providerName = cfg.LLMProvider
	}

	llmConfig := map[string]string{
		"api_key":       req.APIKey,
		"base_url":      req.BaseURL,
		"default_model": req.DefaultModel,
	}
	// 不回传密钥时沿用旧值
	if llmConfig["api_key"] == "" {
		llmConfig["api_key"] = cfg.LLMConfig["api_key"]
	}

	provider, err := llm.GetProvider(providerName, llmConfig)
	if err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorProviderInvalid,
			"LLM提供者配置无效", err.Error())
		return
	}

	if err := config.UpdateLLMConfig(providerName, llmConfig); err != nil {
		h.Response.InternalError(c, "保存LLM配置失败", err.Error())
		return
	}

	maxWorkers := req.MaxWorkers
	if maxWorkers == 0 {
		maxWorkers = cfg.MaxWorkers
	}
	maxSegmentLength := req.MaxSegmentLength
	if maxSegmentLength == 0 {
		maxSegmentLength = cfg.MaxSegmentLength
	}

	if err := config.UpdateProcessingConfig(maxWorkers, maxSegmentLength); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorSettingsInvalid,
			"文本处理设置无效", err.Error())
		return
	}

	h.ExtractionService.UpdateProvider(provider)
	h.PipelineService.SetLimits(maxWorkers, maxSegmentLength)

	h.Response.Success(c, nil, "设置已保存")
}

// GetStats 返回运行指标快照
func (h *Handler) GetStats(c *gin.Context) {
	h.Response.Success(c, utils.GetMetricsCollector().GetMetrics())
}

// TemplateNotLoadedStatus 报告模板加载状态
func (h *Handler) TemplateNotLoadedStatus(c *gin.Context) {
	loaded := h.ExtractionService.TemplatesLoaded()
	h.Response.Success(c, gin.H{"templates_loaded": loaded})
}

// maskAPIKey 对密钥脱敏，只保留前后各4位
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
