// internal/services/extraction_service.go
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Corphon/NovelScriptMCP/internal/errors"
	"github.com/Corphon/NovelScriptMCP/internal/llm"
	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// 提示词模板文件名，放在工作目录下
const (
	SegmentPromptFile = "json生成prompt"
	ChapterPromptFile = "章节prompt"
)

// 审计日志中的请求类型标签
const (
	auditTypeSegment = "JSON生成请求"
	auditTypeRoles   = "章节角色信息请求"

	// 请求发出前先落一条占位记录
	auditPendingMark = "待发送"
)

// ExtractionService 负责所有对LLM的调用
// 每次调用最多重试一次，两次都失败时返回空串，由上层决定如何处理
type ExtractionService struct {
	provider llm.Provider
	audit    *AuditLogger
	metrics  *utils.APIMetrics

	segmentTemplate string
	chapterTemplate string

	RetryDelay  time.Duration
	CallTimeout time.Duration
	Temperature float32

	SegmentMaxTokens int
	RolesMaxTokens   int
}

// NewExtractionService 创建提取服务
func NewExtractionService(provider llm.Provider, audit *AuditLogger) *ExtractionService {
	return &ExtractionService{
		provider:         provider,
		audit:            audit,
		metrics:          utils.NewAPIMetrics(),
		RetryDelay:       2 * time.Second,
		CallTimeout:      60 * time.Second,
		Temperature:      0.7,
		SegmentMaxTokens: 8192,
		RolesMaxTokens:   1024,
	}
}

// UpdateProvider 替换LLM提供者，设置变更后调用
func (s *ExtractionService) UpdateProvider(provider llm.Provider) {
	s.provider = provider
}

// LoadTemplates 从工作目录读取两个提示词模板文件
func (s *ExtractionService) LoadTemplates(dir string) error {
	segment, err := os.ReadFile(filepath.Join(dir, SegmentPromptFile))
	if err != nil {
		return errors.NewTemplateNotLoadedError(
			fmt.Sprintf("提示词模板文件缺失: %s", SegmentPromptFile))
	}
	chapter, err := os.ReadFile(filepath.Join(dir, ChapterPromptFile))
	if err != nil {
		return errors.NewTemplateNotLoadedError(
			fmt.Sprintf("提示词模板文件缺失: %s", ChapterPromptFile))
	}

	s.segmentTemplate = strings.TrimSpace(string(segment))
	s.chapterTemplate = strings.TrimSpace(string(chapter))
	return nil
}

// TemplatesLoaded 报告两个模板是否都已就绪
func (s *ExtractionService) TemplatesLoaded() bool {
	return s.segmentTemplate != "" && s.chapterTemplate != ""
}

// CallForSegment 请求LLM把一个文本段转换为JSON脚本记录
// 返回原始响应文本，失败时返回空串
func (s *ExtractionService) CallForSegment(ctx context.Context, segmentText string) (string, error) {
	if s.segmentTemplate == "" {
		return "", errors.NewTemplateNotLoadedError("JSON生成提示词模板未加载")
	}

	return s.callWithRetry(ctx, auditTypeSegment, s.segmentTemplate, segmentText, s.SegmentMaxTokens), nil
}

// CallForChapterRoles 请求LLM提取一个章节的角色列表
// 返回原始响应文本，失败时返回空串
func (s *ExtractionService) CallForChapterRoles(ctx context.Context, chapterText string) (string, error) {
	if s.chapterTemplate == "" {
		return "", errors.NewTemplateNotLoadedError("章节提示词模板未加载")
	}

	return s.callWithRetry(ctx, auditTypeRoles, s.chapterTemplate, chapterText, s.RolesMaxTokens), nil
}

// callWithRetry 执行一次LLM调用，失败后等待RetryDelay再试一次
// 模板走system消息，正文走user消息；两次都失败时返回空串
func (s *ExtractionService) callWithRetry(ctx context.Context, requestType, systemPrompt, userText string, maxTokens int) string {
	logger := utils.GetLogger()

	if s.provider == nil {
		logger.Error("LLM提供者未配置，无法发送请求", map[string]interface{}{
			"type": requestType,
		})
		return ""
	}

	// 审计日志记录完整请求内容
	auditContent := systemPrompt + "\n\n" + userText

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ""
			case <-time.After(s.RetryDelay):
			}
		}

		s.audit.Write(requestType, auditContent, auditPendingMark)

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, s.CallTimeout)
		resp, err := s.provider.CompleteText(callCtx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Prompt:       userText,
			MaxTokens:    maxTokens,
			Temperature:  s.Temperature,
		})
		cancel()

		if err != nil {
			s.audit.Write(requestType, auditContent, fmt.Sprintf("请求失败: %v", err))
			logger.Warn("LLM请求失败", map[string]interface{}{
				"type":    requestType,
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			continue
		}

		s.audit.Write(requestType, auditContent, resp.Text)
		s.metrics.RecordLLMRequest(resp.ProviderName, resp.ModelName,
			resp.TokensUsed, time.Since(start))
		return resp.Text
	}

	s.metrics.RecordError("llm_request_failed", "extraction")
	logger.Error("LLM请求重试后仍然失败", map[string]interface{}{
		"type": requestType,
	})
	return ""
}
