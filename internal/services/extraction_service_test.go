// internal/services/extraction_service_test.go
package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/NovelScriptMCP/internal/errors"
	"github.com/Corphon/NovelScriptMCP/internal/llm"
)

// fakeProvider 前failures次调用返回错误，之后返回固定文本
type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	failures   int
	reply      string
	lastSystem string
	lastPrompt string
}

func (f *fakeProvider) Initialize(config map[string]string) error { return nil }
func (f *fakeProvider) GetName() string                           { return "fake" }
func (f *fakeProvider) GetSupportedModels() []string              { return []string{"fake-model"} }

func (f *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastSystem = req.SystemPrompt
	f.lastPrompt = req.Prompt
	if f.calls <= f.failures {
		return nil, errors.New("模拟请求失败")
	}
	return &llm.CompletionResponse{
		Text:         f.reply,
		ModelName:    "fake-model",
		ProviderName: "fake",
	}, nil
}

func newTestExtraction(t *testing.T, provider llm.Provider) *ExtractionService {
	t.Helper()

	audit, err := NewAuditLogger(filepath.Join(t.TempDir(), "debug.log"))
	require.NoError(t, err)

	svc := NewExtractionService(provider, audit)
	svc.RetryDelay = 0
	svc.segmentTemplate = "请把下面的文本转换为JSON"
	svc.chapterTemplate = "请列出下面章节的角色"
	return svc
}

func TestCallForSegment_Success(t *testing.T) {
	provider := &fakeProvider{reply: `[{"a": 1}]`}
	svc := newTestExtraction(t, provider)

	text, err := svc.CallForSegment(context.Background(), "这是一段文本。")
	require.NoError(t, err)
	assert.Equal(t, `[{"a": 1}]`, text)
	assert.Equal(t, 1, provider.calls)

	// 模板走system消息，正文走user消息
	assert.Equal(t, "请把下面的文本转换为JSON", provider.lastSystem)
	assert.Equal(t, "这是一段文本。", provider.lastPrompt)
}

func TestCallForSegment_RetryThenSuccess(t *testing.T) {
	provider := &fakeProvider{failures: 1, reply: "重试成功"}
	svc := newTestExtraction(t, provider)

	text, err := svc.CallForSegment(context.Background(), "片段内容")
	require.NoError(t, err)
	assert.Equal(t, "重试成功", text)
	assert.Equal(t, 2, provider.calls)
}

func TestCallForSegment_BothAttemptsFail(t *testing.T) {
	provider := &fakeProvider{failures: 2, reply: "不会到达"}
	svc := newTestExtraction(t, provider)

	text, err := svc.CallForSegment(context.Background(), "片段内容")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 2, provider.calls)
}

func TestCallForSegment_TemplateNotLoaded(t *testing.T) {
	provider := &fakeProvider{reply: "不应被调用"}
	svc := newTestExtraction(t, provider)
	svc.segmentTemplate = ""

	_, err := svc.CallForSegment(context.Background(), "片段内容")
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplateNotLoaded(err))
	assert.Zero(t, provider.calls)
}

func TestCallForChapterRoles_UsesChapterTemplate(t *testing.T) {
	provider := &fakeProvider{reply: `["张三"]`}
	svc := newTestExtraction(t, provider)

	text, err := svc.CallForChapterRoles(context.Background(), "第一章内容")
	require.NoError(t, err)
	assert.Equal(t, `["张三"]`, text)
	assert.Equal(t, "请列出下面章节的角色", provider.lastSystem)
	assert.Equal(t, "第一章内容", provider.lastPrompt)
}

func TestCallWithRetry_NilProvider(t *testing.T) {
	svc := newTestExtraction(t, nil)

	text, err := svc.CallForSegment(context.Background(), "片段内容")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestCallWithRetry_AuditLogContent(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "debug.log")
	audit, err := NewAuditLogger(auditPath)
	require.NoError(t, err)

	provider := &fakeProvider{reply: "审计响应"}
	svc := NewExtractionService(provider, audit)
	svc.RetryDelay = 0
	svc.segmentTemplate = "模板内容"
	svc.chapterTemplate = "模板内容"

	_, err = svc.CallForSegment(context.Background(), "片段内容")
	require.NoError(t, err)

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	content := string(data)

	// 占位记录和实际响应各写一条
	assert.Equal(t, 2, strings.Count(content, "JSON生成请求"))
	assert.Contains(t, content, "待发送")
	assert.Contains(t, content, "模板内容\n\n片段内容")
	assert.Contains(t, content, "审计响应")
	assert.Contains(t, content, strings.Repeat("=", 50))
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SegmentPromptFile), []byte("段落模板\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChapterPromptFile), []byte("章节模板\n"), 0644))

	svc := NewExtractionService(nil, nil)
	assert.False(t, svc.TemplatesLoaded())

	require.NoError(t, svc.LoadTemplates(dir))
	assert.True(t, svc.TemplatesLoaded())
	assert.Equal(t, "段落模板", svc.segmentTemplate)
	assert.Equal(t, "章节模板", svc.chapterTemplate)
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SegmentPromptFile), []byte("段落模板"), 0644))

	svc := NewExtractionService(nil, nil)
	err := svc.LoadTemplates(dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplateNotLoaded(err))
	assert.False(t, svc.TemplatesLoaded())
}
