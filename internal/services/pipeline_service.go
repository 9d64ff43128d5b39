// internal/services/pipeline_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/NovelScriptMCP/internal/errors"
	"github.com/Corphon/NovelScriptMCP/internal/models"
	"github.com/Corphon/NovelScriptMCP/internal/parser"
	"github.com/Corphon/NovelScriptMCP/internal/splitter"
	"github.com/Corphon/NovelScriptMCP/internal/storage"
	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// 片段提取时附加在提示词前的角色提示
const roleHintFormat = "从以下角色中选取这段文本的角色，请注意这段文本只是章节片段，不是所有角色一定都要出现。角色列表：%s\n\n%s"

// PipelineService 串联切分、提取与结果落盘的转换流程
// 章节之间串行处理，章节内的片段并发提取
type PipelineService struct {
	extraction *ExtractionService
	storage    *storage.FileStorage
	metrics    *utils.APIMetrics

	// 设置页面可能在转换进行中更新，读写都要持锁；
	// 每次转换开始时取一次快照，任务内保持一致
	mu               sync.RWMutex
	maxWorkers       int
	maxSegmentLength int
}

// NewPipelineService 创建转换流程服务
func NewPipelineService(extraction *ExtractionService, fs *storage.FileStorage, maxWorkers, maxSegmentLength int) *PipelineService {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxSegmentLength <= 0 {
		maxSegmentLength = splitter.DefaultMaxSegmentLength
	}

	return &PipelineService{
		extraction:       extraction,
		storage:          fs,
		metrics:          utils.NewAPIMetrics(),
		maxWorkers:       maxWorkers,
		maxSegmentLength: maxSegmentLength,
	}
}

// SetLimits 更新并发数和分段长度，对已在进行中的转换不生效
func (s *PipelineService) SetLimits(maxWorkers, maxSegmentLength int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxWorkers >= 1 {
		s.maxWorkers = maxWorkers
	}
	if maxSegmentLength > 0 {
		s.maxSegmentLength = maxSegmentLength
	}
}

// Limits 返回当前的并发数和分段长度
func (s *PipelineService) Limits() (maxWorkers, maxSegmentLength int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxWorkers, s.maxSegmentLength
}

// ConvertText 把整本文本转换为脚本JSON，结果同时写入工作目录
// tracker 可以为nil，此时不汇报进度
func (s *PipelineService) ConvertText(ctx context.Context, projectName, text string, tracker *ProgressTracker) (*models.JobResult, error) {
	logger := utils.GetLogger()
	startTime := time.Now()

	// 模板缺失时直接失败，不浪费任何LLM调用
	if !s.extraction.TemplatesLoaded() {
		return nil, errors.NewTemplateNotLoadedError("提示词模板未加载，无法开始转换")
	}

	projectDir := storage.SafeFileName(projectName)

	// 记录项目元数据
	if err := s.storage.SaveJSONFile(projectDir, "project.json",
		models.Project{ProjectName: projectName}); err != nil {
		return nil, err
	}

	// 任务开始时取一次设置快照，转换期间的设置变更不影响本次任务
	maxWorkers, maxSegmentLength := s.Limits()

	chapters := splitter.SplitChapters(text)
	logger.Info("文本切分完成", map[string]interface{}{
		"project":  projectName,
		"chapters": len(chapters),
	})

	result := models.NewJobResult()

	for i, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if tracker != nil {
			tracker.UpdateProgress(i*100/len(chapters),
				fmt.Sprintf("正在处理 %s (%d/%d)", chapter.Title, i+1, len(chapters)))
		}

		records, err := s.processChapter(ctx, projectDir, chapter, maxWorkers, maxSegmentLength)
		if err != nil {
			return nil, err
		}

		result.Append(chapter.Title, records)
	}

	// 汇总所有章节写入combined.json
	combined := result.Combined()
	if err := s.storage.SaveJSONFile(projectDir, "combined.json", combined); err != nil {
		return nil, err
	}

	s.metrics.RecordConversion(len(chapters), len(combined), time.Since(startTime))
	return result, nil
}

// processChapter 处理单个章节：落盘、提取角色、切分片段、并发提取、按序合并
func (s *PipelineService) processChapter(ctx context.Context, projectDir string, chapter models.Chapter, maxWorkers, maxSegmentLength int) ([]json.RawMessage, error) {
	logger := utils.GetLogger()
	safe := storage.SafeFileName(chapter.Title)
	segmentsDir := projectDir + "/text_segments"

	// 保存章节原文
	if err := s.storage.SaveTextFile(segmentsDir, safe+".txt", []byte(chapter.Content)); err != nil {
		return nil, err
	}

	// 角色提取失败不阻断转换，片段提取仍可在无角色提示下进行
	roles := s.extractRoles(ctx, segmentsDir, safe, chapter)

	segments := splitter.SplitSegments(chapter.Content, maxSegmentLength)

	// 片段原文落盘，编号从1开始
	chapterDir := segmentsDir + "/" + safe
	for j, segment := range segments {
		filename := fmt.Sprintf("segment_%d.txt", j+1)
		if err := s.storage.SaveTextFile(chapterDir, filename, []byte(segment)); err != nil {
			return nil, err
		}
	}

	// 并发提取，每个worker只写自己下标的结果
	outcomes := make([]models.ExtractionOutcome, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for j, segment := range segments {
		j, segment := j, segment
		g.Go(func() error {
			prompt := segment
			if len(roles) > 0 {
				prompt = fmt.Sprintf(roleHintFormat, strings.Join(roles, ","), segment)
			}

			raw, err := s.extraction.CallForSegment(gctx, prompt)
			if err != nil {
				return err
			}

			outcomes[j].SegmentIndex = j
			if raw == "" {
				outcomes[j].Failed = true
				return nil
			}

			records, perr := parser.ParseRecords(raw)
			if perr != nil {
				logger.Warn("片段响应解析失败，已跳过", map[string]interface{}{
					"chapter": chapter.Title,
					"segment": j + 1,
					"error":   perr.Error(),
				})
				outcomes[j].Failed = true
				return nil
			}

			outcomes[j].Records = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 严格按片段顺序合并，失败的片段留空
	var chapterRecords []json.RawMessage
	failedCount := 0
	for _, outcome := range outcomes {
		s.metrics.RecordSegmentExtraction(!outcome.Failed)
		if outcome.Failed {
			failedCount++
			continue
		}
		chapterRecords = append(chapterRecords, outcome.Records...)
	}

	if failedCount > 0 {
		logger.Warn("章节存在提取失败的片段", map[string]interface{}{
			"chapter": chapter.Title,
			"failed":  failedCount,
			"total":   len(segments),
		})
	}

	// 章节脚本落盘
	if err := s.storage.SaveJSONFile(projectDir+"/scripts", safe+".json", chapterRecords); err != nil {
		return nil, err
	}

	return chapterRecords, nil
}

// extractRoles 尝试提取章节角色列表并落盘，任何失败都只降级为无角色提示
func (s *PipelineService) extractRoles(ctx context.Context, segmentsDir, safe string, chapter models.Chapter) []string {
	logger := utils.GetLogger()

	raw, err := s.extraction.CallForChapterRoles(ctx, chapter.Content)
	if err != nil || raw == "" {
		return nil
	}

	roles, perr := parser.ParseRoles(raw)
	if perr != nil {
		if errors.IsRoleFormatInvalid(perr) {
			logger.Warn("角色响应格式不符合预期", map[string]interface{}{
				"chapter": chapter.Title,
			})
		} else {
			logger.Warn("角色响应解析失败", map[string]interface{}{
				"chapter": chapter.Title,
				"error":   perr.Error(),
			})
		}
		return nil
	}

	if len(roles) == 0 {
		return nil
	}

	// 角色列表以JSON数组落盘，扩展名沿用.txt
	if err := s.storage.SaveJSONFile(segmentsDir, safe+"_roles.txt", roles); err != nil {
		logger.Warn("角色列表落盘失败", map[string]interface{}{
			"chapter": chapter.Title,
			"error":   err.Error(),
		})
	}

	return roles
}
