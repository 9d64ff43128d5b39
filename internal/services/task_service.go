// internal/services/task_service.go
package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// ConversionTask 一次后台转换任务
type ConversionTask struct {
	ID          string `json:"id"`
	ProjectName string `json:"project_name"`
}

// TaskService 管理Web端发起的后台转换任务
type TaskService struct {
	pipeline *PipelineService
	progress *ProgressService

	mu    sync.RWMutex
	tasks map[string]*ConversionTask
}

// NewTaskService 创建任务服务
func NewTaskService(pipeline *PipelineService, progress *ProgressService) *TaskService {
	return &TaskService{
		pipeline: pipeline,
		progress: progress,
		tasks:    make(map[string]*ConversionTask),
	}
}

// Start 启动一次后台转换，立即返回任务ID
func (s *TaskService) Start(projectName, text string) string {
	id := uuid.New().String()

	task := &ConversionTask{
		ID:          id,
		ProjectName: projectName,
	}

	s.mu.Lock()
	s.tasks[id] = task
	s.mu.Unlock()

	tracker := s.progress.CreateTracker(id)

	go func() {
		_, err := s.pipeline.ConvertText(context.Background(), projectName, text, tracker)
		if err != nil {
			utils.GetLogger().Error("转换任务失败", map[string]interface{}{
				"task_id": id,
				"project": projectName,
				"error":   err.Error(),
			})
			tracker.Fail(err.Error())
			return
		}
		tracker.Complete("转换完成")
	}()

	return id
}

// Get 返回指定ID的任务
func (s *TaskService) Get(id string) (*ConversionTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	return task, exists
}
