// internal/models/job.go
package models

import "encoding/json"

// Project 工作目录中的project.json内容
type Project struct {
	ProjectName string `json:"projectName"`
}

// JobResult 按章节组织的转换结果
// 章节顺序即文本中的发现顺序
type JobResult struct {
	chapterTitles []string
	chapters      map[string][]json.RawMessage
}

// NewJobResult 创建空的任务结果
func NewJobResult() *JobResult {
	return &JobResult{
		chapters: make(map[string][]json.RawMessage),
	}
}

// Append 追加一个章节的记录列表，保持插入顺序
func (r *JobResult) Append(title string, records []json.RawMessage) {
	if _, exists := r.chapters[title]; !exists {
		r.chapterTitles = append(r.chapterTitles, title)
	}
	r.chapters[title] = records
}

// ChapterTitles 返回按插入顺序排列的章节标题
func (r *JobResult) ChapterTitles() []string {
	titles := make([]string, len(r.chapterTitles))
	copy(titles, r.chapterTitles)
	return titles
}

// Records 返回指定章节的记录列表
func (r *JobResult) Records(title string) []json.RawMessage {
	return r.chapters[title]
}

// Combined 按章节顺序拼接所有章节的记录
func (r *JobResult) Combined() []json.RawMessage {
	var all []json.RawMessage
	for _, title := range r.chapterTitles {
		all = append(all, r.chapters[title]...)
	}
	return all
}
