// internal/models/novel.go
package models

import "encoding/json"

// Chapter 表示从原始文本中识别出的一个章节
// Index 从1开始，按出现顺序递增
type Chapter struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExtractionOutcome 单个片段的提取结果
// 无论重试多少次，每个提交的片段恰好产生一个结果
type ExtractionOutcome struct {
	SegmentIndex int               `json:"segment_index"`
	Records      []json.RawMessage `json:"records,omitempty"`
	Failed       bool              `json:"failed,omitempty"`
}
