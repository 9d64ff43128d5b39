// internal/services/audit_service.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/NovelScriptMCP/internal/utils"
)

// AuditLogger 记录每次LLM请求和响应的明文日志，便于排查提示词问题
// 日志文件在创建时清空，此后只追加
type AuditLogger struct {
	path string
	mu   sync.Mutex
}

// NewAuditLogger 创建审计日志，若文件已存在则清空
func NewAuditLogger(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	// 截断旧日志
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return nil, fmt.Errorf("初始化审计日志失败: %w", err)
	}

	return &AuditLogger{path: path}, nil
}

// Write 追加一条请求/响应记录
// 记录失败只产生警告，不影响转换流程
func (a *AuditLogger) Write(requestType, prompt, response string) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("===== %s %s =====\n",
		time.Now().Format("2006-01-02 15:04:05"), requestType))
	sb.WriteString("请求内容:\n")
	sb.WriteString(prompt)
	sb.WriteString("\n响应内容:\n")
	sb.WriteString(response)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		utils.GetLogger().Warn("审计日志打开失败", map[string]interface{}{
			"path":  a.path,
			"error": err.Error(),
		})
		return
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		utils.GetLogger().Warn("审计日志写入失败", map[string]interface{}{
			"path":  a.path,
			"error": err.Error(),
		})
	}
}
