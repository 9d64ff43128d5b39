// internal/parser/parser.go
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/Corphon/NovelScriptMCP/internal/errors"
)

// LLM响应中的JSON代码块，语言标签可选
var fencedBlockPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// 自由文本中的角色列表标签，如"角色列表：张三、李四"
var (
	roleLabelPattern     = regexp.MustCompile(`(?:角色列表|人物列表)[:：]?\s*[\[(（]?([^\])）]*)`)
	roleSeparatorPattern = regexp.MustCompile(`[，,、\s]+`)
)

// tryParseDirect 直接把整段响应当JSON解析
func tryParseDirect(raw string, v interface{}) bool {
	return json.Unmarshal([]byte(strings.TrimSpace(raw)), v) == nil
}

// tryParseFenced 从响应中取出第一个代码块再解析
func tryParseFenced(raw string, v interface{}) bool {
	m := fencedBlockPattern.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	return json.Unmarshal([]byte(m[1]), v) == nil
}

// ParseRecords 从LLM响应中提取JSON记录列表
// 解析失败返回空列表和可记录日志的错误，调用方按单元跳过即可
func ParseRecords(raw string) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if tryParseDirect(raw, &records) {
		return records, nil
	}

	records = nil
	if tryParseFenced(raw, &records) {
		return records, nil
	}

	return nil, apperrors.NewParseFailedError("响应中未找到可解析的JSON", nil)
}

// roleParseOutcome 单个角色解析策略的结果
type roleParseOutcome int

const (
	roleParseMiss         roleParseOutcome = iota // 不是有效JSON，继续下一策略
	roleParseHit                                  // 成功取到角色列表
	roleParseWrongShape                           // 是有效JSON但形状不对
)

// ParseRoles 从LLM响应中提取角色名称列表
// 按固定优先级尝试：直接解析、代码块解析（各自接受字符串列表
// 或带"roles"键的映射），最后从自由文本的角色列表标签中提取
func ParseRoles(raw string) ([]string, error) {
	for _, parse := range []func(string, interface{}) bool{tryParseDirect, tryParseFenced} {
		roles, outcome := rolesFromJSON(raw, parse)
		switch outcome {
		case roleParseHit:
			return roles, nil
		case roleParseWrongShape:
			return nil, apperrors.NewRoleFormatError("角色响应格式错误，不是列表", nil)
		}
	}

	if roles := rolesFromLabel(raw); len(roles) > 0 {
		return roles, nil
	}
	return nil, apperrors.NewParseFailedError("响应中未找到角色JSON", nil)
}

// rolesFromJSON 用给定的解析策略提取角色列表
func rolesFromJSON(raw string, parse func(string, interface{}) bool) ([]string, roleParseOutcome) {
	var roles []string
	if parse(raw, &roles) {
		return roles, roleParseHit
	}

	var wrapped struct {
		Roles []string `json:"roles"`
	}
	if parse(raw, &wrapped) {
		if wrapped.Roles != nil {
			return wrapped.Roles, roleParseHit
		}
		return nil, roleParseWrongShape
	}

	// 两种形状都解析不出来：只要整体是合法JSON就算形状错误
	var any interface{}
	if parse(raw, &any) {
		return nil, roleParseWrongShape
	}
	return nil, roleParseMiss
}

// rolesFromLabel 从"角色列表："之类的标签后提取角色名
func rolesFromLabel(raw string) []string {
	m := roleLabelPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	var roles []string
	for _, part := range roleSeparatorPattern.Split(m[1], -1) {
		if name := strings.TrimSpace(part); name != "" {
			roles = append(roles, name)
		}
	}
	return roles
}
