// internal/parser/parser_test.go
package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/NovelScriptMCP/internal/errors"
)

func TestParseRecords_DirectJSON(t *testing.T) {
	raw := `[{"character": "张三", "dialogue": "你好"}, {"character": "李四", "dialogue": "再见"}]`

	records, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var first map[string]string
	require.NoError(t, json.Unmarshal(records[0], &first))
	assert.Equal(t, "张三", first["character"])
}

func TestParseRecords_FencedBlock(t *testing.T) {
	raw := "以下是提取结果：\n```json\n[{\"a\": 1}]\n```\n如有问题请告知。"

	records, err := ParseRecords(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"a": 1}`, string(records[0]))
}

func TestParseRecords_FencedBlockWithoutLanguageTag(t *testing.T) {
	raw := "```\n[{\"x\": true}, {\"y\": false}]\n```"

	records, err := ParseRecords(raw)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseRecords_NotJSON(t *testing.T) {
	records, err := ParseRecords("抱歉，我无法处理这段文本。")
	require.Error(t, err)
	assert.True(t, apperrors.IsParseFailed(err))
	assert.Empty(t, records)
}

func TestParseRecords_EmptyList(t *testing.T) {
	records, err := ParseRecords("[]")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRoles_DirectList(t *testing.T) {
	roles, err := ParseRoles(`["张三", "李四", "王五"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"张三", "李四", "王五"}, roles)
}

func TestParseRoles_WrappedObject(t *testing.T) {
	roles, err := ParseRoles(`{"roles": ["Alice", "Bob"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, roles)
}

func TestParseRoles_FencedList(t *testing.T) {
	raw := "本章角色如下：\n```json\n[\"主角\", \"配角\"]\n```"

	roles, err := ParseRoles(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"主角", "配角"}, roles)
}

func TestParseRoles_LabelHeuristic(t *testing.T) {
	roles, err := ParseRoles("本章出现的角色列表：张三、李四、王五")
	require.NoError(t, err)
	assert.Equal(t, []string{"张三", "李四", "王五"}, roles)
}

func TestParseRoles_BracketedLabel(t *testing.T) {
	roles, err := ParseRoles("人物列表：[张三, 李四]")
	require.NoError(t, err)
	assert.Equal(t, []string{"张三", "李四"}, roles)
}

func TestParseRoles_WrongShape(t *testing.T) {
	// 合法JSON但既不是列表也没有roles键
	roles, err := ParseRoles(`{"count": 3, "summary": "三个角色"}`)
	require.Error(t, err)
	assert.True(t, apperrors.IsRoleFormatInvalid(err))
	assert.Empty(t, roles)
}

func TestParseRoles_NoRolesAnywhere(t *testing.T) {
	roles, err := ParseRoles("这段文本没有任何结构化内容。")
	require.Error(t, err)
	assert.True(t, apperrors.IsParseFailed(err))
	assert.False(t, apperrors.IsRoleFormatInvalid(err))
	assert.Empty(t, roles)
}
