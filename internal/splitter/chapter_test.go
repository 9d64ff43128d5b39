// internal/splitter/chapter_test.go
package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChapters_MarkerMode(t *testing.T) {
	text := "第一章的内容。\n# 分章标记\n第二章的内容。"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)

	assert.Equal(t, 1, chapters[0].Index)
	assert.Equal(t, "第1章", chapters[0].Title)
	assert.Equal(t, "第一章的内容。", chapters[0].Content)

	assert.Equal(t, 2, chapters[1].Index)
	assert.Equal(t, "第2章", chapters[1].Title)
	assert.Equal(t, "第二章的内容。", chapters[1].Content)
}

// 相邻标记之间没有内容时不产生空章节
func TestSplitChapters_AdjacentMarkersProduceNoEmptyChapter(t *testing.T) {
	text := "开头内容\n#\n#\n结尾内容"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)
	assert.Equal(t, "开头内容", chapters[0].Content)
	assert.Equal(t, "结尾内容", chapters[1].Content)
}

func TestSplitChapters_HeadingMode(t *testing.T) {
	text := "第一章 初遇\n这是第一章的正文。\n第二章 重逢\n这是第二章的正文。"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)

	assert.Equal(t, "第1章", chapters[0].Title)
	assert.Contains(t, chapters[0].Content, "这是第一章的正文")
	assert.NotContains(t, chapters[0].Content, "第二章")

	assert.Equal(t, "第2章", chapters[1].Title)
	assert.Contains(t, chapters[1].Content, "这是第二章的正文")
}

func TestSplitChapters_HeadingMode_PrefixBecomesFirstChapter(t *testing.T) {
	text := "序言部分的文字。\nChapter 1\nFirst chapter body.\nChapter 2\nSecond chapter body."

	chapters := SplitChapters(text)
	require.Len(t, chapters, 3)

	assert.Contains(t, chapters[0].Content, "序言部分的文字")
	assert.Contains(t, chapters[1].Content, "First chapter body")
	assert.Contains(t, chapters[2].Content, "Second chapter body")
}

func TestSplitChapters_NumericAndCountHeadings(t *testing.T) {
	text := "第1章\n数字章节。\n第二回\n回目章节。"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)
	assert.Contains(t, chapters[0].Content, "数字章节")
	assert.Contains(t, chapters[1].Content, "回目章节")
}

func TestSplitChapters_MarkerTakesPriorityOverHeading(t *testing.T) {
	// 同时存在标记行和标题模式时以标记行为准
	text := "第一章 标题挡路\n正文一。\n# 标记\n正文二。"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)
	assert.Contains(t, chapters[0].Content, "第一章 标题挡路")
}

func TestSplitChapters_FallbackWholeText(t *testing.T) {
	text := "没有任何章节结构的一段普通文本。"

	chapters := SplitChapters(text)
	require.Len(t, chapters, 1)
	assert.Equal(t, 1, chapters[0].Index)
	assert.Equal(t, "第1章", chapters[0].Title)
	assert.Equal(t, text, chapters[0].Content)
}

func TestSplitChapters_EmptyInput(t *testing.T) {
	assert.Empty(t, SplitChapters(""))
	assert.Empty(t, SplitChapters("   \n\t  "))
}

func TestSplitChapters_IndicesAreSequential(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		sb.WriteString("内容段落。\n# 标记\n")
	}
	sb.WriteString("最后一章。")

	chapters := SplitChapters(sb.String())
	require.NotEmpty(t, chapters)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.Index)
		assert.NotEmpty(t, ch.Content)
	}
}

func TestSplitChapters_TotalContentPreserved(t *testing.T) {
	// 标记分章不丢失任何正文行
	lines := []string{"早晨的雾还没散。", "他推开门走了出去。", "巷子口传来叫卖声。"}
	text := lines[0] + "\n# 一\n" + lines[1] + "\n# 二\n" + lines[2]

	chapters := SplitChapters(text)
	joined := ""
	for _, ch := range chapters {
		joined += ch.Content
	}
	for _, line := range lines {
		assert.Contains(t, joined, line)
	}
}
