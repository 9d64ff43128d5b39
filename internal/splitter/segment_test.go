// internal/splitter/segment_test.go
package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 生成由固定句子重复组成的测试文本
func repeatSentence(sentence string, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(sentence)
	}
	return sb.String()
}

func TestSplitSegments_ShortTextSingleSegment(t *testing.T) {
	text := "他说今天天气不错。"

	segments := SplitSegments(text, 350)
	require.Len(t, segments, 1)
	assert.Equal(t, text, segments[0])
}

func TestSplitSegments_EmptyInput(t *testing.T) {
	assert.Empty(t, SplitSegments("", 350))
	assert.Empty(t, SplitSegments("  \n ", 350))
}

func TestSplitSegments_SplitsAtSentenceEnd(t *testing.T) {
	// 每句10个字符，100句共1000字符，上限350
	text := repeatSentence("这是一个十字的句子吗。", 100)

	segments := SplitSegments(text, 350)
	require.Greater(t, len(segments), 1)

	// 除最后一段外，每段都应以句末标点结尾
	for _, seg := range segments[:len(segments)-1] {
		runes := []rune(seg)
		assert.Equal(t, '。', runes[len(runes)-1])
	}
}

func TestSplitSegments_JoinRecoversText(t *testing.T) {
	text := repeatSentence("春风拂过湖面，带起一圈圈涟漪。", 60)

	segments := SplitSegments(text, 350)
	assert.Equal(t, text, strings.Join(segments, ""))
}

func TestSplitSegments_LengthBound(t *testing.T) {
	maxLen := 200
	text := repeatSentence("短句。", 500)

	segments := SplitSegments(text, maxLen)
	for _, seg := range segments {
		// 二次分割后不应残留超过1.5倍上限的片段
		assert.LessOrEqual(t, len([]rune(seg)), maxLen*3/2)
	}
}

func TestSplitSegments_NoSplitInsideQuotes(t *testing.T) {
	// 引号内夹满标点，分割点必须落在引号之外
	inner := strings.Repeat("你听我说，真的！", 20)
	text := "他开口了：“" + inner + "”然后沉默。" + repeatSentence("屋外的雨一直下。", 30)

	segments := SplitSegments(text, 100)
	for _, seg := range segments {
		opens := strings.Count(seg, "“")
		closes := strings.Count(seg, "”")
		assert.Equal(t, opens, closes, "片段中引号未闭合: %q", seg)
	}
}

func TestSplitSegments_HardCutWithoutPunctuation(t *testing.T) {
	// 完全没有标点时只能硬切
	text := strings.Repeat("字", 900)

	segments := SplitSegments(text, 300)
	require.Len(t, segments, 3)
	for _, seg := range segments {
		assert.Equal(t, 300, len([]rune(seg)))
	}
}

func TestSplitSegments_WeakPunctFallback(t *testing.T) {
	// 只有逗号时退到次级标点分割
	text := strings.Repeat("一二三四五六七八九，", 100)

	segments := SplitSegments(text, 350)
	require.Greater(t, len(segments), 1)
	for _, seg := range segments[:len(segments)-1] {
		runes := []rune(seg)
		assert.Equal(t, '，', runes[len(runes)-1])
	}
}

func TestSplitSegments_DefaultLengthWhenZero(t *testing.T) {
	text := repeatSentence("这是一个十字的句子吗。", 100)

	segments := SplitSegments(text, 0)
	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg)), DefaultMaxSegmentLength*3/2)
	}
}

// 分章加分段的整体行为
func TestSplitChaptersThenSegments(t *testing.T) {
	chapterOne := repeatSentence("这是一个十字的句子吗。", 50) // 500字符
	chapterTwo := "只有十个字的小章节。"

	text := chapterOne + "\n# 分章\n" + chapterTwo

	chapters := SplitChapters(text)
	require.Len(t, chapters, 2)

	first := SplitSegments(chapters[0].Content, 350)
	assert.GreaterOrEqual(t, len(first), 2)

	second := SplitSegments(chapters[1].Content, 350)
	assert.Len(t, second, 1)
}
