// internal/splitter/chapter.go
package splitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Corphon/NovelScriptMCP/internal/models"
)

// 章节标题模式，按优先级排列
// 常见的章节格式如：第一章、第1章、第一回、Chapter 1等
var chapterHeadingPattern = regexp.MustCompile(
	`第[一二三四五六七八九十百千]+章` +
		`|第\d+章` +
		`|第[一二三四五六七八九十百千]+回` +
		`|第\d+回` +
		`|Chapter\s+\d+` +
		`|CHAPTER\s+\d+`)

// SplitChapters 按章节分割文本
// 优先使用#标记行分章；没有标记时退回标题模式匹配；
// 两者都没有时整个文本作为第1章
func SplitChapters(text string) []models.Chapter {
	if chapters := splitByMarker(text); len(chapters) > 0 {
		return chapters
	}
	if chapters := splitByHeading(text); len(chapters) > 0 {
		return chapters
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return []models.Chapter{{Index: 1, Title: "第1章", Content: trimmed}}
	}
	return nil
}

// splitByMarker 以包含#的行作为章节边界
// 边界行之前累积的内容归入上一章；相邻标记之间没有内容时不产生章节
func splitByMarker(text string) []models.Chapter {
	var chapters []models.Chapter
	var current []string
	foundMarker := false
	index := 1

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, "\n"))
		if content != "" {
			chapters = append(chapters, models.Chapter{
				Index:   index,
				Title:   fmt.Sprintf("第%d章", index),
				Content: content,
			})
			index++
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.TrimSpace(line), "#") {
			foundMarker = true
			flush()
		} else {
			current = append(current, line)
		}
	}
	flush()

	if foundMarker && len(chapters) > 0 {
		return chapters
	}
	return nil
}

// splitByHeading 按章节标题模式分割
// 标题文本本身不保留，章节标题统一合成为"第N章"
func splitByHeading(text string) []models.Chapter {
	matches := chapterHeadingPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var chapters []models.Chapter
	index := 1

	appendChapter := func(content string) {
		content = strings.TrimSpace(content)
		if content != "" {
			chapters = append(chapters, models.Chapter{
				Index:   index,
				Title:   fmt.Sprintf("第%d章", index),
				Content: content,
			})
			index++
		}
	}

	// 第一个标题之前的内容作为合成的第一章
	if matches[0][0] > 0 {
		appendChapter(text[:matches[0][0]])
	}

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		appendChapter(text[m[1]:end])
	}

	return chapters
}
