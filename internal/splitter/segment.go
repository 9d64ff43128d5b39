// internal/splitter/segment.go
package splitter

import "strings"

// DefaultMaxSegmentLength 片段默认最大长度（按字符计）
const DefaultMaxSegmentLength = 350

// 句子结束标点（优先级高）和其他标点（优先级低），全角半角都算
var (
	sentenceEndPunct = []rune{'。', '！', '？', '.', '!', '?'}
	weakPunct        = []rune{'，', ',', '；', ';', '：', ':', '、'}
	allPunct         = append(append([]rune{}, sentenceEndPunct...), weakPunct...)
)

// 支持的引号对，分割点不能落在未闭合的引号跨度内
type quotePair struct {
	open, close rune
}

var quotePairs = []quotePair{
	{'“', '”'}, // 双弯引号
	{'‘', '’'}, // 单弯引号
	{'「', '」'},
	{'『', '』'},
}

// SplitSegments 按标点符号分割章节内容
// 每个片段由标点分隔，完整句子和未闭合的引号不会被切开；
// 实在找不到标点时才按最大长度硬切，这种情况应当很少发生
func SplitSegments(content string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxSegmentLength
	}

	text := []rune(strings.TrimSpace(content))
	if len(text) == 0 {
		return nil
	}

	var result []string
	start := 0
	for start < len(text) {
		end := start + maxLength
		if end > len(text) {
			end = len(text)
		}

		// 引号闭合检查：窗口内有未闭合引号时向后扩展到闭合位置
		end = extendForQuoteBalance(text, start, end)

		// 1. 优先查找句子结束标点（仅限引号深度为0的位置）
		best := lastBalancedPunct(text, start, end, sentenceEndPunct)

		// 2. 没有句末标点时退而求其次
		if best == -1 {
			best = lastBalancedPunct(text, start, end, weakPunct)
		}

		// 3. 仍然没有且窗口已达最大长度的90%时，扩展到1.2倍再找一次
		// 扩展只放宽搜索范围，硬切位置仍用引号闭合后的原窗口
		if best == -1 && end-start >= maxLength*9/10 {
			extended := start + maxLength*6/5
			if extended > len(text) {
				extended = len(text)
			}
			if extended > end {
				extended = extendForQuoteBalance(text, start, extended)
				best = lastBalancedPunct(text, start, extended, allPunct)
			}
		}

		if best > start {
			result = append(result, string(text[start:best+1]))
			start = best + 1
		} else {
			// 万不得已按窗口硬切
			result = append(result, string(text[start:end]))
			start = end
		}
	}

	return resplitOversized(result, maxLength)
}

// resplitOversized 对超过1.5倍最大长度的片段做二次分割
// 二次分割同样检查引号闭合，并在全部标点中选最佳分割点
func resplitOversized(segments []string, maxLength int) []string {
	var final []string
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		runes := []rune(seg)
		if len(runes)*2 <= maxLength*3 {
			final = append(final, seg)
			continue
		}

		start := 0
		for start < len(runes) {
			end := start + maxLength
			if end > len(runes) {
				end = len(runes)
			}
			end = extendForQuoteBalance(runes, start, end)

			best := lastBalancedPunct(runes, start, end, allPunct)
			if best > start {
				sub := strings.TrimSpace(string(runes[start : best+1]))
				if sub != "" {
					final = append(final, sub)
				}
				start = best + 1
			} else {
				sub := strings.TrimSpace(string(runes[start:end]))
				if sub != "" {
					final = append(final, sub)
				}
				start = end
			}
		}
	}
	return final
}

// extendForQuoteBalance 统计[start,end)内各引号对的未闭合数量，
// 逐一向后寻找对应的闭合引号并把end推进到其后；
// 任何一个闭合引号找不到时停止扩展，保留已扩展到的位置
func extendForQuoteBalance(text []rune, start, end int) int {
	open := countUnclosed(text, start, end)

	for pi, pair := range quotePairs {
		for open[pi] > 0 && end < len(text) {
			pos := indexOfRune(text, end, pair.close)
			if pos == -1 {
				return end
			}
			end = pos + 1
			open[pi]--
		}
	}
	return end
}

// countUnclosed 返回每个引号对在[start,end)内的未闭合深度
// 多余的闭合引号（如缩写中的单引号）被忽略
func countUnclosed(text []rune, start, end int) []int {
	open := make([]int, len(quotePairs))
	for i := start; i < end; i++ {
		for pi, pair := range quotePairs {
			if text[i] == pair.open {
				open[pi]++
			} else if text[i] == pair.close && open[pi] > 0 {
				open[pi]--
			}
		}
	}
	return open
}

// lastBalancedPunct 在(start,end)范围内从后向前找标点，
// 要求该位置处所有引号都已闭合，避免把分割点落进引号内部
func lastBalancedPunct(text []rune, start, end int, punct []rune) int {
	if end > len(text) {
		end = len(text)
	}

	open := make([]int, len(quotePairs))
	best := -1
	for i := start; i < end; i++ {
		for pi, pair := range quotePairs {
			if text[i] == pair.open {
				open[pi]++
			} else if text[i] == pair.close && open[pi] > 0 {
				open[pi]--
			}
		}

		if i > start && isAnyRune(text[i], punct) && allZero(open) {
			best = i
		}
	}
	return best
}

func indexOfRune(text []rune, from int, r rune) int {
	for i := from; i < len(text); i++ {
		if text[i] == r {
			return i
		}
	}
	return -1
}

func isAnyRune(r rune, set []rune) bool {
	for _, p := range set {
		if r == p {
			return true
		}
	}
	return false
}

func allZero(counts []int) bool {
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
