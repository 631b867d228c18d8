package xray

import (
	"regexp"
	"strings"
)

// incrementalMarkers are phrases that betray chunk-by-chunk processing.
// The reader should perceive the analysis as a single pass, so they are
// stripped from free-text fields. Ordered longest-first to prevent
// partial matches.
var incrementalMarkers = []string{
	"本片段包含", "本片段中", "本片段",
	"此片段包含", "此片段中", "此片段",
	"该片段", "当前片段",
	"在新文本中，", "在新文本中", "新文本中，", "新文本中",
	"在新片段中", "新片段中",
	"在本段中，", "在本段中", "在此段中", "本段中", "此段中",
	"本章节中", "此章节中", "本节中",
	"新情节中", "新文本", "新片段", "片段中",
	"In this fragment, ", "In this segment, ", "In this excerpt, ",
}

// metaThemes are structural narrative terms the model tends to emit that
// carry no reader value; they are dropped during merge.
var metaThemes = map[string]struct{}{
	"文本过渡": {}, "多重视角": {}, "叙事结构": {}, "文本结构": {},
	"视角转换": {}, "章节划分": {}, "结构特征": {}, "叙事视角": {},
	"文本特点": {}, "行文风格": {}, "写作手法": {}, "叙述方式": {},
}

var (
	dupComma    = regexp.MustCompile(`，，+`)
	dupPeriod   = regexp.MustCompile(`。。+`)
	dupSpace    = regexp.MustCompile(`  +`)
	mdEmphasis  = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdHeader    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	whitespaceR = regexp.MustCompile(`\s+`)
)

// SanitizeText removes incremental-processing markers and cleans up the
// punctuation damage stripping them leaves behind.
func SanitizeText(text string) string {
	for _, marker := range incrementalMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = dupComma.ReplaceAllString(text, "，")
	text = dupPeriod.ReplaceAllString(text, "。")
	text = dupSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeDescription prepares a provider description for merging:
// markdown emphasis and headers stripped, whitespace collapsed,
// incremental markers removed.
func NormalizeDescription(text string) string {
	text = mdHeader.ReplaceAllString(text, "")
	text = mdEmphasis.ReplaceAllString(text, "$1")
	text = whitespaceR.ReplaceAllString(text, " ")
	return SanitizeText(text)
}

// isMetaTheme reports whether a theme is a structural term to filter.
func isMetaTheme(theme string) bool {
	_, ok := metaThemes[theme]
	return ok
}
