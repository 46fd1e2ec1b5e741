package extractor

import (
	"regexp"
	"strings"
)

var (
	annotationPattern = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_-]*)`)
	importPattern     = regexp.MustCompile(`(?m)^\s*(import\s|from\s.+\simport\s|require\s*\()`)
)

// ExtractTags scans content for marker patterns and always includes the
// mandatory kind tag. Duplicates are collapsed by the caller via
// NormalizeTags.
func ExtractTags(content, kind string) []string {
	tags := []string{"kind:" + strings.TrimPrefix(kind, ".")}

	if strings.Contains(content, "TODO:") {
		tags = append(tags, "todo")
	}
	if strings.Contains(content, "FIXME:") {
		tags = append(tags, "fixme")
	}
	if importPattern.MatchString(content) {
		tags = append(tags, "imports")
	}

	for _, m := range annotationPattern.FindAllStringSubmatch(content, 10) {
		tags = append(tags, "annotation:"+strings.ToLower(m[1]))
	}

	return tags
}
