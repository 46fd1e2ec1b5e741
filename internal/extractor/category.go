package extractor

import (
	"strings"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// categoryRule matches a lowercased haystack against a substring.
type categoryRule struct {
	substr   string
	category types.Category
}

// Rule order is significant: the classifier returns the first match.
// Path rules run before content rules, content rules before the
// extension fallback.
var pathRules = []categoryRule{
	{"components", types.CategoryUIComponents},
	{"views", types.CategoryUIComponents},
	{"routes", types.CategoryAPIRoutes},
	{"api/", types.CategoryAPIRoutes},
	{"services", types.CategoryServices},
	{"models", types.CategoryDataModels},
	{"schemas", types.CategoryDataModels},
	{"migrations", types.CategoryDatabase},
	{"docs", types.CategoryDocumentation},
	{"config", types.CategoryConfiguration},
}

var contentRules = []categoryRule{
	{"create table", types.CategoryDatabase},
	{"database", types.CategoryDatabase},
	{"router.", types.CategoryAPIRoutes},
	{"app.get", types.CategoryAPIRoutes},
	{"app.post", types.CategoryAPIRoutes},
	{"usestate", types.CategoryUIComponents},
	{"react", types.CategoryUIComponents},
	{"service", types.CategoryServices},
	{"schema", types.CategoryDataModels},
}

var extensionCategories = map[string]types.Category{
	".md":   types.CategoryDocumentation,
	".txt":  types.CategoryDocumentation,
	".sql":  types.CategoryDatabase,
	".json": types.CategoryConfiguration,
	".yaml": types.CategoryConfiguration,
	".yml":  types.CategoryConfiguration,
	".toml": types.CategoryConfiguration,
	".env":  types.CategoryConfiguration,
	".go":   types.CategoryCode,
	".js":   types.CategoryCode,
	".jsx":  types.CategoryCode,
	".ts":   types.CategoryCode,
	".tsx":  types.CategoryCode,
	".py":   types.CategoryCode,
	".sh":   types.CategoryCode,
}

// Classify assigns exactly one category using the three-tier heuristic:
// path first, content second, extension fallback last.
func Classify(path, content, kind string) types.Category {
	lowerPath := strings.ToLower(path)
	for _, rule := range pathRules {
		if strings.Contains(lowerPath, rule.substr) {
			return rule.category
		}
	}

	lowerContent := strings.ToLower(content)
	for _, rule := range contentRules {
		if strings.Contains(lowerContent, rule.substr) {
			return rule.category
		}
	}

	if cat, ok := extensionCategories[kind]; ok {
		return cat
	}
	return types.CategoryOther
}
