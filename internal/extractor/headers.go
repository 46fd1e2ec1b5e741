package extractor

import "strings"

// fallbackHeaderLines is how many leading non-blank lines stand in for
// headers when no kind-specific strategy applies.
const fallbackHeaderLines = 5

// codeKinds are extensions treated as source code for header extraction.
var codeKinds = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".sh": true, ".java": true, ".rb": true, ".rs": true,
}

// structuredKinds are extensions holding structured-record files whose
// top-level key names act as headers.
var structuredKinds = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
}

// projectContent builds the structural projection of a file: the extracted
// headers followed by the normalized body. When header extraction finds
// nothing the normalized body alone is the projection, so no file is ever
// dropped for being structurally opaque.
func projectContent(kind, raw string) string {
	body := normalize(raw)
	headers := extractHeaders(kind, body)
	if len(headers) == 0 {
		return body
	}
	return strings.Join(headers, "\n") + "\n\n" + body
}

// extractHeaders picks the kind-specific strategy. The exact strategies
// are a design choice, not a contract.
func extractHeaders(kind, body string) []string {
	lines := strings.Split(body, "\n")

	switch {
	case kind == ".md":
		return markdownHeaders(lines)
	case kind == ".sql":
		return sqlHeaders(lines)
	case structuredKinds[kind]:
		return structuredHeaders(kind, lines)
	case codeKinds[kind]:
		return codeHeaders(lines)
	default:
		return firstNonBlank(lines, fallbackHeaderLines)
	}
}

// markdownHeaders returns the heading lines of a prose document.
func markdownHeaders(lines []string) []string {
	var headers []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			headers = append(headers, trimmed)
		}
	}
	return headers
}

// codeHeaders returns declaration and top-level comment lines.
func codeHeaders(lines []string) []string {
	prefixes := []string{
		"func ", "type ", "const ", "var ", "package ",
		"import ", "from ", "export ", "class ", "def ",
		"function ", "interface ", "//", "# ",
	}

	var headers []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				headers = append(headers, trimmed)
				break
			}
		}
	}
	return headers
}

// sqlHeaders returns table definitions and comment lines.
func sqlHeaders(lines []string) []string {
	var headers []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if strings.HasPrefix(upper, "CREATE TABLE") ||
			strings.HasPrefix(upper, "ALTER TABLE") ||
			strings.HasPrefix(upper, "CREATE INDEX") ||
			strings.HasPrefix(trimmed, "--") {
			headers = append(headers, trimmed)
		}
	}
	return headers
}

// structuredHeaders returns top-level key names of structured-record files.
func structuredHeaders(kind string, lines []string) []string {
	var headers []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if kind == ".json" {
			// In a conventionally indented document the top-level keys
			// sit one level deep.
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if indent <= 2 && strings.HasPrefix(trimmed, "\"") && strings.Contains(trimmed, ":") {
				if idx := strings.Index(trimmed, ":"); idx > 0 {
					headers = append(headers, strings.Trim(trimmed[:idx], "\" "))
				}
			}
			continue
		}

		// YAML/TOML: unindented key lines and TOML section headers.
		if line[0] == ' ' || line[0] == '\t' || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			headers = append(headers, trimmed)
		} else if idx := strings.Index(trimmed, ":"); idx > 0 {
			headers = append(headers, trimmed[:idx+1])
		}
	}
	return headers
}

// firstNonBlank returns up to n non-blank lines from the top of the file.
func firstNonBlank(lines []string, n int) []string {
	var headers []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		headers = append(headers, trimmed)
		if len(headers) == n {
			break
		}
	}
	return headers
}

// normalize converts line endings to LF and trims trailing whitespace per
// line so projections are byte-identical across platforms.
func normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
