package scanner

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// Config controls which files the scanner yields.
type Config struct {
	IncludeExtensions     []string // Lowercased, including the dot; empty means include all
	ExcludePathSubstrings []string // Relative-path substrings; matching directories are pruned
	MaxFileSizeBytes      int64    // Files above the cap are silently skipped; 0 means no cap
	BatchSize             int      // Consumed by the coordinator, carried here for one config surface
}

// DefaultConfig returns the scanner defaults used when options are left
// zero-valued.
func DefaultConfig() Config {
	return Config{
		IncludeExtensions:     []string{".md", ".txt", ".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".sql", ".json", ".yaml", ".yml"},
		ExcludePathSubstrings: []string{"node_modules", "vendor", "dist", "build"},
		MaxFileSizeBytes:      1 << 20, // 1 MiB
		BatchSize:             50,
	}
}

// Scanner walks a directory tree applying include/exclude rules and,
// optionally, watches it for changes.
type Scanner struct {
	root    string
	config  Config
	include map[string]bool
}

// New creates a Scanner rooted at root. The root must exist; a missing
// root is a configuration-level failure and propagates.
func New(root string, config Config) (*Scanner, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	include := make(map[string]bool, len(config.IncludeExtensions))
	for _, ext := range config.IncludeExtensions {
		include[strings.ToLower(ext)] = true
	}

	return &Scanner{
		root:    root,
		config:  config,
		include: include,
	}, nil
}

// Root returns the scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the tree once and returns the candidate file list. Unlistable
// directories and unstatable files are logged as warnings and skipped; the
// walk continues over siblings.
func (s *Scanner) Scan() ([]types.FileDescriptor, error) {
	var files []types.FileDescriptor

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("scanner: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != s.root && s.excludedDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.Accepts(rel, d.Name()) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			log.Printf("scanner: cannot stat %s: %v", path, statErr)
			return nil
		}

		if s.config.MaxFileSizeBytes > 0 && info.Size() > s.config.MaxFileSizeBytes {
			// Oversize files are skipped silently, not recorded as errors.
			return nil
		}

		files = append(files, types.FileDescriptor{
			Path:      path,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			Kind:      strings.ToLower(filepath.Ext(path)),
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", types.ErrIO, s.root, err)
	}

	return files, nil
}

// Accepts applies the include/exclude test a path must pass, both during
// the full scan and for watch-mode events.
func (s *Scanner) Accepts(relPath, name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	for _, substr := range s.config.ExcludePathSubstrings {
		if strings.Contains(relPath, substr) {
			return false
		}
	}
	if len(s.include) > 0 && !s.include[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	return true
}

// excludedDir reports whether a directory should be pruned entirely.
func (s *Scanner) excludedDir(name, relPath string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, substr := range s.config.ExcludePathSubstrings {
		if strings.Contains(relPath, substr) {
			return true
		}
	}
	return false
}
