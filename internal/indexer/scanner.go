package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/char5742/groovy-lsp/internal/config"
)

// scanResult is one workspace enumeration pass: indexable source files and
// build descriptors found under the workspace root, gitignore- and
// Exclude-pattern-aware (spec.md §4.4 step 2).
type scanResult struct {
	indexable  []string
	descriptor []string
}

// scanWorkspace walks root, classifying every regular file as indexable,
// a build descriptor, both, or neither, skipping directories the
// configuration or an in-scope .gitignore excludes. Grounded on the
// teacher's FileWatcher.addWatches walk + shouldIgnoreDirectory idiom,
// generalized from "add an fsnotify watch" to "classify a file".
func scanWorkspace(cfg config.Config, gi *config.GitignoreParser) (scanResult, error) {
	var result scanResult

	err := filepath.Walk(cfg.Project.Root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(cfg.Project.Root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && shouldExcludeDir(cfg, gi, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldExcludeFile(cfg, gi, rel) {
			return nil
		}

		if cfg.IsIndexable(path) {
			result.indexable = append(result.indexable, path)
		}
		if cfg.IsBuildDescriptor(path) {
			result.descriptor = append(result.descriptor, path)
		}
		return nil
	})
	return result, err
}

func shouldExcludeDir(cfg config.Config, gi *config.GitignoreParser, rel string) bool {
	for _, pattern := range cfg.Exclude {
		if matchesExclude(pattern, rel) {
			return true
		}
	}
	if cfg.Index.RespectGitignore && gi != nil && gi.ShouldIgnore(rel, true) {
		return true
	}
	return false
}

func shouldExcludeFile(cfg config.Config, gi *config.GitignoreParser, rel string) bool {
	for _, pattern := range cfg.Exclude {
		if matchesExclude(pattern, rel) {
			return true
		}
	}
	if cfg.Index.RespectGitignore && gi != nil && gi.ShouldIgnore(rel, false) {
		return true
	}
	return false
}

func matchesExclude(pattern, rel string) bool {
	if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
		return true
	}
	trimmed := strings.TrimSuffix(strings.TrimSuffix(pattern, "/**"), "/*")
	return rel == trimmed || strings.HasPrefix(rel, trimmed+"/")
}
