package depcache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/char5742/groovy-lsp/internal/types"
)

// BuildSystemResolver autodetects GRADLE/MAVEN/NONE by probing for the
// marker files spec.md §4.2 names, the same marker-file-probing idiom the
// teacher uses to detect language build outputs. It resolves a dependency
// set by reading a project-supplied classpath file if present, falling
// back to an empty set (NONE) — the real build-tool invocation is outside
// this spec's scope (spec.md §1 non-goals).
type BuildSystemResolver struct{}

func NewBuildSystemResolver() *BuildSystemResolver { return &BuildSystemResolver{} }

func (r *BuildSystemResolver) Resolve(ctx context.Context, projectRoot string) (DependencySet, types.BuildSystem, error) {
	system := r.detect(projectRoot)
	paths, err := r.readClasspathFile(projectRoot)
	if err != nil {
		return DependencySet{}, system, err
	}
	return NewDependencySet(paths), system, nil
}

func (r *BuildSystemResolver) detect(projectRoot string) types.BuildSystem {
	gradleMarkers := []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts"}
	for _, m := range gradleMarkers {
		if exists(filepath.Join(projectRoot, m)) {
			return types.BuildGradle
		}
	}
	if exists(filepath.Join(projectRoot, "pom.xml")) {
		return types.BuildMaven
	}
	return types.BuildNone
}

// readClasspathFile reads a newline-delimited classpath manifest, the
// narrow interface spec.md §1 allows in place of invoking Gradle/Maven
// directly: `.groovy-lsp-classpath` is expected to be produced by whatever
// build-tool integration a caller wires in front of this resolver.
func (r *BuildSystemResolver) readClasspathFile(projectRoot string) ([]string, error) {
	path := filepath.Join(projectRoot, ".groovy-lsp-classpath")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	start := 0
	for i, c := range data {
		if c == '\n' {
			line := trimCR(string(data[start:i]))
			if line != "" {
				paths = append(paths, line)
			}
			start = i + 1
		}
	}
	if start < len(data) {
		if line := trimCR(string(data[start:])); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultContextFactory constructs a ClassLoadingContext directly from a
// DependencySet with no further I/O, matching the opaque-handle contract of
// spec.md §3 (the handle's internal type resolution machinery is outside
// this spec's scope; only construction/release are specified).
type DefaultContextFactory struct{}

func NewDefaultContextFactory() *DefaultContextFactory { return &DefaultContextFactory{} }

func (f *DefaultContextFactory) Construct(ctx context.Context, deps DependencySet) (*ClassLoadingContext, error) {
	return &ClassLoadingContext{Deps: deps}, nil
}
