// Package config holds the server's configuration: workspace layout,
// indexable/build-descriptor extensions, cache bounds, and the worker-pool
// and scheduler sizes of §5/§6. Defaults come from this file; a workspace
// may override them with a `.groovy-lsp.kdl` file, and the environment
// overrides both (see ApplyEnv).
package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Project     Project
	Index       Index
	Performance Performance
	Include     []string
	Exclude     []string
}

type Project struct {
	Root string
}

// Index controls workspace enumeration (C4 initial scan).
type Index struct {
	IndexableExtensions  []string
	BuildDescriptorNames []string
	RespectGitignore     bool
	WatchMode            bool
	WatchDebounceMs      int
}

// Performance controls the bounded worker pool and scheduler of §5.
type Performance struct {
	MaxThreads         int // GROOVY_LSP_MAX_THREADS, default 50
	CoreThreads        int // default 10
	WorkerIdleSec      int // default 60
	SchedulerThreads   int // GROOVY_LSP_SCHEDULER_THREADS, default 2
	ParseCacheEntries  int // default 256
	DepCacheMaxEntries int // default 100
	DepCacheMaxAgeHrs  int // default 24
	MemoryCheckSec     int // default 300 (5 minutes)
	LockRetrySec       int // default 30
}

// Default returns the configuration defaults named throughout §5/§6.
func Default(workspaceRoot string) Config {
	return Config{
		Project: Project{Root: workspaceRoot},
		Index: Index{
			IndexableExtensions:  []string{".groovy", ".gvy", ".gy", ".gsh", ".java", ".gradle", ".gradle.kts"},
			BuildDescriptorNames: []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts", "pom.xml"},
			RespectGitignore:     true,
			WatchMode:            true,
			WatchDebounceMs:      200,
		},
		Performance: Performance{
			MaxThreads:         50,
			CoreThreads:        10,
			WorkerIdleSec:      60,
			SchedulerThreads:   2,
			ParseCacheEntries:  256,
			DepCacheMaxEntries: 100,
			DepCacheMaxAgeHrs:  24,
			MemoryCheckSec:     300,
			LockRetrySec:       30,
		},
		Include: []string{"**/*"},
		Exclude: []string{"**/.git/**", "**/.groovy-lsp/**", "**/build/**", "**/target/**", "**/.gradle/**"},
	}
}

// IsBuildDescriptor reports whether the base name of path is one of the
// build-descriptor files that trigger dependency re-resolution (§4.4).
func (c Config) IsBuildDescriptor(path string) bool {
	base := filepath.Base(path)
	for _, n := range c.Index.BuildDescriptorNames {
		if base == n {
			return true
		}
	}
	return false
}

// IsIndexable reports whether path has one of the indexable extensions
// (§4.4). It matches by plain string suffix rather than filepath.Ext, so
// multi-dot extensions such as ".gradle.kts" match too.
func (c Config) IsIndexable(path string) bool {
	for _, ext := range c.Index.IndexableExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// ApplyEnv overrides Performance fields and the project root from the
// environment variables named in §6, leaving unset variables at their
// current value.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("GROOVY_LSP_MAX_THREADS"); v != "" {
		if n, ok := atoiPositive(v); ok {
			c.Performance.MaxThreads = n
		}
	}
	if v := os.Getenv("GROOVY_LSP_SCHEDULER_THREADS"); v != "" {
		if n, ok := atoiPositive(v); ok {
			c.Performance.SchedulerThreads = n
		}
	}
	if v := os.Getenv("GROOVY_LSP_WORKSPACE_ROOT"); v != "" {
		c.Project.Root = v
	}
	return c
}

func atoiPositive(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}
