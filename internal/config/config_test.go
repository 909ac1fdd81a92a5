package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsIndexable(t *testing.T) {
	cfg := Default("/ws")
	assert.True(t, cfg.IsIndexable("Foo.groovy"))
	assert.True(t, cfg.IsIndexable("build.gradle.kts"))
	assert.False(t, cfg.IsIndexable("README.md"))
}

func TestIsBuildDescriptor(t *testing.T) {
	cfg := Default("/ws")
	assert.True(t, cfg.IsBuildDescriptor("/ws/build.gradle"))
	assert.True(t, cfg.IsBuildDescriptor("/ws/sub/pom.xml"))
	assert.False(t, cfg.IsBuildDescriptor("/ws/Foo.groovy"))
}

func TestApplyEnvOverridesThreadCounts(t *testing.T) {
	t.Setenv("GROOVY_LSP_MAX_THREADS", "12")
	t.Setenv("GROOVY_LSP_SCHEDULER_THREADS", "4")

	cfg := Default("/ws").ApplyEnv()
	assert.Equal(t, 12, cfg.Performance.MaxThreads)
	assert.Equal(t, 4, cfg.Performance.SchedulerThreads)
}

func TestLoadKDLMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(dir).Performance, cfg.Performance)
}

func TestLoadKDLOverridesPerformance(t *testing.T) {
	dir := t.TempDir()
	contents := "performance {\n  max_threads 8\n  scheduler_threads 3\n}\ninclude \"**/*.groovy\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".groovy-lsp.kdl"), []byte(contents), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Performance.MaxThreads)
	assert.Equal(t, 3, cfg.Performance.SchedulerThreads)
	assert.Equal(t, []string{"**/*.groovy"}, cfg.Include)
}
