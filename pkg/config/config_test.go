package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/modules"
	"esrt/pkg/vm"
)

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
compatibility: [function-prototype]
modules:
  extensions: [.js]
  aliases:
    - pattern: "^@app/(.*)$"
      replace: "/src/$1"
loader:
  workers: 3
  cache_ttl: 90s
  cache_size: 64
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, []string{".js"}, cfg.Modules.Extensions)
	assert.Equal(t, []string{"index.js", "index.mjs"}, cfg.Modules.IndexFiles, "unset keys keep their defaults")
	assert.Equal(t, 90*time.Second, cfg.Loader.CacheTTL)
	assert.Equal(t, "debug", cfg.Log.Level)

	set, err := cfg.CompatibilitySet()
	require.NoError(t, err)
	assert.True(t, set.Has(vm.CompatFunctionPrototype))
	assert.False(t, set.Has(vm.CompatBlockFunctionDeclaration))

	lc := cfg.LoaderConfig()
	assert.Equal(t, 3, lc.Workers)
	assert.Equal(t, 64, lc.CacheSize)
	assert.Equal(t, []modules.AliasRule{{Pattern: "^@app/(.*)$", Replace: "/src/$1"}}, lc.Aliases)
}

func TestParseEmptyYieldsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("loader:\n  threads: 4\n"))
	assert.ErrorContains(t, err, "threads")
}

func TestValidate(t *testing.T) {
	_, err := Parse(strings.NewReader(`
compatibility: [strict-mode-off]
modules:
  extensions: [js]
loader:
  workers: 0
log:
  level: loud
`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 4)
	assert.Contains(t, verr.Error(), `unknown option "strict-mode-off"`)
}

func TestWebCompatibility(t *testing.T) {
	cfg := Default()
	cfg.Compatibility = []string{"web"}
	set, err := cfg.CompatibilitySet()
	require.NoError(t, err)
	assert.Equal(t, vm.WebCompatibility(), set)
}

func TestLoadResolvesRootsAgainstFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "esrt.yml")
	require.NoError(t, os.WriteFile(path, []byte("modules:\n  roots: [vendor, /opt/js]\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "vendor"), "/opt/js"}, cfg.Modules.Roots)

	require.NoError(t, os.WriteFile(path, []byte("loader:\n  workers: -1\n"), 0o644))
	_, err = Load(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, path, verr.Path)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
