package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		specifier string
		referrer  SourceIdentifier
		want      SourceIdentifier
	}{
		{"./a.js", "", "/a.js"},
		{"./a.js", "/lib/b.js", "/lib/a.js"},
		{"../a.js", "/lib/deep/b.js", "/lib/a.js"},
		{"./x/../y.js", "/b.js", "/y.js"},
		{"/abs//c.js", "/lib/b.js", "/abs/c.js"},
		{".", "/lib/b.js", "/lib"},
		{"lodash", "/lib/b.js", "lodash"},
		{"@scope/pkg", "", "@scope/pkg"},
		{"./rel.js", "bare", "/rel.js"},
		// U+0065 U+0301 composes to U+00E9.
		{"./cafe\u0301.js", "", "/caf\u00e9.js"},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.specifier, tt.referrer)
		require.NoError(t, err, tt.specifier)
		assert.Equal(t, tt.want, got, "NormalizeName(%q, %q)", tt.specifier, tt.referrer)
	}
}

func TestNormalizeNameMalformed(t *testing.T) {
	for _, specifier := range []string{"", "../escape.js", "./a/../../b.js", "bad\x00name", "\xff"} {
		_, err := NormalizeName(specifier, "/main.js")
		assert.True(t, errors.IsKind(err, errors.KindMalformedName), "%q: got %v", specifier, err)
	}
}

func TestAliasRules(t *testing.T) {
	aliases, err := compileAliases([]AliasRule{
		{Pattern: `^@app/(.*)$`, Replace: "/src/$1"},
		{Pattern: `^lodash$`, Replace: "/vendor/lodash.js"},
	})
	require.NoError(t, err)

	tests := map[string]string{
		"@app/util.js": "/src/util.js",
		"lodash":       "/vendor/lodash.js",
		"lodash-es":    "lodash-es",
		"./local.js":   "./local.js",
	}
	for in, want := range tests {
		got, err := rewrite(aliases, in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err = compileAliases([]AliasRule{{Pattern: `(unclosed`}})
	assert.Error(t, err)
}
