package modules

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	"esrt/pkg/errors"
)

// SourceIdentifier is the normalized name of a module. Relative and
// absolute specifiers normalize to rooted slash paths ("/lib/a.js"); bare
// specifiers are kept as written after NFC normalization.
type SourceIdentifier string

func (id SourceIdentifier) String() string { return string(id) }

// IsBare reports whether id names a module outside the path namespace.
func (id SourceIdentifier) IsBare() bool { return !strings.HasPrefix(string(id), "/") }

// NormalizeName turns an import specifier into a source identifier
// relative to referrer. An empty referrer means the root.
func NormalizeName(specifier string, referrer SourceIdentifier) (SourceIdentifier, error) {
	if specifier == "" {
		return "", malformed(specifier, "empty module specifier")
	}
	if !utf8.ValidString(specifier) {
		return "", malformed(specifier, "module specifier is not valid UTF-8")
	}
	if strings.ContainsRune(specifier, 0) {
		return "", malformed(specifier, "module specifier contains NUL")
	}
	specifier = norm.NFC.String(specifier)

	switch {
	case strings.HasPrefix(specifier, "/"):
		return SourceIdentifier(path.Clean(specifier)), nil
	case specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../"):
		dir := "."
		if referrer != "" && !referrer.IsBare() {
			dir = strings.TrimPrefix(path.Dir(string(referrer)), "/")
		}
		rel := path.Join(dir, specifier)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return "", malformed(specifier, "module specifier escapes the module root")
		}
		if rel == "." {
			return "/", nil
		}
		return SourceIdentifier("/" + rel), nil
	}
	return SourceIdentifier(specifier), nil
}

func malformed(specifier, msg string) error {
	return &errors.MalformedNameError{Specifier: specifier, Msg: msg}
}

// AliasRule rewrites specifiers matching Pattern before normalization.
// Patterns use ECMAScript regular expression syntax; Replace may refer to
// groups as $1.
type AliasRule struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

type alias struct {
	re      *regexp2.Regexp
	replace string
}

func compileAliases(rules []AliasRule) ([]alias, error) {
	out := make([]alias, 0, len(rules))
	for _, r := range rules {
		re, err := regexp2.Compile(r.Pattern, regexp2.ECMAScript)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", r.Pattern, err)
		}
		out = append(out, alias{re: re, replace: r.Replace})
	}
	return out, nil
}

// rewrite applies the first matching alias.
func rewrite(aliases []alias, specifier string) (string, error) {
	for _, a := range aliases {
		ok, err := a.re.MatchString(specifier)
		if err != nil {
			return "", err
		}
		if ok {
			return a.re.Replace(specifier, a.replace, -1, 1)
		}
	}
	return specifier, nil
}
