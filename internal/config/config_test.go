package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsite/internal/doctree"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func siteDirs(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := Defaults()
	cfg.Source = filepath.Join(root, "pages")
	cfg.Templates = filepath.Join(root, "templates")
	cfg.Output = filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(cfg.Source, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Templates, 0o755))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "src/pages", cfg.Source)
	require.Equal(t, "src/templates", cfg.Templates)
	require.Equal(t, "dist", cfg.Output)
	require.Equal(t, map[string]string{".yd": "yamldown"}, cfg.Parsers)
	require.Equal(t, MissingParserSkip, cfg.MissingParser)
	require.Positive(t, cfg.Workers)

	// The defaults must not alias the package-level parser table.
	cfg.Parsers[".md"] = "markdown"
	require.NotContains(t, Defaults().Parsers, ".md")
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docsite.yaml", `
source: content
default_template: base
deep_merge: true
parsers:
  md: markdown
  .YD: ""
markdown_extensions: [gfm, footnote]
`)
	cfg := Defaults()
	require.NoError(t, cfg.LoadFile(path))
	require.Equal(t, "content", cfg.Source)
	require.Equal(t, "src/templates", cfg.Templates, "unset keys keep their defaults")
	require.Equal(t, "base", cfg.DefaultTemplate)
	require.True(t, cfg.DeepMerge)
	require.Equal(t, map[string]string{".md": "markdown"}, cfg.Parsers)
	require.Equal(t, []string{"gfm", "footnote"}, cfg.MarkdownExtensions)
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "docsite.json", `{"output": "public", "parsers": {".txt": "text"}, "workers": 2}`)
	cfg := Defaults()
	require.NoError(t, cfg.LoadFile(path))
	require.Equal(t, "public", cfg.Output)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, map[string]string{".yd": "yamldown", ".txt": "text"}, cfg.Parsers)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	cfg := Defaults()
	require.Error(t, cfg.LoadFile(filepath.Join(dir, "missing.yaml")))

	unknown := writeFile(t, dir, "typo.yaml", "sourse: pages\n")
	require.Error(t, cfg.LoadFile(unknown))
	require.Equal(t, ".yd", firstKey(cfg.Parsers), "a failed load leaves parsers intact")

	empty := writeFile(t, dir, "empty.yaml", "")
	require.NoError(t, cfg.LoadFile(empty))
}

func firstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DOCSITE_OUTPUT", "site")
	t.Setenv("DOCSITE_WORKERS", "3")
	t.Setenv("DOCSITE_SANITIZE", "true")
	t.Setenv("DOCSITE_MARKDOWN_EXTENSIONS", "table, strikethrough,")
	t.Setenv("DOCSITE_EXCERPT_TOKENS", "not-a-number")

	cfg := Defaults()
	cfg.ApplyEnv()
	require.Equal(t, "site", cfg.Output)
	require.Equal(t, 3, cfg.Workers)
	require.True(t, cfg.Sanitize)
	require.Equal(t, []string{"table", "strikethrough"}, cfg.MarkdownExtensions)
	require.Equal(t, Defaults().ExcerptTokens, cfg.ExcerptTokens)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "docsite.yaml", "source: from-file\ntemplates: from-file\noutput: from-file\n")
	dotenv := writeFile(t, dir, ".env", "DOCSITE_TEMPLATES=from-dotenv\nDOCSITE_OUTPUT=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("DOCSITE_TEMPLATES") })
	t.Setenv("DOCSITE_OUTPUT", "from-env")

	cfg, err := Load(file, dotenv)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Source)
	require.Equal(t, "from-dotenv", cfg.Templates)
	require.Equal(t, "from-env", cfg.Output)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, siteDirs(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"templates missing", func(c *Config) { c.Templates = filepath.Join(c.Templates, "nope") }},
		{"no output", func(c *Config) { c.Output = "" }},
		{"unknown parser", func(c *Config) { c.Parsers[".x"] = "plugins.CustomParser" }},
		{"unknown extension", func(c *Config) { c.MarkdownExtensions = []string{"mermaid"} }},
		{"bad policy", func(c *Config) { c.MissingParser = "ignore" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := siteDirs(t)
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_TypedErrors(t *testing.T) {
	cfg := siteDirs(t)
	cfg.Source = filepath.Join(cfg.Source, "missing")
	var nf *doctree.NotFoundError
	require.True(t, errors.As(cfg.Validate(), &nf))

	cfg = siteDirs(t)
	cfg.Parsers = map[string]string{}
	require.ErrorIs(t, cfg.Validate(), doctree.ErrNoParsers)
}

func TestRegistry(t *testing.T) {
	cfg := Defaults()
	cfg.Parsers[".md"] = "markdown"
	reg, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, []string{".md", ".yd"}, reg.Extensions())
}

func TestLoadFile_LegacyStyleKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site.yaml", `
pages: site/pages
TEMPLATES: site/tpl
Default_Template: page
parsers:
  .yd: LegacyYAMLDownParser
`)
	cfg := Defaults()
	require.NoError(t, cfg.LoadFile(path))
	require.Equal(t, "site/pages", cfg.Source)
	require.Equal(t, "site/tpl", cfg.Templates)
	require.Equal(t, "page", cfg.DefaultTemplate)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, []string{".yd"}, reg.Extensions())

	jsonPath := writeFile(t, dir, "site.json", `{"PAGES": "p", "OUTPUT": "o"}`)
	cfg = Defaults()
	require.NoError(t, cfg.LoadFile(jsonPath))
	require.Equal(t, "p", cfg.Source)
	require.Equal(t, "o", cfg.Output)

	dup := writeFile(t, dir, "dup.yaml", "source: a\npages: b\n")
	require.Error(t, cfg.LoadFile(dup), "source and its alias together are ambiguous")
}
