// Package config assembles the build configuration. Values are layered from
// built-in defaults, an optional YAML or JSON file, a .env file and DOCSITE_*
// environment variables; the CLI applies flags last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsite/internal/doctree"
	"github.com/dgallion1/docsite/internal/excerpt"
	"github.com/dgallion1/docsite/internal/parser"
)

// Missing-parser policies.
const (
	MissingParserSkip = "skip"
	MissingParserFail = "fail"
)

// EnvPrefix starts every environment variable the loader reads.
const EnvPrefix = "DOCSITE_"

type Config struct {
	// Layout
	Source          string `yaml:"source"`
	Templates       string `yaml:"templates"`
	Output          string `yaml:"output"`
	DefaultTemplate string `yaml:"default_template"`

	// Parsing
	Parsers            map[string]string `yaml:"parsers"`
	MissingParser      string            `yaml:"missing_parser"`
	Workers            int               `yaml:"workers"`
	DeepMerge          bool              `yaml:"deep_merge"`
	Sanitize           bool              `yaml:"sanitize"`
	UnsafeHTML         bool              `yaml:"unsafe_html"`
	MarkdownExtensions []string          `yaml:"markdown_extensions"`
	PdftotextFallback  bool              `yaml:"pdftotext_fallback"`

	// Page facts
	ExcerptTokens int `yaml:"excerpt_tokens"`

	// Outputs besides the site
	ReportFile  string `yaml:"report_file"`
	MetricsFile string `yaml:"metrics_file"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Source:            "src/pages",
		Templates:         "src/templates",
		Output:            "dist",
		Parsers:           maps.Clone(parser.DefaultParsers),
		MissingParser:     MissingParserSkip,
		Workers:           runtime.NumCPU(),
		PdftotextFallback: true,
		ExcerptTokens:     excerpt.DefaultTokens,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds a Config from defaults, the optional config file and the
// environment. dotenv names a .env file; a missing one is ignored.
func Load(file, dotenv string) (Config, error) {
	cfg := Defaults()
	if file != "" {
		if err := cfg.LoadFile(file); err != nil {
			return cfg, err
		}
	}
	if dotenv != "" {
		if err := LoadDotenv(dotenv); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// keyAliases maps alternative top-level key names onto the canonical ones.
var keyAliases = map[string]string{
	"pages": "source",
}

// LoadFile overlays the settings in a YAML or JSON file. Top-level keys match
// case-insensitively and "pages" is accepted for "source". Parser mappings
// are merged into the existing ones; mapping an extension to "" removes it.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	data, err := canonicalKeys(raw)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	base := c.Parsers
	c.Parsers = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		c.Parsers = base
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.Parsers = mergeParsers(base, c.Parsers)
	return nil
}

// canonicalKeys lower-cases the top-level keys of a YAML or JSON document and
// resolves aliases. Two keys that end up equal are rejected by the decoder.
func canonicalKeys(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return data, nil
	}
	m := doc.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(m.Content[i].Value))
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		m.Content[i].Value = key
	}
	return yaml.Marshal(&doc)
}

func mergeParsers(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for ext, name := range base {
		out[parser.NormalizeExt(ext)] = name
	}
	for ext, name := range overlay {
		ext = parser.NormalizeExt(ext)
		if strings.TrimSpace(name) == "" {
			delete(out, ext)
			continue
		}
		out[ext] = name
	}
	return out
}

// LoadDotenv exports the variables in path. Variables already present in the
// environment win.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays DOCSITE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Source = envOr("SOURCE", c.Source)
	c.Templates = envOr("TEMPLATES", c.Templates)
	c.Output = envOr("OUTPUT", c.Output)
	c.DefaultTemplate = envOr("DEFAULT_TEMPLATE", c.DefaultTemplate)

	c.MissingParser = envOr("MISSING_PARSER", c.MissingParser)
	c.Workers = envInt("WORKERS", c.Workers)
	c.DeepMerge = envBool("DEEP_MERGE", c.DeepMerge)
	c.Sanitize = envBool("SANITIZE", c.Sanitize)
	c.UnsafeHTML = envBool("UNSAFE_HTML", c.UnsafeHTML)
	c.MarkdownExtensions = envList("MARKDOWN_EXTENSIONS", c.MarkdownExtensions)
	c.PdftotextFallback = envBool("PDFTOTEXT_FALLBACK", c.PdftotextFallback)

	c.ExcerptTokens = envInt("EXCERPT_TOKENS", c.ExcerptTokens)
	c.ReportFile = envOr("REPORT_FILE", c.ReportFile)
	c.MetricsFile = envOr("METRICS_FILE", c.MetricsFile)

	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
}

// Validate checks that the directories exist and that every named value is
// one the build understands.
func (c Config) Validate() error {
	info, err := os.Stat(c.Source)
	if err != nil {
		return &doctree.NotFoundError{Path: c.Source, Err: err}
	}
	if !info.IsDir() {
		return &doctree.NotFoundError{Path: c.Source}
	}
	if info, err := os.Stat(c.Templates); err != nil {
		return fmt.Errorf("templates directory %s: %w", c.Templates, err)
	} else if !info.IsDir() {
		return fmt.Errorf("templates path %s is not a directory", c.Templates)
	}
	if c.Output == "" {
		return fmt.Errorf("output directory is required")
	}

	if len(c.Parsers) == 0 {
		return doctree.ErrNoParsers
	}
	for ext, name := range c.Parsers {
		if _, err := parser.Builtin(name, parser.Options{}); err != nil {
			return fmt.Errorf("parsers[%s]: %w", ext, err)
		}
	}
	for _, name := range c.MarkdownExtensions {
		if !parser.KnownExtension(name) {
			return fmt.Errorf("unknown markdown extension %q", name)
		}
	}

	switch c.MissingParser {
	case MissingParserSkip, MissingParserFail:
	default:
		return fmt.Errorf("missing_parser must be %q or %q, got %q", MissingParserSkip, MissingParserFail, c.MissingParser)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.ExcerptTokens < 0 {
		return fmt.Errorf("excerpt_tokens must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// ParserOptions returns the options handed to the built-in parsers.
func (c Config) ParserOptions() parser.Options {
	return parser.Options{
		MarkdownExtensions: c.MarkdownExtensions,
		UnsafeHTML:         c.UnsafeHTML,
		Sanitize:           c.Sanitize,
		PdftotextFallback:  c.PdftotextFallback,
	}
}

// Registry constructs the parser registry described by Parsers.
func (c Config) Registry() (*parser.Registry, error) {
	return parser.NewRegistryFromNames(c.Parsers, c.ParserOptions())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
