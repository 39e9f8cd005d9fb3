// Package config loads the layered formations configuration.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// FORMATIONS_* environment variables, then flags set on the command line.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/FocuswithJustin/formations/core/errors"
	"github.com/FocuswithJustin/formations/core/formation"
	"github.com/FocuswithJustin/formations/core/lexicon"
	"github.com/FocuswithJustin/formations/internal/logging"
)

// EnvPrefix prefixes every environment override. FORMATIONS_DB_PATH sets
// db.path and FORMATIONS_DECOMPOSE_MAX_LENGTH sets decompose.max_length.
const EnvPrefix = "FORMATIONS_"

// DefaultFiles are searched in the working directory when no config file
// is named explicitly.
var DefaultFiles = []string{"formations.yaml", "formations.yml"}

// Config is the complete configuration.
type Config struct {
	DB        DBConfig        `koanf:"db"`
	Corpus    CorpusConfig    `koanf:"corpus"`
	Lexicon   LexiconConfig   `koanf:"lexicon"`
	Decompose DecomposeConfig `koanf:"decompose"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type CorpusConfig struct {
	Dir        string   `koanf:"dir"`
	Books      []string `koanf:"books"`
	SeedLength int      `koanf:"seed_length"`
	Alphabet   string   `koanf:"alphabet"`
	Parallel   int      `koanf:"parallel"`
}

type LexiconConfig struct {
	Path string `koanf:"path"`
}

type DecomposeConfig struct {
	Workers   int `koanf:"workers"`
	MaxLength int `koanf:"max_length"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	CacheSize      int      `koanf:"cache_size"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"db.path":                "formations.db",
		"corpus.dir":             "wlc",
		"corpus.books":           []string{},
		"corpus.seed_length":     3,
		"corpus.alphabet":        lexicon.Hebrew,
		"corpus.parallel":        runtime.NumCPU(),
		"lexicon.path":           "LexicalIndex.xml",
		"decompose.workers":      runtime.NumCPU(),
		"decompose.max_length":   formation.DefaultMaxLength,
		"server.port":            8000,
		"server.allowed_origins": []string{"*"},
		"server.cache_size":      4096,
		"log.level":              "info",
		"log.format":             "text",
	}
}

// Load builds the configuration. path names the config file; when empty the
// DefaultFiles are tried. flags holds only the values the user set on the
// command line, keyed like the config ("db.path").
func Load(path string, flags map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(path)
	if path != "" && used == "" {
		return nil, errors.NewIO("read config", path, os.ErrNotExist)
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// listKeys take comma or space separated values from the environment.
var listKeys = map[string]bool{
	"corpus.books":           true,
	"server.allowed_origins": true,
}

// envValue maps FORMATIONS_SECTION_SOME_KEY to section.some_key.
func envValue(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if section, rest, ok := strings.Cut(key, "_"); ok {
		key = section + "." + rest
	}
	if listKeys[key] {
		return key, strings.Fields(strings.ReplaceAll(value, ",", " "))
	}
	return key, value
}

// Validate checks the configuration for values no command can run with.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return errors.NewValidation("db.path", "is required")
	}
	if c.Decompose.Workers <= 0 {
		return errors.NewValidation("decompose.workers", fmt.Sprintf("must be positive, got %d", c.Decompose.Workers))
	}
	if c.Decompose.MaxLength <= 0 {
		return errors.NewValidation("decompose.max_length", fmt.Sprintf("must be positive, got %d", c.Decompose.MaxLength))
	}
	if c.Corpus.SeedLength < 0 {
		return errors.NewValidation("corpus.seed_length", "must not be negative")
	}
	if c.Corpus.Parallel <= 0 {
		return errors.NewValidation("corpus.parallel", fmt.Sprintf("must be positive, got %d", c.Corpus.Parallel))
	}
	if _, err := c.Alphabet(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewValidation("server.port", fmt.Sprintf("out of range: %d", c.Server.Port))
	}
	if c.Server.CacheSize < 0 {
		return errors.NewValidation("server.cache_size", "must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.NewValidation("log.format", err.Error())
	}
	return nil
}

// Alphabet builds the configured alphabet.
func (c *Config) Alphabet() (*lexicon.Alphabet, error) {
	a, err := lexicon.NewAlphabet(c.Corpus.Alphabet)
	if err != nil {
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			ve.Field = "corpus.alphabet"
		}
		return nil, err
	}
	return a, nil
}
