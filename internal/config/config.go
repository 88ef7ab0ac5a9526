// Package config loads the reader configuration from YAML, .env and the environment.
package config

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the file.
const (
	EnvIssuerKey      = "TRANSIT_ISSUER_KEY"
	EnvFeliCaMaster   = "TRANSIT_FELICA_MASTER_KEY"
	EnvLogLevel       = "TRANSIT_LOG_LEVEL"
	keySize           = 16
	defaultEventCount = 3
)

type Config struct {
	Reader   ReaderConfig   `yaml:"reader"`
	Log      LogConfig      `yaml:"log"`
	Calypso  CalypsoConfig  `yaml:"calypso"`
	FeliCa   FeliCaConfig   `yaml:"felica"`
	Emulator EmulatorConfig `yaml:"emulator"`
}

type ReaderConfig struct {
	// Selector is a reader index or a substring of its name. Empty picks the first reader.
	Selector string        `yaml:"selector"`
	Wait     time.Duration `yaml:"wait"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CalypsoConfig struct {
	IssuerKeyHexFile string `yaml:"issuer_key_hex_file"`
	KeyIndex         int    `yaml:"key_index"`
	RetryWrongLength bool   `yaml:"retry_wrong_length"`
	MaxEvents        int    `yaml:"max_events"`

	// IssuerKey is loaded from IssuerKeyHexFile or TRANSIT_ISSUER_KEY.
	IssuerKey []byte `yaml:"-"`
}

type FeliCaConfig struct {
	SystemCode         uint16 `yaml:"system_code"`
	MasterKeyHexFile   string `yaml:"master_key_hex_file"`
	MaxHistory         int    `yaml:"max_history"`
	MutualAuthenticate bool   `yaml:"mutual_authenticate"`

	// MasterKey is loaded from MasterKeyHexFile or TRANSIT_FELICA_MASTER_KEY.
	MasterKey []byte `yaml:"-"`
}

type EmulatorConfig struct {
	Balance uint16        `yaml:"balance"`
	Trips   uint8         `yaml:"trips"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{Wait: 10 * time.Second},
		Log:    LogConfig{Level: "info", Format: "text"},
		Calypso: CalypsoConfig{
			KeyIndex:         1,
			RetryWrongLength: true,
			MaxEvents:        defaultEventCount,
		},
		FeliCa: FeliCaConfig{
			SystemCode: 0x0003,
			MaxHistory: 20,
		},
		Emulator: EmulatorConfig{
			Balance: 10000,
			Trips:   50,
			Timeout: 500 * time.Millisecond,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies a .env file found next
// to it and the TRANSIT_* environment. An empty path loads the defaults and the
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	dir := "."

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
		dir = filepath.Dir(path)
		cfg.resolvePaths(dir)
	}

	if err := loadDotEnv(filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.loadKeys(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		log.Debugf("%s loaded", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) resolvePaths(configDir string) {
	c.Calypso.IssuerKeyHexFile = resolvePath(configDir, c.Calypso.IssuerKeyHexFile)
	c.FeliCa.MasterKeyHexFile = resolvePath(configDir, c.FeliCa.MasterKeyHexFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func (c *Config) loadKeys() error {
	var err error
	if c.Calypso.IssuerKey, err = loadKey(EnvIssuerKey, c.Calypso.IssuerKeyHexFile, "config.calypso.issuer_key_hex_file"); err != nil {
		return err
	}
	if c.FeliCa.MasterKey, err = loadKey(EnvFeliCaMaster, c.FeliCa.MasterKeyHexFile, "config.felica.master_key_hex_file"); err != nil {
		return err
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		c.Log.Level = level
	}
	return nil
}

// loadKey prefers the environment variable over the key file. Neither set yields nil.
func loadKey(env, path, field string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		key, err := ParseKey(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", env, err)
		}
		return key, nil
	}
	if path == "" {
		return nil, nil
	}
	key, err := LoadKeyHexFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

// LoadKeyHexFile loads a 16-byte key from the first non-empty line of a .hex file.
func LoadKeyHexFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return ParseKey(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("key file is empty")
}

// ParseKey decodes a 16-byte key written as 32 hex chars. Spaces are ignored.
func ParseKey(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s) != 2*keySize {
		return nil, fmt.Errorf("key must be %d hex chars, got %d", 2*keySize, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %v", err)
	}
	return key, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config.log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Reader.Wait < 0 {
		return fmt.Errorf("config.reader.wait must be >= 0")
	}
	if c.Calypso.KeyIndex < 1 || c.Calypso.KeyIndex > 3 {
		return fmt.Errorf("config.calypso.key_index must be 1..3")
	}
	if c.Calypso.MaxEvents < 1 || c.Calypso.MaxEvents > 255 {
		return fmt.Errorf("config.calypso.max_events must be 1..255")
	}
	if c.FeliCa.MaxHistory < 1 || c.FeliCa.MaxHistory > 20 {
		return fmt.Errorf("config.felica.max_history must be 1..20")
	}
	if c.Emulator.Timeout <= 0 {
		return fmt.Errorf("config.emulator.timeout must be > 0")
	}
	return nil
}

// ConfigureLogger applies the level and formatter to l.
func (c *Config) ConfigureLogger(l *log.Logger) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
