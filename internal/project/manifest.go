// Package project locates and parses rill.toml, the project manifest:
// package identity, where the front end leaves its typed-tree dumps, the
// feature allow-list and checker defaults.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is one parsed rill.toml plus where it came from.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the rill.toml layout.
type Config struct {
	Package  PackageConfig  `toml:"package"`
	Input    InputConfig    `toml:"input"`
	Features FeaturesConfig `toml:"features"`
	Check    CheckConfig    `toml:"check"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// InputConfig names the directory the front end writes *.ast.json dumps
// into, relative to the project root.
type InputConfig struct {
	Dumps string `toml:"dumps"`
}

type FeaturesConfig struct {
	Enable []string `toml:"enable"`
}

type CheckConfig struct {
	WarningsAsErrors bool `toml:"warnings_as_errors"`
	MaxDiagnostics   int  `toml:"max_diagnostics"`
}

// DefaultDumpsDir is used when [input].dumps is absent.
const DefaultDumpsDir = "target/ast"

// DefaultMaxDiagnostics caps reporting when [check].max_diagnostics is
// absent or non-positive.
const DefaultMaxDiagnostics = 100

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// Discover walks up from startDir and loads the nearest manifest.
// ok is false when no rill.toml exists on the path to the filesystem root.
func Discover(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindRillToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	for _, name := range cfg.Features.Enable {
		if strings.TrimSpace(name) == "" {
			return Config{}, fmt.Errorf("%s: empty feature name in [features].enable", path)
		}
	}
	return cfg, nil
}

// DumpsDir resolves the dump directory against the project root.
func (m *Manifest) DumpsDir() string {
	dir := strings.TrimSpace(m.Config.Input.Dumps)
	if dir == "" {
		dir = DefaultDumpsDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, filepath.FromSlash(dir))
}

// MaxDiagnostics returns the effective diagnostics cap.
func (m *Manifest) MaxDiagnostics() int {
	if m.Config.Check.MaxDiagnostics > 0 {
		return m.Config.Check.MaxDiagnostics
	}
	return DefaultMaxDiagnostics
}

// EnabledFeatures returns the manifest allow-list.
func (m *Manifest) EnabledFeatures() []string {
	return m.Config.Features.Enable
}
