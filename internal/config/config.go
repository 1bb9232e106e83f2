package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/mapper"
)

// AppConfig is the application configuration, loaded from config.toml next
// to the executable.
type AppConfig struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Source  SourceConfig  `toml:"source"`
	Mapping MappingConfig `toml:"mapping"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig holds working-directory settings.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// SourceConfig points at the relational source the reports are filled from.
type SourceConfig struct {
	DatabasePath string `toml:"database_path"`
	DefaultTable string `toml:"default_table"`
}

// MappingConfig exposes the auto-mapping thresholds. The detector constants
// are heuristic policy, not contract, so they are configurable rather than
// hard-coded.
type MappingConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	HeadernessThreshold float64 `toml:"headerness_threshold"`
	DensityThreshold    float64 `toml:"density_threshold"`
	LookaheadRows       int     `toml:"lookahead_rows"`
	TokenWeight         float64 `toml:"token_weight"`
	CharWeight          float64 `toml:"char_weight"`
}

// DetectorConfig converts the mapping section into detector settings.
func (m MappingConfig) DetectorConfig() mapper.DetectorConfig {
	return mapper.DetectorConfig{
		LookaheadRows:       m.LookaheadRows,
		HeadernessThreshold: m.HeadernessThreshold,
		DensityThreshold:    m.DensityThreshold,
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20372,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Source: SourceConfig{
			DatabasePath: "",
			DefaultTable: "",
		},
		Mapping: MappingConfig{
			ConfidenceThreshold: mapper.DefaultConfidenceThreshold,
			HeadernessThreshold: mapper.DefaultHeadernessThreshold,
			DensityThreshold:    mapper.DefaultDensityThreshold,
			LookaheadRows:       mapper.DefaultLookaheadRows,
			TokenWeight:         mapper.DefaultTokenWeight,
			CharWeight:          mapper.DefaultCharWeight,
		},
	}
}

// GetExeDir returns the directory holding the executable.
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig reads config.toml from the executable directory, falling back
// to defaults when it does not exist. Environment variables override the
// file for local runs and tests.
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("AUTOREPORT_SOURCE_DB"); v != "" {
		config.Source.DatabasePath = v
	}
	if v := os.Getenv("AUTOREPORT_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
}

// SaveConfig writes the configuration back to config.toml.
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(exeDir, "config.toml"), data, 0644)
}

// EnsureDataDir creates the data directory tree and returns its path.
// Relative paths resolve against the executable directory.
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDataDir(config)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}
	return dataDir, nil
}

// GetDataPath builds a path inside the data directory.
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDataDir(config), subdir, filename)
}

func resolveDataDir(config *AppConfig) string {
	dataDir := config.Data.DataDir
	if filepath.IsAbs(dataDir) {
		return dataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, dataDir)
}
