package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/jotter/internal/paths"
	"github.com/mesh-intelligence/jotter/internal/server"
	"github.com/mesh-intelligence/jotter/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "JOTTER"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyFallback     = "fallback"
	cfgKeySQLiteDriver = "sqlite_driver"
	cfgKeyPageSize     = "page_size"
	cfgKeyListen       = "listen"
	cfgKeyStaticDir    = "static_dir"
	cfgKeyCORSOrigins  = "cors_origins"
	cfgKeyServer       = "server"
)

// configFile is the layout of config.yaml.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	Fallback     bool   `yaml:"fallback"`
	SQLiteDriver string `yaml:"sqlite_driver"`
	PageSize     int    `yaml:"page_size"`
	Listen       string `yaml:"listen"`
	StaticDir    string `yaml:"static_dir,omitempty"`
	CORSOrigins  string `yaml:"cors_origins"`
}

// defaultConfig is what init writes and what an absent key falls back to.
func defaultConfig() configFile {
	return configFile{
		Backend:      types.BackendSQLite,
		Fallback:     true,
		SQLiteDriver: types.DriverPure,
		PageSize:     types.DefaultPageSize,
		Listen:       server.DefaultListen,
		CORSOrigins:  server.DefaultCORSOrigins,
	}
}

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Backend      string
	DataDir      string
	Fallback     bool
	SQLiteDriver string
	PageSize     int
	Listen       string
	StaticDir    string
	CORSOrigins  string
	Server       string
}

// StorageConfig returns the backend part of the settings.
func (s Settings) StorageConfig() types.Config {
	return types.Config{
		Backend:      s.Backend,
		DataDir:      s.DataDir,
		SQLiteDriver: s.SQLiteDriver,
		Fallback:     s.Fallback,
		PageSize:     s.PageSize,
	}
}

// loadConfig reads config.yaml from configDir into v, with JOTTER_* env
// overrides. A missing config file is not an error.
func loadConfig(v *viper.Viper, configDir string) error {
	d := defaultConfig()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyFallback, d.Fallback)
	v.SetDefault(cfgKeySQLiteDriver, d.SQLiteDriver)
	v.SetDefault(cfgKeyPageSize, d.PageSize)
	v.SetDefault(cfgKeyListen, d.Listen)
	v.SetDefault(cfgKeyCORSOrigins, d.CORSOrigins)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// readSettings extracts Settings from v and validates them.
func readSettings(v *viper.Viper, dataDirFlag string) (Settings, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return Settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := Settings{
		Backend:      v.GetString(cfgKeyBackend),
		DataDir:      dataDir,
		Fallback:     v.GetBool(cfgKeyFallback),
		SQLiteDriver: v.GetString(cfgKeySQLiteDriver),
		PageSize:     v.GetInt(cfgKeyPageSize),
		Listen:       v.GetString(cfgKeyListen),
		StaticDir:    v.GetString(cfgKeyStaticDir),
		CORSOrigins:  v.GetString(cfgKeyCORSOrigins),
		Server:       v.GetString(cfgKeyServer),
	}
	if err := s.StorageConfig().Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(configDir string, cfg configFile) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# jotter configuration. Every key can also be set as JOTTER_<KEY>.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
