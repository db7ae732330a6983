// Package wconf persists the CLI's last-used settings (data directory,
// key, thread count) between invocations, adapted from the teacher's
// pkg/config.Manager: a viper.Viper wrapping a JSON file under the
// user's home directory.
package wconf

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/rkoshiba/wxforensic/pkg/util"
)

const (
	appName    = "wxforensic"
	configType = "json"
)

// Settings is the persisted shape of the CLI's defaults.
type Settings struct {
	DataDir string `mapstructure:"data_dir"`
	Key     string `mapstructure:"key"`
	Threads int    `mapstructure:"threads"`
}

// Manager wraps a viper instance bound to ~/.wxforensic/wxforensic.json.
type Manager struct {
	path  string
	viper *viper.Viper
}

// New prepares the settings directory (creating it if absent) and binds
// a viper instance to the settings file in it; Load creates the file on
// first run.
func New() (*Manager, error) {
	path, err := os.UserHomeDir()
	if err != nil {
		path = os.TempDir()
	}
	path = path + string(os.PathSeparator) + "." + appName

	if err := util.PrepareDir(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.SetConfigName(appName)
	v.AddConfigPath(path)
	v.SetDefault("threads", 0)

	return &Manager{path: path, viper: v}, nil
}

// Load reads the settings file, returning zero-value Settings if it
// does not yet exist (first run).
func (m *Manager) Load() (Settings, error) {
	var s Settings
	if err := m.viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("no existing config, using defaults")
		if werr := m.viper.SafeWriteConfig(); werr != nil {
			return s, werr
		}
	}
	if err := m.viper.Unmarshal(&s); err != nil {
		return s, err
	}
	return s, nil
}

// Save persists s back to disk, overwriting the existing file.
func (m *Manager) Save(s Settings) error {
	m.viper.Set("data_dir", s.DataDir)
	m.viper.Set("key", s.Key)
	m.viper.Set("threads", s.Threads)
	return m.viper.WriteConfig()
}
