package config

import (
	"strings"

	"github.com/go-i2p/go-updater/lib/storage"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

// CfgFile optionally names a YAML file with tool configuration.
var CfgFile string

// EnvPrefix is prepended to environment overrides, e.g.
// GO_UPDATER_STORAGE_FOLDER.
const EnvPrefix = "GO_UPDATER"

// InitConfig prepares viper with defaults, environment overrides and, when
// CfgFile is set, the named configuration file.
func InitConfig() error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if CfgFile == "" {
		return nil
	}
	viper.SetConfigFile(CfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return oops.Wrapf(err, "read config file %s", CfgFile)
	}
	log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	return nil
}

func setDefaults() {
	viper.SetDefault("storage.base_dir", "")
	viper.SetDefault("storage.folder", storage.DefaultFolder)
	viper.SetDefault("storage.filename", storage.DefaultFilename)
	viper.SetDefault("storage.refresh", false)
	viper.SetDefault("work_dir", "")
}

// StorageOptionsFromViper builds registry options from current viper settings.
// An empty base dir falls back to the working directory.
func StorageOptionsFromViper() storage.Options {
	base := viper.GetString("storage.base_dir")
	if base == "" {
		base = viper.GetString("work_dir")
	}
	return storage.Options{
		BaseDir:  base,
		Folder:   viper.GetString("storage.folder"),
		Filename: viper.GetString("storage.filename"),
		Refresh:  viper.GetBool("storage.refresh"),
	}
}

// OptionsFromViper returns repository-mode settings options over shared.
func OptionsFromViper(shared *storage.Shared) Options {
	return Options{
		Load:    true,
		Shared:  shared,
		WorkDir: viper.GetString("work_dir"),
	}
}
