// Package config loads ambient CLI defaults from a TOML file: memory
// budget, block size, threshold, gzip, and thread count. Of the four
// hclust tools, only distmatrix loads it.
// Uses viper.SetConfigFile / AddConfigPath / SetDefault with go-homedir
// for the default location.
package config

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/hdistill/hclust/pkg/elog"
)

// FileName is the default config file name, resolved under the user's home
// directory unless overridden with --config. Format is TOML.
const FileName = ".hclust.toml"

// Defaults holds every value a tool may source from the config file. A
// zero-valued field means "not set in the file". distmatrix applies
// MemoryGiB and Zip when their flags are not set, and BlockSize and
// Threads when their flags are zero; no tool applies Threshold,
// FilterRadius or Depth.
type Defaults struct {
	MemoryGiB    float64 `mapstructure:"memory_gib"`
	BlockSize    int     `mapstructure:"block_size"`
	Threshold    float64 `mapstructure:"threshold"`
	Zip          bool    `mapstructure:"zip"`
	Threads      int     `mapstructure:"threads"`
	FilterRadius int     `mapstructure:"filter_radius"`
	Depth        int     `mapstructure:"depth"`
}

// Load reads defaults from path, or from the home-directory default file
// if path is empty. A missing or malformed file is not fatal: it just
// yields zero Defaults and lets CLI flags and built-in constants take
// over.
func Load(path string, log elog.Logger) Defaults {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Debugf("could not resolve home directory: %v", err)
			return Defaults{}
		}
		v.AddConfigPath(home)
		v.SetConfigName(filepath.Base(FileName))
	}

	if err := v.ReadInConfig(); err != nil {
		log.Debugf("using built-in defaults: %v", err)
		return Defaults{}
	}
	log.Debugf("using config file: %s", v.ConfigFileUsed())

	var d Defaults
	if err := v.Unmarshal(&d); err != nil {
		log.Warnf("ignoring malformed config file %s: %v", v.ConfigFileUsed(), err)
		return Defaults{}
	}
	return d
}
