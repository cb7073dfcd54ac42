// Package config loads swapcored's runtime configuration, grounded on
// pkg/common/config's loader shape: a Viper-backed loader mapping onto
// a mapstructure-tagged struct, with environment variables overriding
// the file.
package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/openimsdk/tools/errs"
	"github.com/spf13/viper"
)

// Config holds every tunable the swap pipeline needs at startup.
type Config struct {
	RocksDBDir string `mapstructure:"rocksdb_dir"`

	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`

	AbsentCacheCapacity int `mapstructure:"absent_cache_capacity"`

	ScanSessionMaxIdle time.Duration `mapstructure:"scan_session_max_idle"`

	SlowSwapSampleRate  int           `mapstructure:"slow_swap_sample_rate"`
	SlowSwapThreshold   time.Duration `mapstructure:"slow_swap_threshold"`
	SlowLogRingSize     int           `mapstructure:"slow_log_ring_size"`
}

// Default returns the configuration swapcored starts with when no
// file is given.
func Default() Config {
	return Config{
		RocksDBDir:          "./swapcore-data",
		Workers:             6,
		BatchSize:           64,
		BatchInterval:       2 * time.Millisecond,
		AbsentCacheCapacity: 1 << 16,
		ScanSessionMaxIdle:  30 * time.Second,
		SlowSwapSampleRate:  10,
		SlowSwapThreshold:   20 * time.Millisecond,
		SlowLogRingSize:     256,
	}
}

// Load reads path (YAML, JSON, or any format Viper recognises from its
// extension) into a Config seeded with Default, letting environment
// variables under envPrefix override individual fields.
func Load(path, envPrefix string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return cfg, errs.WrapMsg(err, "failed to read config file", "path", path)
	}
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return cfg, errs.WrapMsg(err, "failed to unmarshal config", "path", path)
	}
	return cfg, nil
}
