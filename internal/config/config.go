// Package config holds typed configuration loaded through viper.
package config

import "github.com/spf13/viper"

// Config holds typed configuration for the streamfetch service.
type Config struct {
	LogLevel       string
	HTTPPort       string
	MetricsAddr    string
	DataDir        string
	YTDLPPath      string
	LookupEndpoint string
	MasterKey      string
	MaxConcurrent  int
	Cookies        map[string]string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:       v.GetString("log_level"),
		HTTPPort:       v.GetString("http_port"),
		MetricsAddr:    v.GetString("metrics_addr"),
		DataDir:        v.GetString("data_dir"),
		YTDLPPath:      v.GetString("ytdlp_path"),
		LookupEndpoint: v.GetString("lookup_endpoint"),
		MasterKey:      v.GetString("master_key"),
		MaxConcurrent:  v.GetInt("max_concurrent"),
		Cookies:        v.GetStringMapString("cookies"),
	}
}
