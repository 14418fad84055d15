package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Configuration holds process-wide settings. Values come from an optional
// config file and NEONSTACK_* environment variables, env taking precedence.
type Configuration struct {
	// ApiURL is the base URL of the NEON data API
	ApiURL string `mapstructure:"api_url"`
	// Token is the user-specific API token; empty uses the public rate limit
	Token string `mapstructure:"token"`
	// DataDir is the default location of downloaded package files
	DataDir string `mapstructure:"data_dir"`
	// Parallelism caps concurrent table assemblies; 0 means GOMAXPROCS
	Parallelism int `mapstructure:"parallelism"`
	// Port for the HTTP bundle server
	Port int `mapstructure:"port"`
	// FlightPort for the Arrow Flight bundle server
	FlightPort int `mapstructure:"flight_port"`
}

var Config Configuration

// InitConfig loads configuration from the given file path (optional) and
// the environment.
func InitConfig(path string) error {
	v := viper.New()
	v.SetDefault("api_url", "https://data.neonscience.org/api/v0")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("parallelism", 0)
	v.SetDefault("port", 8080)
	v.SetDefault("flight_port", 8082)

	v.SetEnvPrefix("neonstack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(&Config)
}
