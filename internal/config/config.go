package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Configuration is the full runtime configuration tree. Defaults come from
// struct tags; a YAML file and INVENTORYD_* environment variables override
// them. The storage core never reads the environment itself: it receives
// the Embedded/Server sections as opaque parameter bundles.
type Configuration struct {
	Service   Service `mapstructure:"service"`
	Storage   Storage `mapstructure:"storage"`
	Probe     Probe   `mapstructure:"probe"`
	LogLevel  string  `default:"info" mapstructure:"log_level"`
	LogFormat string  `default:"console" mapstructure:"log_format"`
}

const (
	ModeDev  = "dev"
	ModeProd = "prod"

	BackendEmbedded = "embedded"
	BackendServer   = "server"
)

type Service struct {
	Mode       string `default:"dev" mapstructure:"mode"`
	HTTPPort   int    `default:"8080" mapstructure:"http_port"`
	NumWorkers int    `default:"3" mapstructure:"num_workers"`
}

// Storage selects and parameterizes the backend. Backend is "embedded" or
// "server".
type Storage struct {
	Backend  string   `default:"embedded" mapstructure:"backend"`
	Embedded Embedded `mapstructure:"embedded"`
	Server   Server   `mapstructure:"server"`
}

type Embedded struct {
	Path string `default:"inventory.db" mapstructure:"path"`
}

type Server struct {
	Host     string `default:"localhost" mapstructure:"host"`
	Port     int    `default:"5432" mapstructure:"port"`
	Database string `default:"inventory" mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `default:"disable" mapstructure:"ssl_mode"`
	MaxConns int32  `default:"4" mapstructure:"max_conns"`
	MinConns int32  `default:"1" mapstructure:"min_conns"`
}

// Probe configures the SSH discovery prober.
type Probe struct {
	Username       string        `default:"root" mapstructure:"username"`
	Port           int           `default:"22" mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Timeout        time.Duration `default:"10s" mapstructure:"timeout"`
	Targets        []Target      `mapstructure:"targets"`
}

type Target struct {
	Hostname string `mapstructure:"hostname"`
	Address  string `mapstructure:"address"`
}

// Load builds the configuration from defaults, then the optional YAML file
// at path, then the environment.
func Load(path string) (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INVENTORYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only consults the environment for keys it already knows, so
	// the defaulted struct is registered as viper defaults first. Without
	// this, INVENTORYD_* variables for keys absent from the config file
	// would be silently ignored.
	var defaultMap map[string]any
	if err := mapstructure.Decode(cfg, &defaultMap); err != nil {
		return nil, fmt.Errorf("register config defaults: %w", err)
	}
	for key, value := range defaultMap {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}
