// Package config loads server and client settings with viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dkeye/pttstar/internal/domain"
)

const EnvPrefix = "PTT"

type ServerConfig struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	JoinToken      string        `mapstructure:"join_token"`
	JoinRateLimit  int           `mapstructure:"join_rate_limit"`
	JoinRateWindow time.Duration `mapstructure:"join_rate_window"`
	RoomCapacity   int           `mapstructure:"room_capacity"`
	RoomTTL        time.Duration `mapstructure:"room_ttl"`
	DirectorySize  int           `mapstructure:"directory_size"`
}

type ClientConfig struct {
	LogLevel     string        `mapstructure:"log_level"`
	StoreURL     string        `mapstructure:"store_url"`
	DirectoryURL string        `mapstructure:"directory_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	ICEServers   []string      `mapstructure:"ice_servers"`
	CaptureFile  string        `mapstructure:"capture_file"`
	RecordDir    string        `mapstructure:"record_dir"`

	Profile    domain.Profile       `mapstructure:"profile"`
	Connection domain.RawConnection `mapstructure:"connection"`
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("join_token", "")
	v.SetDefault("join_rate_limit", 10)
	v.SetDefault("join_rate_window", "1m")
	v.SetDefault("room_capacity", 512)
	v.SetDefault("room_ttl", "1h")
	v.SetDefault("directory_size", 200)
}

func clientDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("store_url", "http://localhost:8080")
	v.SetDefault("directory_url", "")
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("http_timeout", "5s")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})
	v.SetDefault("capture_file", "")
	v.SetDefault("record_dir", "./recordings")
	v.SetDefault("profile.callsign", "")
	v.SetDefault("connection.kind", "")
}

// LoadServer reads the server settings. fs may be nil.
func LoadServer(fs *pflag.FlagSet) (*ServerConfig, error) {
	v, err := load(fs, serverDefaults)
	if err != nil {
		return nil, err
	}
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Msg("server config loaded")
	return &cfg, nil
}

// LoadClient reads the client settings. fs may be nil.
func LoadClient(fs *pflag.FlagSet) (*ClientConfig, error) {
	v, err := load(fs, clientDefaults)
	if err != nil {
		return nil, err
	}
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Profile.Callsign != "" {
		if err := cfg.Profile.SetCallsign(cfg.Profile.Callsign); err != nil {
			return nil, fmt.Errorf("profile: %w", err)
		}
	}
	log.Info().
		Str("module", "config").
		Str("store", cfg.StoreURL).
		Str("connection", cfg.Connection.Kind).
		Msg("client config loaded")
	return &cfg, nil
}

// FileName is the config file used when no --config flag is given.
func FileName() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("config/config.%s.yaml", env)
}

func load(fs *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	fileName := FileName()
	explicit := false
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			fileName = f.Value.String()
			explicit = f.Changed
		}
	}
	v.SetConfigFile(fileName)
	if err := v.ReadInConfig(); err != nil {
		if explicit {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}
	return v, nil
}

// SetupLogger installs the console writer and the configured level on the
// global zerolog logger.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
