package config

import (
	"agenda/internal/caldav"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
)

const (
	ProviderGoogle = "google"
	ProviderCalDAV = "caldav"
)

// Config is the process configuration. It is loaded once at start and not modified.
type Config struct {
	LogLevel string            `toml:"log_level"`
	Server   ServerConfig      `toml:"server"`
	Calendar CalendarConfig    `toml:"calendar"`
	Google   GoogleConfig      `toml:"google"`
	CalDAV   CalDAVConfig      `toml:"caldav"`
	Metrics  MetricsConfig     `toml:"metrics"`
	Spaces   map[string]string `toml:"spaces"`
}

type ServerConfig struct {
	Port            int    `toml:"port"`
	RoutePrefix     string `toml:"route_prefix"`
	ReadTimeout     int    `toml:"read_timeout"`
	WriteTimeout    int    `toml:"write_timeout"`
	IdleTimeout     int    `toml:"idle_timeout"`
	ShutdownTimeout int    `toml:"shutdown_timeout"`
}

type CalendarConfig struct {
	Provider          string `toml:"provider"`
	TimeZone          string `toml:"time_zone"`
	ApplicationName   string `toml:"application_name"`
	SerializeBookings bool   `toml:"serialize_bookings"`
}

// GoogleConfig holds the service-account key, inline or as a file path.
type GoogleConfig struct {
	CredentialsJSON string `toml:"-"`
	CredentialsFile string `toml:"credentials_file"`
}

type CalDAVConfig struct {
	Endpoint string `toml:"endpoint"`
	Username string `toml:"username"`
	Password string `toml:"-"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

func defaults() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:            8080,
			RoutePrefix:     "/api",
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Calendar: CalendarConfig{
			Provider:        ProviderGoogle,
			TimeZone:        "America/Sao_Paulo",
			ApplicationName: "oitavaigreja",
		},
		Google: GoogleConfig{CredentialsFile: "credentials.json"},
		CalDAV: CalDAVConfig{Endpoint: caldav.DefaultEndpoint},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load reads the optional TOML file at path, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Server.RoutePrefix, "ROUTE_PREFIX")
	setString(&cfg.Calendar.Provider, "CALENDAR_PROVIDER")
	setString(&cfg.Calendar.TimeZone, "CALENDAR_TIMEZONE")
	setString(&cfg.Calendar.ApplicationName, "CALENDAR_APPLICATION_NAME")
	setString(&cfg.Google.CredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	setString(&cfg.Google.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	setString(&cfg.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	setString(&cfg.CalDAV.Username, "CALDAV_USERNAME")
	setString(&cfg.CalDAV.Password, "CALDAV_PASSWORD")
	setString(&cfg.Metrics.Path, "METRICS_PATH")

	// The serverless host hands the custom handler its port.
	for _, key := range []string{"HTTP_PORT", "FUNCTIONS_CUSTOMHANDLER_PORT"} {
		if v := os.Getenv(key); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s '%s': %w", key, v, err)
			}
			cfg.Server.Port = port
		}
	}

	for key, dst := range map[string]*bool{
		"SERIALIZE_BOOKINGS": &cfg.Calendar.SerializeBookings,
		"METRICS_ENABLED":    &cfg.Metrics.Enabled,
	} {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s '%s': %w", key, v, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("SPACES"); v != "" {
		spaces, err := ParseSpaces(v)
		if err != nil {
			return err
		}
		cfg.Spaces = spaces
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ParseSpaces parses "Name=calendarId;Other=calendarId2".
func ParseSpaces(s string) (map[string]string, error) {
	spaces := make(map[string]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, id, ok := strings.Cut(entry, "=")
		name, id = strings.TrimSpace(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid SPACES entry '%s', expected Name=calendarId", entry)
		}
		spaces[name] = id
	}
	return spaces, nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if len(c.Spaces) == 0 {
		return errors.New("no spaces configured. Set SPACES or add a [spaces] table to the config file")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Calendar.Provider {
	case ProviderGoogle:
		if c.Google.CredentialsJSON == "" && c.Google.CredentialsFile == "" {
			return errors.New("google provider needs GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE")
		}
	case ProviderCalDAV:
		if c.CalDAV.Endpoint == "" || c.CalDAV.Username == "" {
			return errors.New("caldav provider needs CALDAV_ENDPOINT and CALDAV_USERNAME")
		}
	default:
		return fmt.Errorf("unknown calendar provider '%s'", c.Calendar.Provider)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Location loads the zone reservation times are expressed in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c ServerConfig) ReadTimeoutDuration() time.Duration     { return seconds(c.ReadTimeout) }
func (c ServerConfig) WriteTimeoutDuration() time.Duration    { return seconds(c.WriteTimeout) }
func (c ServerConfig) IdleTimeoutDuration() time.Duration     { return seconds(c.IdleTimeout) }
func (c ServerConfig) ShutdownTimeoutDuration() time.Duration { return seconds(c.ShutdownTimeout) }
