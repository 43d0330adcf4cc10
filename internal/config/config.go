package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

type Anchor string

const (
	AnchorNow Anchor = "now"
	AnchorDue Anchor = "due"
)

type CleanupPolicy string

const (
	CleanupDelete  CleanupPolicy = "delete"
	CleanupArchive CleanupPolicy = "archive"
)

// TimeOfDay is a local wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid minute", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

type TrelloConfig struct {
	Key       string
	Token     string
	BoardID   string
	ListID    string
	Workers   int
	RateLimit float64
}

type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
}

type MetricsConfig struct {
	Enable  bool
	CSVPath string
}

type CalendarConfig struct {
	Enable         bool
	CalendarID     string
	ServiceAccount []byte
}

// Config is the validated, read-only snapshot a pass runs against.
type Config struct {
	Timezone      string
	Location      *time.Location
	ListName      string
	TimerLabel    string
	Cadences      map[string]models.Cadence
	TimerHour     TimeOfDay
	Anchor        Anchor
	CloneSuffix   string
	CleanupPolicy CleanupPolicy
	Metrics       MetricsConfig
	Trello        TrelloConfig
	Retry         RetryConfig
	DatabasePath  string
	ServerPort    string
	Interval      time.Duration
	Calendar      CalendarConfig
	Verbose       bool
}

// Cadence looks up a cadence by (case-insensitive) label name.
func (c Config) Cadence(label string) (models.Cadence, bool) {
	cad, ok := c.Cadences[strings.ToLower(label)]
	return cad, ok
}

type cadenceEntry struct {
	Days     int    `mapstructure:"days"`
	Category string `mapstructure:"category"`
}

// Load reads the YAML file at path, overlays the environment and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Key: path, Msg: "unable to read config file", Err: err}
	}
	if err := checkCadenceKeys(data); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, &ConfigError{Key: path, Msg: "unable to parse config file", Err: err}
	}
	return FromViper(v)
}

// checkCadenceKeys rejects cadence names that differ only in case or
// surrounding space. Viper lower-cases map keys and would merge them.
func checkCadenceKeys(data []byte) error {
	var doc struct {
		Cadences yaml.Node `yaml:"cadences"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ConfigError{Key: "cadences", Msg: "malformed cadence table", Err: err}
	}
	if doc.Cadences.Kind != yaml.MappingNode {
		return nil
	}

	seen := make(map[string]string)
	for i := 0; i+1 < len(doc.Cadences.Content); i += 2 {
		name := doc.Cadences.Content[i].Value
		key := strings.ToLower(strings.TrimSpace(name))
		if prev, dup := seen[key]; dup {
			return &ConfigError{Key: "cadences." + name, Msg: fmt.Sprintf("duplicate cadence label, already defined as %q", prev)}
		}
		seen[key] = name
	}
	return nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	bindEnv(v)

	cfg := Config{
		Timezone:      v.GetString("timezone"),
		ListName:      v.GetString("list_name"),
		TimerLabel:    strings.ToLower(strings.TrimSpace(v.GetString("labels.timer"))),
		Anchor:        Anchor(strings.ToLower(v.GetString("defaults.anchor"))),
		CloneSuffix:   v.GetString("defaults.daily_spawn_suffix"),
		CleanupPolicy: CleanupPolicy(strings.ToLower(v.GetString("cleanup.policy"))),
		Metrics: MetricsConfig{
			Enable:  v.GetBool("metrics.enable"),
			CSVPath: v.GetString("metrics.csv_path"),
		},
		Trello: TrelloConfig{
			Key:       v.GetString("trello.key"),
			Token:     v.GetString("trello.token"),
			BoardID:   v.GetString("trello.board_id"),
			ListID:    v.GetString("trello.list_id"),
			Workers:   v.GetInt("trello.workers"),
			RateLimit: v.GetFloat64("trello.rate_limit"),
		},
		Retry: RetryConfig{
			Attempts: v.GetUint("retry.attempts"),
			Delay:    v.GetDuration("retry.delay"),
		},
		DatabasePath: v.GetString("database.path"),
		ServerPort:   v.GetString("server.port"),
		Interval:     v.GetDuration("schedule.interval"),
		Calendar: CalendarConfig{
			Enable:     v.GetBool("calendar.enable"),
			CalendarID: v.GetString("calendar.calendar_id"),
		},
		Verbose: v.GetBool("verbose"),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, &ConfigError{Key: "timezone", Msg: fmt.Sprintf("unknown timezone %q", cfg.Timezone), Err: err}
	}
	cfg.Location = loc

	if cfg.TimerHour, err = ParseTimeOfDay(v.GetString("defaults.timer_hour")); err != nil {
		return Config{}, &ConfigError{Key: "defaults.timer_hour", Msg: "malformed time of day", Err: err}
	}
	if cfg.TimerLabel == "" {
		return Config{}, &ConfigError{Key: "labels.timer", Msg: "timer label is required"}
	}
	if cfg.Cadences, err = parseCadences(v); err != nil {
		return Config{}, err
	}
	if _, clash := cfg.Cadences[cfg.TimerLabel]; clash {
		return Config{}, &ConfigError{Key: "cadences", Msg: fmt.Sprintf("cadence %q collides with the timer label", cfg.TimerLabel)}
	}

	switch cfg.Anchor {
	case AnchorNow, AnchorDue:
	default:
		return Config{}, &ConfigError{Key: "defaults.anchor", Msg: fmt.Sprintf("unknown anchor %q", cfg.Anchor)}
	}
	switch cfg.CleanupPolicy {
	case CleanupDelete, CleanupArchive:
	default:
		return Config{}, &ConfigError{Key: "cleanup.policy", Msg: fmt.Sprintf("unknown policy %q", cfg.CleanupPolicy)}
	}
	if cfg.Metrics.Enable && cfg.Metrics.CSVPath == "" {
		return Config{}, &ConfigError{Key: "metrics.csv_path", Msg: "required when metrics are enabled"}
	}
	if cfg.Trello.Workers < 1 {
		cfg.Trello.Workers = 1
	}
	if cfg.Retry.Attempts < 1 {
		cfg.Retry.Attempts = 1
	}
	if cfg.Interval <= 0 {
		return Config{}, &ConfigError{Key: "schedule.interval", Msg: "must be positive"}
	}

	if cfg.Calendar.Enable {
		if cfg.Calendar.CalendarID == "" {
			return Config{}, &ConfigError{Key: "calendar.calendar_id", Msg: "required when the calendar mirror is enabled"}
		}
		settings := v.Get("google.service_account")
		if settings == nil {
			return Config{}, &ConfigError{Key: "google.service_account", Msg: "required when the calendar mirror is enabled"}
		}
		if cfg.Calendar.ServiceAccount, err = json.Marshal(settings); err != nil {
			return Config{}, &ConfigError{Key: "google.service_account", Msg: "unable to marshal service account settings", Err: err}
		}
	}

	if cfg.Trello.Key == "" {
		return Config{}, &CredentialError{Var: "TRELLO_KEY"}
	}
	if cfg.Trello.Token == "" {
		return Config{}, &CredentialError{Var: "TRELLO_TOKEN"}
	}
	if cfg.Trello.BoardID == "" && cfg.Trello.ListID == "" {
		return Config{}, &ConfigError{Key: "TRELLO_BOARD_ID", Msg: "provide TRELLO_LIST_ID or TRELLO_BOARD_ID"}
	}

	return cfg, nil
}

func parseCadences(v *viper.Viper) (map[string]models.Cadence, error) {
	var raw map[string]cadenceEntry
	if err := v.UnmarshalKey("cadences", &raw); err != nil {
		return nil, &ConfigError{Key: "cadences", Msg: "malformed cadence table", Err: err}
	}
	if len(raw) == 0 {
		return nil, &ConfigError{Key: "cadences", Msg: "cadence table is empty"}
	}

	cadences := make(map[string]models.Cadence, len(raw))
	for name, entry := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, &ConfigError{Key: "cadences", Msg: "cadence with an empty name"}
		}
		if _, dup := cadences[key]; dup {
			return nil, &ConfigError{Key: "cadences." + name, Msg: "duplicate cadence label"}
		}
		if entry.Days <= 0 {
			return nil, &ConfigError{Key: "cadences." + name + ".days", Msg: fmt.Sprintf("days must be a positive integer, got %d", entry.Days)}
		}
		category := entry.Category
		if category == "" {
			category = "uncategorized"
		}
		cadences[key] = models.Cadence{Name: key, Days: entry.Days, Category: category}
	}
	return cadences, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Europe/Bucharest")
	v.SetDefault("list_name", "Daily Log")
	v.SetDefault("defaults.timer_hour", "03:00")
	v.SetDefault("defaults.anchor", string(AnchorNow))
	v.SetDefault("defaults.daily_spawn_suffix", " – 1h")
	v.SetDefault("cleanup.policy", string(CleanupDelete))
	v.SetDefault("metrics.enable", false)
	v.SetDefault("metrics.csv_path", "metrics/blocks.csv")
	v.SetDefault("database.path", "timers.db")
	v.SetDefault("server.port", "8080")
	v.SetDefault("schedule.interval", "15m")
	v.SetDefault("trello.workers", 4)
	v.SetDefault("trello.rate_limit", 8.0)
	v.SetDefault("retry.attempts", 4)
	v.SetDefault("retry.delay", "500ms")
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("trello.key", "TRELLO_KEY")
	_ = v.BindEnv("trello.token", "TRELLO_TOKEN")
	_ = v.BindEnv("trello.board_id", "TRELLO_BOARD_ID")
	_ = v.BindEnv("trello.list_id", "TRELLO_LIST_ID")
	_ = v.BindEnv("verbose", "VERBOSE")
}
