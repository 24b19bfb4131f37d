package model

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"

	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version  int       `json:"version" yaml:"version"` // fixed 0 for now
	Probe    Probe     `json:"probe" yaml:"probe"`
	Telegram *Telegram `json:"telegram,omitempty" yaml:"telegram,omitempty"`
	Webhook  *Webhook  `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	HTTP     *HTTP     `json:"http,omitempty" yaml:"http,omitempty"`
	Service  Service   `json:"service" yaml:"service"`
}

// Probe is the external command run once per cycle.
type Probe struct {
	Command  string            `json:"command" yaml:"command"` // split with shell quoting rules
	Env      map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Interval string            `json:"interval" yaml:"interval"`                   // ISO 8601 (PT6M) or Go (6m)
	Timeout  *string           `json:"timeout,omitempty" yaml:"timeout,omitempty"` // nil => no timeout
}

// Telegram bot settings. Token may be left empty and provided via environment.
type Telegram struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Token        string  `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL      string  `json:"base_url" yaml:"base_url"`
	Chat         *int64  `json:"chat,omitempty" yaml:"chat,omitempty"` // default recipient
	AllowedChats []int64 `json:"allowed_chats,omitempty" yaml:"allowed_chats,omitempty"`
}

type Webhook struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
}

type HTTP struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

type Service struct {
	Mode     string         `json:"mode" yaml:"mode"` // "manual" | "timer"
	Verbose  bool           `json:"verbose" yaml:"verbose"`
	Log      string         `json:"log" yaml:"log"` // "stderr"|"stdout"|"discard"|path
	Schedule *TimerSchedule `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// TimerSchedule triggers a start in timer mode. Exactly one field is set.
type TimerSchedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	return out, nil
}

// DefaultConfig returns the configuration with all schema defaults applied.
func DefaultConfig() Config {
	cfg, err := LoadConfig(strings.NewReader("version: 0\n"))
	if err != nil {
		panic(fmt.Sprintf("default config does not match schema: %v", err))
	}
	return cfg
}

// Validate checks the constraints CUE cannot express on its own, like
// duration syntax or secrets coming from the environment.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseInterval(c.Probe.Interval); err != nil {
		errs = append(errs, fmt.Errorf("probe.interval: %w", err))
	}
	if c.Probe.Timeout != nil {
		if _, err := ParseInterval(*c.Probe.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("probe.timeout: %w", err))
		}
	}
	if c.Telegram != nil && c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token: missing, set it in config or DFSWATCH_TELEGRAM_TOKEN"))
	}
	if c.Service.Mode == ServiceModeTimer {
		switch {
		case c.Service.Schedule == nil:
			errs = append(errs, errors.New("service.schedule: required in timer mode"))
		case (c.Service.Schedule.Cron == "") == (c.Service.Schedule.Duration == ""):
			errs = append(errs, errors.New("service.schedule: exactly one of cron or duration must be set"))
		}
		if c.Telegram != nil && c.Telegram.Enabled && c.Telegram.Chat == nil {
			errs = append(errs, errors.New("telegram.chat: required in timer mode"))
		}
	}
	return errors.Join(errs...)
}

// TimeoutDuration returns the parsed probe timeout, zero if unset.
func (p Probe) TimeoutDuration() time.Duration {
	if p.Timeout == nil {
		return 0
	}
	d, err := ParseInterval(*p.Timeout)
	if err != nil {
		return 0
	}
	return d
}
