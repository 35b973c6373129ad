package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. PRINTBRIDGE_LISTEN_ADDR.
const EnvPrefix = "PRINTBRIDGE"

// ConfigPathEnv names the variable consulted when no -config flag is given.
const ConfigPathEnv = EnvPrefix + "_CONFIG"

// Load builds the environment for env, then applies the optional YAML file at
// path and PRINTBRIDGE_* variables, in that order of increasing priority.
func Load(env, path string) (Environment, error) {
	base := GetEnvironment(env)

	v := viper.New()
	setDefaults(v, base)

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Environment{}, fmt.Errorf("error reading config file: %w", err)
		}
		logging.Info("Config file loaded", "path", path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Environment{
		Name:               base.Name,
		ServiceName:        base.ServiceName,
		ListenAddr:         v.GetString("listen_addr"),
		ReadTimeout:        v.GetDuration("read_timeout"),
		WriteTimeout:       v.GetDuration("write_timeout"),
		IdleTimeout:        v.GetDuration("idle_timeout"),
		QueueCapacity:      v.GetInt("queue_capacity"),
		Workers:            v.GetInt("workers"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		Verbose:            v.GetBool("log.verbose"),
		LogLevel:           v.GetString("log.level"),
		LogMaxSizeMB:       v.GetInt("log.max_size_mb"),
		LogMaxBackups:      v.GetInt("log.max_backups"),
		LogMaxAgeDays:      v.GetInt("log.max_age_days"),
		DefaultPrinter:     v.GetString("print.default_printer"),
		FetchTimeout:       v.GetDuration("print.fetch_timeout"),
		ChannelTimeout:     v.GetDuration("print.channel_timeout"),
		CommandTimeout:     v.GetDuration("print.command_timeout"),
		OpenGrace:          v.GetDuration("print.open_grace"),
		MinDocumentBytes:   v.GetInt("print.min_document_bytes"),
		MaxDocumentBytes:   v.GetInt64("print.max_document_bytes"),
		UserAgent:          v.GetString("print.user_agent"),
		TempDir:            v.GetString("print.temp_dir"),
		SumatraPath:        v.GetString("print.sumatra_path"),
		RequestingUser:     v.GetString("print.requesting_user"),
		ProbeEndpoints:     v.GetBool("print.probe_endpoints"),
		ChannelOrder:       splitList(v.GetStringSlice("print.channel_order")),
		AllowedOrigins:     splitList(v.GetStringSlice("allowed_origins")),
	}

	if err := v.UnmarshalKey("print.endpoints", &cfg.Endpoints); err != nil {
		return Environment{}, fmt.Errorf("error unmarshaling print.endpoints: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Environment{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, e Environment) {
	v.SetDefault("listen_addr", e.ListenAddr)
	v.SetDefault("read_timeout", e.ReadTimeout)
	v.SetDefault("write_timeout", e.WriteTimeout)
	v.SetDefault("idle_timeout", e.IdleTimeout)
	v.SetDefault("queue_capacity", e.QueueCapacity)
	v.SetDefault("workers", e.Workers)
	v.SetDefault("rate_limit_per_minute", e.RateLimitPerMinute)
	v.SetDefault("allowed_origins", e.AllowedOrigins)

	v.SetDefault("log.verbose", e.Verbose)
	v.SetDefault("log.level", e.LogLevel)
	v.SetDefault("log.max_size_mb", e.LogMaxSizeMB)
	v.SetDefault("log.max_backups", e.LogMaxBackups)
	v.SetDefault("log.max_age_days", e.LogMaxAgeDays)

	v.SetDefault("print.default_printer", e.DefaultPrinter)
	v.SetDefault("print.fetch_timeout", e.FetchTimeout)
	v.SetDefault("print.channel_timeout", e.ChannelTimeout)
	v.SetDefault("print.command_timeout", e.CommandTimeout)
	v.SetDefault("print.open_grace", e.OpenGrace)
	v.SetDefault("print.min_document_bytes", e.MinDocumentBytes)
	v.SetDefault("print.max_document_bytes", e.MaxDocumentBytes)
	v.SetDefault("print.user_agent", e.UserAgent)
	v.SetDefault("print.temp_dir", e.TempDir)
	v.SetDefault("print.sumatra_path", e.SumatraPath)
	v.SetDefault("print.requesting_user", e.RequestingUser)
	v.SetDefault("print.probe_endpoints", e.ProbeEndpoints)
	v.SetDefault("print.channel_order", e.ChannelOrder)
	v.SetDefault("print.endpoints", []PrinterEndpoint{})
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate checks ranges and cross-field constraints.
func (e *Environment) Validate() error {
	var errs []error

	if e.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if e.QueueCapacity <= 0 {
		errs = append(errs, errors.New("queue_capacity must be positive"))
	}
	if e.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if e.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute must not be negative"))
	}
	if e.FetchTimeout <= 0 || e.ChannelTimeout <= 0 || e.CommandTimeout <= 0 {
		errs = append(errs, errors.New("print timeouts must be positive"))
	}
	if budget := e.DispatchBudget(); e.WriteTimeout < budget+WriteMargin {
		errs = append(errs, fmt.Errorf("write_timeout (%s) must be at least the dispatch budget (%s) plus %s",
			e.WriteTimeout, budget, WriteMargin))
	}
	if e.OpenGrace < 0 {
		errs = append(errs, errors.New("print.open_grace must not be negative"))
	}
	if e.MinDocumentBytes < 0 {
		errs = append(errs, errors.New("print.min_document_bytes must not be negative"))
	}
	if e.MaxDocumentBytes <= int64(e.MinDocumentBytes) {
		errs = append(errs, fmt.Errorf("print.max_document_bytes (%d) must exceed print.min_document_bytes (%d)",
			e.MaxDocumentBytes, e.MinDocumentBytes))
	}
	if _, err := logging.ParseLevel(e.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(e.ChannelOrder) == 0 {
		errs = append(errs, errors.New("print.channel_order must name at least one channel"))
	}
	for _, name := range e.ChannelOrder {
		if !dispatch.ValidChannelName(name) {
			errs = append(errs, fmt.Errorf("print.channel_order: unknown channel %q", name))
		}
	}

	seen := make(map[string]bool, len(e.Endpoints))
	for i, pe := range e.Endpoints {
		if strings.TrimSpace(pe.Printer) == "" {
			errs = append(errs, fmt.Errorf("print.endpoints[%d]: printer is required", i))
			continue
		}
		key := strings.ToLower(pe.Printer)
		if seen[key] {
			errs = append(errs, fmt.Errorf("print.endpoints[%d]: duplicate printer %q", i, pe.Printer))
		}
		seen[key] = true
		if err := e.EndpointFor(pe.Printer).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("print.endpoints[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
