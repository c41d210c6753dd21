// Package util contains the setup shared by the rsim commands
package util

import (
	"context"
	"fmt"
	"io"
	"time"

	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/config"
	"github.com/mpapenbr/racesim/pkg/loader"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/session"
	"github.com/mpapenbr/racesim/pkg/track"
)

// Inputs are the loaded files a session is built from
type Inputs struct {
	Track  *loader.TrackDefinition
	Roster *model.Roster
	Tuning *model.Tuning
}

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the process logger from the log flags and installs it
// as default
func SetupLogger(w io.Writer) (*log.Logger, error) {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			w,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			w,
			ParseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	if config.LogFilter != "" {
		var err error
		if logger, err = logger.WithFilter(config.LogFilter); err != nil {
			return nil, fmt.Errorf("invalid log filter: %w", err)
		}
	}
	log.ResetDefault(logger)
	return logger, nil
}

// SetupTelemetry starts telemetry if enabled. The result is nil otherwise.
func SetupTelemetry(ctx context.Context) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry", log.String("endpoint", config.TelemetryEndpoint))
	telemetry, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry
}

// LoadInputs reads tuning, track and roster. withRoster=false skips the roster.
func LoadInputs(withRoster bool) (*Inputs, error) {
	tuning, err := config.LoadTuning(config.TuningFile)
	if err != nil {
		return nil, err
	}
	if config.TrackFile == "" {
		return nil, fmt.Errorf("no track file given")
	}
	def, err := loader.LoadTrack(config.TrackFile,
		track.WithTuning(tuning),
		track.WithLogger(log.Default().Named("track")))
	if err != nil {
		return nil, err
	}
	ret := &Inputs{Track: def, Tuning: tuning}
	if !withRoster {
		return ret, nil
	}
	if config.RosterFile == "" {
		return nil, fmt.Errorf("no roster file given")
	}
	if ret.Roster, err = loader.LoadRoster(config.RosterFile); err != nil {
		return nil, err
	}
	return ret, nil
}

// SessionOptions converts the common flags into session options
func SessionOptions() []session.Option {
	ret := []session.Option{
		session.WithSpeed(config.Speed),
		session.WithLogger(log.Default().Named("session")),
	}
	if config.Seed != 0 {
		ret = append(ret, session.WithSeed(config.Seed))
	}
	return ret
}

// Sync flushes the default logger. Errors on terminals are ignored.
func Sync() {
	//nolint:errcheck // stderr sync fails on some terminals
	log.Sync()
}
