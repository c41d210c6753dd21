package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogFilter         string  // zapfilter rules, empty means no filtering
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry ("stdout" for local output)
	TuningFile        string  // optional yaml/json file overriding the default tuning
	TrackFile         string  // path to track definition
	RosterFile        string  // path to team/driver roster
	NatsURL           string  // publish snapshots to this NATS server (empty: disabled)
	NatsSubject       string  // subject prefix for published snapshots
	WaitForServices   string  // duration to wait for the NATS server to be reachable
	Seed              uint64  // seed for the random source (0: derived from roster)
	TickRate          int     // ticks per second
	Speed             float64 // replay speed factor (0 means: as fast as possible)
	PrintEvery        int     // print leaderboard every n ticks (0: only at the end)
	PredictInterval   string  // wall clock interval between strategy predictions
	PredictWorkers    int     // number of predictor workers
	Laps              int     // race distance override (0: tuning value)
	QualifyFirst      bool    // run qualifying before the race
)
