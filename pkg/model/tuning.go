package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidTuning = errors.New("invalid tuning")
	ErrEmptyRoster   = errors.New("roster contains no drivers")
	ErrInvalidRoster = errors.New("invalid roster")
)

// CornerSpeeds caps the top speed per corner class (before attribute and
// tire scaling)
type CornerSpeeds struct {
	Straight float64 `mapstructure:"straight"`
	Fast     float64 `mapstructure:"fast"`
	Medium   float64 `mapstructure:"medium"`
	Slow     float64 `mapstructure:"slow"`
}

// Tuning holds all simulation coefficients.
// A Tuning is treated as immutable once handed to a session.
// All speeds are distance units per tick, all durations are ticks.
//
//nolint:lll // readability
type Tuning struct {
	TickRate int `mapstructure:"tickRate"` // ticks per simulated second
	Laps     int `mapstructure:"laps"`     // race distance

	// track
	DesiredMinSpeed float64 `mapstructure:"desiredMinSpeed"`
	DesiredMaxSpeed float64 `mapstructure:"desiredMaxSpeed"`
	CurvatureGain   float64 `mapstructure:"curvatureGain"`   // scales turn angles before mapping them to speed
	SmoothingPoints int     `mapstructure:"smoothingPoints"` // 0 disables smoothing
	CornerLookahead float64 `mapstructure:"cornerLookahead"`
	FastCorner      float64 `mapstructure:"fastCorner"`   // turn angle (rad) at which a corner counts as fast
	MediumCorner    float64 `mapstructure:"mediumCorner"` // turn angle (rad) at which a corner counts as medium
	SlowCorner      float64 `mapstructure:"slowCorner"`   // turn angle (rad) at which a corner counts as slow

	// car performance
	AttributeMin     float64      `mapstructure:"attributeMin"`
	AttributeMax     float64      `mapstructure:"attributeMax"`
	CarMaxSpeed      float64      `mapstructure:"carMaxSpeed"` // multiplied by engine power
	MinSpeed         float64      `mapstructure:"minSpeed"`
	BaseAcceleration float64      `mapstructure:"baseAcceleration"` // multiplied by engine power
	BrakeIntensity   float64      `mapstructure:"brakeIntensity"`   // multiplied by brake performance
	BrakeGain        float64      `mapstructure:"brakeGain"`
	WeightEffect     float64      `mapstructure:"weightEffect"` // acceleration gain on an empty tank
	CornerSpeeds     CornerSpeeds `mapstructure:"cornerSpeeds"`

	// tires
	Compounds         []Compound `mapstructure:"compounds"`
	BlowoutPercentage float64    `mapstructure:"blowoutPercentage"`
	LimpSpeed         float64    `mapstructure:"limpSpeed"`
	AmbientTemp       float64    `mapstructure:"ambientTemp"`
	BlanketTemp       float64    `mapstructure:"blanketTemp"`
	CoolingTau        float64    `mapstructure:"coolingTau"`
	HeatSpeed         float64    `mapstructure:"heatSpeed"`
	HeatCorner        float64    `mapstructure:"heatCorner"`
	HeatBraking       float64    `mapstructure:"heatBraking"`
	ThermalGripFloor  float64    `mapstructure:"thermalGripFloor"`

	// fuel
	FuelCapacity    float64 `mapstructure:"fuelCapacity"`
	FuelCoefficient float64 `mapstructure:"fuelCoefficient"`
	FuelReserve     float64 `mapstructure:"fuelReserve"`

	// pit
	PitLaneSpeed       float64 `mapstructure:"pitLaneSpeed"`
	PitStopFraction    float64 `mapstructure:"pitStopFraction"` // position of the first pit box relative to pit lane length
	PitBoxSpacing      float64 `mapstructure:"pitBoxSpacing"`
	PitStationaryTicks int     `mapstructure:"pitStationaryTicks"`
	PitTravelTicks     int     `mapstructure:"pitTravelTicks"` // used by the planner as pit lane time loss
	PitDesireTrigger   float64 `mapstructure:"pitDesireTrigger"`
	PitThresholdMargin float64 `mapstructure:"pitThresholdMargin"`
	SafetyCarPitBonus  float64 `mapstructure:"safetyCarPitBonus"`
	MandatoryStopLaps  int     `mapstructure:"mandatoryStopLaps"`
	MaxStops           int     `mapstructure:"maxStops"`
	PlannerPctBucket   float64 `mapstructure:"plannerPctBucket"`

	// incidents
	OvertakeGap        float64 `mapstructure:"overtakeGap"`
	OvertakeChance     float64 `mapstructure:"overtakeChance"`
	CrashChance        float64 `mapstructure:"crashChance"`
	MistakeChance      float64 `mapstructure:"mistakeChance"`
	MistakeSpeedLoss   float64 `mapstructure:"mistakeSpeedLoss"` // fraction of speed lost
	PassMargin         float64 `mapstructure:"passMargin"`
	PassedCooldown     int     `mapstructure:"passedCooldown"`
	SafetyCarChance    float64 `mapstructure:"safetyCarChance"` // per tick and crashed car
	CrashAnnounceTicks int     `mapstructure:"crashAnnounceTicks"`

	// slipstream
	SlipstreamRange   float64 `mapstructure:"slipstreamRange"`
	SlipstreamTicks   int     `mapstructure:"slipstreamTicks"`
	SlipstreamBonus   int     `mapstructure:"slipstreamBonus"` // extra ticks after passing the target
	SlipstreamEngine  float64 `mapstructure:"slipstreamEngine"`
	DirtyAirMinGap    float64 `mapstructure:"dirtyAirMinGap"` // dirty air applies between this and the slipstream range
	DirtyAirAero      float64 `mapstructure:"dirtyAirAero"`
	SlipstreamPenalty float64 `mapstructure:"slipstreamPenalty"` // engine factor while a passed car cools down

	// safety car
	SafetyCarSpeed    float64 `mapstructure:"safetyCarSpeed"`
	SafetyCarGap      float64 `mapstructure:"safetyCarGap"`
	SafetyCarGapGain  float64 `mapstructure:"safetyCarGapGain"`
	SafetyCarLaps     int     `mapstructure:"safetyCarLaps"`
	SafetyCarEpsilon  float64 `mapstructure:"safetyCarEpsilon"`
	SafetyCarMaxSpeed float64 `mapstructure:"safetyCarMaxSpeed"` // top speed of cars under safety car

	// session
	GridSpacing            float64 `mapstructure:"gridSpacing"`
	GridOffset             float64 `mapstructure:"gridOffset"`
	EnableWarmup           bool    `mapstructure:"enableWarmup"`
	WarmupSpeed            float64 `mapstructure:"warmupSpeed"`
	WarmupStagger          int     `mapstructure:"warmupStagger"`
	CountdownTicks         int     `mapstructure:"countdownTicks"`
	AnnouncementTicks      int     `mapstructure:"announcementTicks"`
	QualifyingMinutes      float64 `mapstructure:"qualifyingMinutes"`
	QualifyingRuns         int     `mapstructure:"qualifyingRuns"`
	QualifyingMaxExitDelay int     `mapstructure:"qualifyingMaxExitDelay"`
	LapCrossingHysteresis  int     `mapstructure:"lapCrossingHysteresis"` // ticks a line crossing is ignored after a lap
}

func DefaultTuning() *Tuning {
	return &Tuning{
		TickRate: 30,
		Laps:     20,

		DesiredMinSpeed: 0.15,
		DesiredMaxSpeed: 0.7,
		CurvatureGain:   6,
		SmoothingPoints: 0,
		CornerLookahead: 15,
		FastCorner:      0.15,
		MediumCorner:    0.4,
		SlowCorner:      0.8,

		AttributeMin:     0.8,
		AttributeMax:     1.2,
		CarMaxSpeed:      1.0,
		MinSpeed:         0.01,
		BaseAcceleration: 0.007,
		BrakeIntensity:   3.0,
		BrakeGain:        0.1,
		WeightEffect:     0.2,
		CornerSpeeds:     CornerSpeeds{Straight: 1.0, Fast: 0.65, Medium: 0.5, Slow: 0.35},

		Compounds:         DefaultCompounds(),
		BlowoutPercentage: 5,
		LimpSpeed:         0.5,
		AmbientTemp:       25,
		BlanketTemp:       70,
		CoolingTau:        300,
		HeatSpeed:         0.3,
		HeatCorner:        0.2,
		HeatBraking:       2.0,
		ThermalGripFloor:  0.6,

		FuelCapacity:    100,
		FuelCoefficient: 0.005,
		FuelReserve:     5,

		PitLaneSpeed:       0.3,
		PitStopFraction:    0.5,
		PitBoxSpacing:      3,
		PitStationaryTicks: 90,
		PitTravelTicks:     300,
		PitDesireTrigger:   0.6,
		PitThresholdMargin: 5,
		SafetyCarPitBonus:  0.25,
		MandatoryStopLaps:  3,
		MaxStops:           3,
		PlannerPctBucket:   5,

		OvertakeGap:        5,
		OvertakeChance:     0.02,
		CrashChance:        0.0005,
		MistakeChance:      0.01,
		MistakeSpeedLoss:   0.3,
		PassMargin:         1.0,
		PassedCooldown:     30,
		SafetyCarChance:    0.01,
		CrashAnnounceTicks: 90,

		SlipstreamRange:   20,
		SlipstreamTicks:   30,
		SlipstreamBonus:   30,
		SlipstreamEngine:  1.05,
		DirtyAirMinGap:    8,
		DirtyAirAero:      0.95,
		SlipstreamPenalty: 0.97,

		SafetyCarSpeed:    0.3,
		SafetyCarGap:      8,
		SafetyCarGapGain:  0.05,
		SafetyCarLaps:     2,
		SafetyCarEpsilon:  0.02,
		SafetyCarMaxSpeed: 0.45,

		GridSpacing:            8,
		GridOffset:             2,
		EnableWarmup:           false,
		WarmupSpeed:            0.4,
		WarmupStagger:          30,
		CountdownTicks:         90,
		AnnouncementTicks:      90,
		QualifyingMinutes:      5,
		QualifyingRuns:         2,
		QualifyingMaxExitDelay: 60 * 30 * 3,
		LapCrossingHysteresis:  10,
	}
}

// Validate checks the tuning for values which would break the simulation
//
//nolint:cyclop,funlen // flat list of checks
func (t *Tuning) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidTuning, fmt.Sprintf(format, args...))
	}
	positive := map[string]float64{
		"desiredMaxSpeed":   t.DesiredMaxSpeed,
		"carMaxSpeed":       t.CarMaxSpeed,
		"minSpeed":          t.MinSpeed,
		"baseAcceleration":  t.BaseAcceleration,
		"fuelCapacity":      t.FuelCapacity,
		"coolingTau":        t.CoolingTau,
		"pitLaneSpeed":      t.PitLaneSpeed,
		"safetyCarSpeed":    t.SafetyCarSpeed,
		"attributeMin":      t.AttributeMin,
		"limpSpeed":         t.LimpSpeed,
		"warmupSpeed":       t.WarmupSpeed,
		"safetyCarMaxSpeed": t.SafetyCarMaxSpeed,
	}
	for name, v := range positive {
		if err := check(v > 0 && !math.IsInf(v, 0), "%s must be positive, got %v", name, v); err != nil {
			return err
		}
	}
	nonNegative := map[string]int{
		"pitStationaryTicks":    t.PitStationaryTicks,
		"pitTravelTicks":        t.PitTravelTicks,
		"warmupStagger":         t.WarmupStagger,
		"countdownTicks":        t.CountdownTicks,
		"announcementTicks":     t.AnnouncementTicks,
		"crashAnnounceTicks":    t.CrashAnnounceTicks,
		"passedCooldown":        t.PassedCooldown,
		"slipstreamTicks":       t.SlipstreamTicks,
		"slipstreamBonus":       t.SlipstreamBonus,
		"mandatoryStopLaps":     t.MandatoryStopLaps,
		"lapCrossingHysteresis": t.LapCrossingHysteresis,
	}
	for name, v := range nonNegative {
		if err := check(v >= 0, "%s must not be negative, got %d", name, v); err != nil {
			return err
		}
	}
	probabilities := map[string]float64{
		"overtakeChance":   t.OvertakeChance,
		"crashChance":      t.CrashChance,
		"mistakeChance":    t.MistakeChance,
		"safetyCarChance":  t.SafetyCarChance,
		"mistakeSpeedLoss": t.MistakeSpeedLoss,
	}
	for name, v := range probabilities {
		if err := check(v >= 0 && v <= 1, "%s must be within [0,1], got %v", name, v); err != nil {
			return err
		}
	}
	checks := []error{
		check(t.TickRate > 0, "tickRate must be positive"),
		check(t.Laps > 0, "laps must be positive"),
		check(t.DesiredMinSpeed >= 0 && t.DesiredMinSpeed <= t.DesiredMaxSpeed,
			"desiredMinSpeed must be within [0,desiredMaxSpeed]"),
		check(t.MinSpeed < t.CarMaxSpeed*t.AttributeMin, "minSpeed must be below the slowest car max speed"),
		check(t.AttributeMin <= t.AttributeMax, "attributeMin must not exceed attributeMax"),
		check(len(t.Compounds) >= 2, "at least 2 compounds are required, got %d", len(t.Compounds)),
		check(t.FastCorner <= t.MediumCorner && t.MediumCorner <= t.SlowCorner,
			"corner angles must be ascending"),
		check(t.PitStopFraction >= 0 && t.PitStopFraction <= 1, "pitStopFraction must be within [0,1]"),
		check(t.MaxStops >= 1, "maxStops must be at least 1"),
		check(t.PlannerPctBucket > 0, "plannerPctBucket must be positive"),
		check(t.FuelReserve >= 0 && t.FuelReserve < t.FuelCapacity, "fuelReserve must be within [0,fuelCapacity)"),
		check(t.ThermalGripFloor >= 0 && t.ThermalGripFloor <= 1, "thermalGripFloor must be within [0,1]"),
		check(t.SafetyCarLaps >= 0, "safetyCarLaps must not be negative"),
		check(t.QualifyingRuns >= 1, "qualifyingRuns must be at least 1"),
		check(t.QualifyingMaxExitDelay >= 0, "qualifyingMaxExitDelay must not be negative"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	for i := range t.Compounds {
		c := &t.Compounds[i]
		if err := check(c.WearRate > 0 && c.Grip > 0 && c.TempWindow > 0,
			"compound %q needs positive wearRate, grip and tempWindow", c.Name); err != nil {
			return err
		}
		if err := check(c.Threshold > 1 && c.Threshold < 100,
			"compound %q threshold must be within (1,100)", c.Name); err != nil {
			return err
		}
	}
	return nil
}

// QualifyingTicks is the length of a qualifying session in ticks
func (t *Tuning) QualifyingTicks() int {
	return int(t.QualifyingMinutes * 60 * float64(t.TickRate))
}
