package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mpapenbr/racesim/pkg/model"
)

// LoadTuning returns the default tuning overlaid with the values of file.
// An empty file name returns the defaults. The result is validated.
func LoadTuning(file string) (*model.Tuning, error) {
	ret := model.DefaultTuning()
	if file != "" {
		v := viper.New()
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading tuning: %w", err)
		}
		// a compound table replaces the default one instead of being merged into it
		if v.IsSet("compounds") {
			ret.Compounds = nil
		}
		if err := v.Unmarshal(ret); err != nil {
			return nil, fmt.Errorf("decoding tuning: %w", err)
		}
	}
	if TickRate > 0 {
		ret.TickRate = TickRate
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
