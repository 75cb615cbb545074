package metrics

import "codeberg.org/mutker/eveenergy/internal/errors"

const defaultAddr = ":9464"

type Config struct {
	Enabled bool
	Addr    string
	// Device is attached as a constant label to every series.
	Device string
}

func DefaultConfig() Config {
	return Config{
		Addr:    defaultAddr,
		Enabled: false,
	}
}

func (c Config) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New().New(ErrInvalidAddr)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
