package config

import (
	"errors"
	"fmt"

	"github.com/amp-labs/flexiflow/envutil"
)

const (
	EnvBusWorkers        = "FLEXIFLOW_BUS_WORKERS"
	EnvVerifyTransitions = "FLEXIFLOW_VERIFY_TRANSITIONS"

	DefaultBusWorkers = 64
)

var ErrNonPositiveWorkers = errors.New("worker count must be positive")

// Settings are the process-wide knobs read from the environment.
type Settings struct {
	// BusWorkers caps concurrent handler deliveries.
	BusWorkers int
	// VerifyTransitions turns on the transition verifier for built components.
	VerifyTransitions bool
}

// LoadSettings reads Settings from the environment. Missing variables take
// their defaults; malformed ones are an error.
func LoadSettings() (Settings, error) {
	workers, err := envutil.Int(EnvBusWorkers,
		envutil.Default(DefaultBusWorkers),
		envutil.Validate(func(n int) error {
			if n <= 0 {
				return fmt.Errorf("%w: %d", ErrNonPositiveWorkers, n)
			}

			return nil
		}),
	).Value()
	if err != nil {
		return Settings{}, err
	}

	verify, err := envutil.Bool(EnvVerifyTransitions, envutil.Default(false)).Value()
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		BusWorkers:        workers,
		VerifyTransitions: verify,
	}, nil
}
