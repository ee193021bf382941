package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables using `env` struct tags.
// Fields tagged `required` make loading fail when the variable is unset,
// which is how the service catches a missing JWT secret at startup
// instead of at the first login.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load config from environment: %w", err)
	}
	return nil
}
