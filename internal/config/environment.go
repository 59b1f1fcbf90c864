package config

import (
	"fmt"
	"strings"
)

// Environment is the deployment the process runs in.
type Environment string

const (
	Prod Environment = "prod"
	Dev  Environment = "dev"
	Test Environment = "test"
)

func ParseEnvironment(s string) (Environment, error) {
	switch e := Environment(strings.ToLower(strings.TrimSpace(s))); e {
	case Prod, Dev, Test:
		return e, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// Decode lets envconfig validate BRIDGE_ENV.
func (e *Environment) Decode(value string) error {
	v, err := ParseEnvironment(value)
	if err != nil {
		return err
	}
	*e = v
	return nil
}
