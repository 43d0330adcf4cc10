package config

import "fmt"

// ConfigError is a missing or malformed configuration value. Fatal.
type ConfigError struct {
	Key string
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Key, e.Msg, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CredentialError is a missing API credential. Fatal.
type CredentialError struct {
	Var string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing credential: %s is not set", e.Var)
}
