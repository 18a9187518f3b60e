package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (DEVSERVE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("root", os.Getenv("DEVSERVE_ROOT"), &cfg.Root)

	if err := s.setIntFromString("port", os.Getenv("DEVSERVE_PORT"), &cfg.Port); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("DEVSERVE_WATCH"), &cfg.Watch)
	s.setBoolFromString("verbose", os.Getenv("DEVSERVE_VERBOSE"), &cfg.Verbose)

	return nil
}
