// Package config handles loading and validating Smooth Lights configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (declared as env struct tags)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The JWT secret and admin password must be set before production use
//
// The smooth_lights section only holds process-level defaults (which service
// to intercept, the transition pre-filled in the setup form). The active
// transition settings are a config entry stored in SQLite and edited through
// the configuration API.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.SmoothLights.DefaultTransition)
package config
