// Package config handles loading and validating Gray Logic Lux configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRAYLUX_SECTION_KEY)
//   - Validation of required fields
//   - Default value handling
//
// Engine and stabilizer durations are written in milliseconds and exposed
// through Duration getters. Stabilizer fields left at zero keep the
// built-in defaults.
//
// Security Considerations:
//   - Sensitive values (broker passwords, InfluxDB tokens) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Show.Name)
package config
