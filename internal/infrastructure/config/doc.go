// Package config loads and validates Lumina Core configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. Built-in defaults (suitable for local development)
//  2. A YAML file (configs/config.yaml by default)
//  3. Environment variables of the form LUMINA_SECTION_KEY
//
// Credentials (MQTT username/password) should be supplied via environment
// variables rather than committed to the YAML file.
package config
