// Package config loads application configuration from an optional YAML file
// and APPHUB_-prefixed environment variables, with environment taking
// precedence.
package config
