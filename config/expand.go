package config

import (
	"os"
	"regexp"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnvWithDefaults expands ${VAR} and ${VAR:-default} references.
// An unset or empty variable falls back to the default, or to "" when no
// default is given.
func ExpandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if groups[2] != "" {
			return groups[3]
		}
		return ""
	})
}
