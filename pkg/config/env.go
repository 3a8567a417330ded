package config

import "strings"

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether environment is staging or production,
// where required configuration is enforced.
func IsProductionLike(environment string) bool {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}
