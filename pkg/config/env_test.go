package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProductionLike(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{EnvProduction, true},
		{EnvStaging, true},
		{"Production", true},
		{" staging ", true},
		{EnvDevelopment, false},
		{"test", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProductionLike(tt.environment))
		})
	}
}
