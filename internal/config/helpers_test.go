package config

import (
	"testing"

	"github.com/spf13/viper"
)

func viperReset(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}
