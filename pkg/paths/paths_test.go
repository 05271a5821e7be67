package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)

	assert.Equal(t, dir, ConfigDir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), ConfigFile())
	assert.Equal(t, filepath.Join(dir, "data", "meshchat.debug.log"), LogFile())
}
