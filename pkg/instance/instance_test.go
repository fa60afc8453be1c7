package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersExplicitID(t *testing.T) {
	t.Setenv("QUARTERMASTER_INSTANCE_ID", "api-2")
	t.Setenv("DYNO", "web.1")

	assert.Equal(t, "api-2", GetID())
}

func TestGetIDFallsBackToPlatform(t *testing.T) {
	t.Setenv("QUARTERMASTER_INSTANCE_ID", "")
	t.Setenv("DYNO", "worker.3")

	assert.Equal(t, "worker.3", GetID())
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("QUARTERMASTER_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")

	assert.NotEmpty(t, GetID())
}
