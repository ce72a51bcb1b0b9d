package all

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"yogrt/pkg/backend"
)

func TestRegistrationOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"env", "command", "systemd", "file", "sqlite", "redis", "goplugin", "none"},
		backend.DefaultRegistry.Names(),
	)
}
