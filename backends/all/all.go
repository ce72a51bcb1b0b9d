// Package all registers every bundled backend with backend.DefaultRegistry.
//
// Registration order is the auto-detection order: launchers that export the
// deadline are preferred over querying the scheduler, then systemd.
package all

import (
	"yogrt/backends/command"
	"yogrt/backends/env"
	"yogrt/backends/file"
	"yogrt/backends/goplugin"
	"yogrt/backends/none"
	"yogrt/backends/redis"
	"yogrt/backends/sqlite"
	"yogrt/backends/systemd"
	"yogrt/pkg/backend"
)

func init() {
	backend.Register(
		env.Factory(),
		command.Factory(),
		systemd.Factory(),
		file.Factory(),
		sqlite.Factory(),
		redis.Factory(),
		goplugin.Factory(),
		none.Factory(),
	)
}
