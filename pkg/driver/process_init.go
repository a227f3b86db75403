package driver

import (
	"os"
	"runtime"
)

// processModule describes the host process the way Node's process global
// does, as importable constants.
func processModule(argv []string) func(m *ModuleBuilder) {
	return func(m *ModuleBuilder) {
		m.Const("argv", append([]string{}, argv...)).
			Const("platform", runtime.GOOS).
			Const("arch", runtime.GOARCH).
			Const("version", Version).
			Const("pid", os.Getpid()).
			Const("cwd", workingDir())
	}
}
