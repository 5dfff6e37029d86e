package common

import (
	"fmt"
	"runtime"

	"github.com/ternarybob/arbor"
)

// RunRecovered runs fn and converts a panic into an error.
// The panic is logged with its stack and written to a crash file under CrashLogDir;
// the process keeps running. job describes the work in the crash file.
func RunRecovered(logger arbor.ILogger, name string, job func() string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		buf := make([]byte, 16*1024)
		n := runtime.Stack(buf, false)
		stackTrace := string(buf[:n])

		desc := ""
		if job != nil {
			desc = job()
		}
		crashPath := WriteCrashFile(r, stackTrace, desc)

		if logger != nil {
			logger.Error().
				Str("task", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("crash_file", crashPath).
				Msg("Recovered from panic")
		}
		err = fmt.Errorf("%s panicked: %v", name, r)
	}()

	return fn()
}
