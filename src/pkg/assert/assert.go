package assert

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Assert panics with the caller's location when condition is false.
// The optional args are a printf format followed by its operands.
func Assert(condition bool, args ...any) {
	if condition {
		return
	}

	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "unknown"
		line = 0
	}
	filename := filepath.Base(file)

	if len(args) == 0 {
		panic(fmt.Sprintf("assertion failed at %s:%d", filename, line))
	}

	format, ok := args[0].(string)
	if !ok {
		format = fmt.Sprint(args[0])
	}
	panic(fmt.Sprintf(
		"assertion failed: %s at %s:%d",
		fmt.Sprintf(format, args[1:]...),
		filename,
		line,
	))
}
