package crash

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"crossban/internal/logger"
)

// RecoverWithStack recovers from a panic in the named module and logs the
// stack trace. Use as `defer crash.RecoverWithStack("handler")`.
func RecoverWithStack(moduleName string) {
	if r := recover(); r != nil {
		stack := debug.Stack()

		logger.Errorf("PANIC in %s: %v", moduleName, r)
		logger.Errorf("Stack trace:\n%s", string(stack))

		// Also write to stderr so container logs capture it even if the
		// log backend itself is broken.
		fmt.Fprintf(os.Stderr, "[PANIC] %s - %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
		fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

		logRuntimeInfo()
	}
}

// RecoverWithStackAndExit recovers from a panic, logs it and exits with a
// non-zero status so orchestration can restart the process.
func RecoverWithStackAndExit(moduleName string) {
	if r := recover(); r != nil {
		stack := debug.Stack()

		logger.Errorf("FATAL PANIC in %s: %v", moduleName, r)
		logger.Errorf("Stack trace:\n%s", string(stack))

		fmt.Fprintf(os.Stderr, "[FATAL PANIC] %s - %s: %v\n", time.Now().Format("2006-01-02 15:04:05"), moduleName, r)
		fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(stack))

		logRuntimeInfo()

		// Give the log backend a moment to flush to disk.
		time.Sleep(1 * time.Second)

		os.Exit(1)
	}
}

func logRuntimeInfo() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	logger.Errorf("Runtime info: goroutines=%d, alloc=%dKB, sys=%dKB, gc_runs=%d",
		runtime.NumGoroutine(),
		memStats.Alloc/1024,
		memStats.Sys/1024,
		memStats.NumGC,
	)
}
