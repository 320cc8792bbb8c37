package tool

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// NewDeviceInfoTool returns a tool reporting basic host information.
func NewDeviceInfoTool() *FunctionTool {
	return NewFunctionTool(
		"device_info",
		"Report the operating system, architecture, CPU count and hostname of the machine running the agent.",
		nil,
		func(context.Context, map[string]any) (string, error) {
			host, err := os.Hostname()
			if err != nil {
				host = "unknown"
			}
			var b strings.Builder
			fmt.Fprintf(&b, "system: %s\n", runtime.GOOS)
			fmt.Fprintf(&b, "machine: %s\n", runtime.GOARCH)
			fmt.Fprintf(&b, "cpus: %d\n", runtime.NumCPU())
			fmt.Fprintf(&b, "hostname: %s\n", host)
			fmt.Fprintf(&b, "go_version: %s", runtime.Version())
			return b.String(), nil
		},
	)
}
