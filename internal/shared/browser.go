package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the command that opens url on the current platform.
func browserCommand(url string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrInvalidArgument, rt)
	}
}

// OpenBrowser opens the default system browser at url without waiting for it to exit.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
