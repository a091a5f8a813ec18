package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var (
	getRuntime  = func() string { return runtime.GOOS }
	execCommand = exec.Command
)

// OpenBrowser asks the desktop to open url in the default browser.
//
// It returns once the opener process has started. Supports macOS, Linux/BSD and Windows.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(getRuntime(), url)
	if err != nil {
		return err
	}

	if err := execCommand(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("%w: cannot open browser on %s", ErrNotImplemented, goos)
	}
}
