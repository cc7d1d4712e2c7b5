package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if cmd == nil {
		return errors.New("no browser command available")
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// headlessEnv reports whether no display server is reachable, in which case
// launching a browser is pointless and the URL is printed instead.
func headlessEnv() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

// openBrowserOrPrint drives the user to the authorization URL. A failed
// browser launch is a non-fatal branch: the URL is printed for manual copy.
func openBrowserOrPrint(w io.Writer, url string, noBrowser bool) {
	if noBrowser || headlessEnv() {
		_, _ = fmt.Fprintf(w, "\nOpen this URL in your browser:\n\n%s\n\n", url)
		return
	}
	if err := openBrowser(url); err != nil {
		_, _ = fmt.Fprintf(w, "\nCouldn't open browser. Please open this URL manually:\n\n%s\n\n", url)
	}
}
