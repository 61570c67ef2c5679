//go:build e2e

package e2e

import (
	"os"
	"os/exec"
	"runtime"
	"testing"
)

func TestMain(m *testing.M) {
	code := m.Run()

	// A panicking spec can strand a headless Chrome past its deferred
	// Close; sweep leftovers so repeated local runs do not pile up
	// browser processes.
	cleanupOrphanedBrowsers()

	os.Exit(code)
}

// cleanupOrphanedBrowsers kills leftover Chrome and Chromium processes,
// covering both Rod's downloaded Chromium and a system Chrome. Errors are
// ignored: pkill and taskkill return non-zero when nothing matched.
func cleanupOrphanedBrowsers() {
	switch runtime.GOOS {
	case "darwin", "linux":
		_ = exec.Command("pkill", "-f", "chromium|chrome").Run()
	case "windows":
		_ = exec.Command("taskkill", "/F", "/IM", "chrome.exe").Run()
		_ = exec.Command("taskkill", "/F", "/IM", "chromium.exe").Run()
	}
}
