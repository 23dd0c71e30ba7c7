package notify

import (
	"fmt"
	"log"
	"os/exec"
)

// Notifier surfaces terminal scan results to the person holding the camera.
type Notifier interface {
	ScanStarted()
	ScanStopped()
	AssetFound(assetID string)
	ScanFailed(msg string)
}

// New picks a notifier implementation by config type.
func New(enabled bool, kind string) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "log":
		return Log{}
	case "none":
		return Nop{}
	default:
		return Desktop{}
	}
}

type Desktop struct{}

func (Desktop) ScanStarted() {
	send("Railscan", "Scanning for asset code...", false)
}

func (Desktop) ScanStopped() {
	send("Railscan", "Scan stopped", false)
}

func (Desktop) AssetFound(assetID string) {
	send("Railscan", fmt.Sprintf("Asset %s found", assetID), false)
}

func (Desktop) ScanFailed(msg string) {
	send("Railscan", msg, true)
}

func send(title, body string, critical bool) {
	args := []string{"-a", "Railscan"}
	if critical {
		args = append(args, "-u", "critical")
	}
	args = append(args, title, body)
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log writes notifications to the daemon log instead of the desktop.
type Log struct{}

func (Log) ScanStarted()              { log.Printf("notify: scan started") }
func (Log) ScanStopped()              { log.Printf("notify: scan stopped") }
func (Log) AssetFound(assetID string) { log.Printf("notify: asset %s found", assetID) }
func (Log) ScanFailed(msg string)     { log.Printf("notify: scan failed: %s", msg) }

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) ScanStarted()              {}
func (Nop) ScanStopped()              {}
func (Nop) AssetFound(assetID string) {}
func (Nop) ScanFailed(msg string)     {}
