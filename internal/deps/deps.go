package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// CheckFFmpeg checks if ffmpeg (the camera grabber) is installed
func CheckFFmpeg() Status {
	return check("ffmpeg", "-version")
}

// CheckPwRecord checks if pw-record (voice note capture) is installed
func CheckPwRecord() Status {
	return check("pw-record", "--version")
}

// CheckNotifySend checks if notify-send (desktop notifications) is installed
func CheckNotifySend() Status {
	return check("notify-send", "--version")
}

func check(name, versionFlag string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	// first line of the version output, when the tool provides one
	cmd := exec.Command(path, versionFlag)
	output, err := cmd.Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
