package deps

import "testing"

func TestCheckMissingBinary(t *testing.T) {
	status := check("definitely-not-installed-anywhere", "--version")
	if status.Installed {
		t.Errorf("missing binary reported as installed")
	}
	if status.Path != "" || status.Version != "" {
		t.Errorf("missing binary carries path/version: %+v", status)
	}
}

func TestCheckPresentBinary(t *testing.T) {
	// sh exists on any platform the daemon targets
	status := check("sh", "--version")
	if !status.Installed {
		t.Skip("sh not on PATH")
	}
	if status.Path == "" {
		t.Errorf("installed binary without path")
	}
}
