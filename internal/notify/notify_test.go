package notify

import "testing"

func TestNewSelection(t *testing.T) {
	if _, ok := New(false, "desktop").(Nop); !ok {
		t.Errorf("disabled notifications must yield Nop")
	}
	if _, ok := New(true, "log").(Log); !ok {
		t.Errorf("log type must yield Log")
	}
	if _, ok := New(true, "none").(Nop); !ok {
		t.Errorf("none type must yield Nop")
	}
	if _, ok := New(true, "desktop").(Desktop); !ok {
		t.Errorf("desktop type must yield Desktop")
	}
	if _, ok := New(true, "").(Desktop); !ok {
		t.Errorf("empty type must default to Desktop")
	}
}

func TestNopAndLogNeverPanic(t *testing.T) {
	for _, n := range []Notifier{Nop{}, Log{}} {
		n.ScanStarted()
		n.ScanStopped()
		n.AssetFound("LOC202501011234")
		n.ScanFailed("camera permission denied")
	}
}
