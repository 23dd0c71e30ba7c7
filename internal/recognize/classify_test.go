package recognize

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyTransportError(t *testing.T) {
	out := classify(0, nil, errors.New("dial tcp: connection refused"))
	if out.Kind != OutcomeTransient {
		t.Errorf("kind = %s, want %s", out.Kind, OutcomeTransient)
	}
	if out.Err == nil {
		t.Errorf("transient outcome without cause")
	}
}

func TestClassifyServerError(t *testing.T) {
	out := classify(http.StatusInternalServerError, &scanResponse{Success: false, Error: "boom"}, nil)
	if out.Kind != OutcomeTransient {
		t.Errorf("kind = %s, want %s", out.Kind, OutcomeTransient)
	}
}

func TestClassifyNoCodeVisible(t *testing.T) {
	// the service answers success=false with no error while scanning
	out := classify(http.StatusOK, &scanResponse{Success: false}, nil)
	if out.Kind != OutcomeNotFound {
		t.Errorf("kind = %s, want %s", out.Kind, OutcomeNotFound)
	}
}

func TestClassifyMatched(t *testing.T) {
	resp := &scanResponse{
		Success: true,
		AssetID: "LOC202501011234",
		Asset:   []byte(`{"type":"locomotive"}`),
	}
	out := classify(http.StatusOK, resp, nil)
	if out.Kind != OutcomeMatched {
		t.Fatalf("kind = %s, want %s", out.Kind, OutcomeMatched)
	}
	if out.AssetID != "LOC202501011234" {
		t.Errorf("assetID = %q", out.AssetID)
	}
	if len(out.Asset) == 0 {
		t.Errorf("asset record dropped")
	}
}

func TestClassifyRecognizedButUnlinked(t *testing.T) {
	cases := []struct {
		name   string
		status int
		resp   scanResponse
	}{
		{"404 from asset lookup", http.StatusNotFound, scanResponse{Success: false, Error: "Asset not found"}},
		{"success without asset id", http.StatusOK, scanResponse{Success: true}},
		{"explicit missing id error", http.StatusBadRequest, scanResponse{Success: false, Error: "No asset ID found in QR data"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := classify(tc.status, &tc.resp, nil)
			if out.Kind != OutcomeAssetUnresolved {
				t.Errorf("kind = %s, want %s", out.Kind, OutcomeAssetUnresolved)
			}
		})
	}
}

func TestClassifyMissingBody(t *testing.T) {
	out := classify(http.StatusOK, nil, nil)
	if out.Kind != OutcomeTransient {
		t.Errorf("kind = %s, want %s", out.Kind, OutcomeTransient)
	}
}

func TestFatalErrorWrapping(t *testing.T) {
	cause := errors.New("threshold exceeded")
	err := NewFatalError(ServiceUnavailable, cause)

	fatal, ok := AsFatal(err)
	if !ok {
		t.Fatalf("AsFatal() = false")
	}
	if fatal.Kind != ServiceUnavailable {
		t.Errorf("kind = %s", fatal.Kind)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through Unwrap")
	}

	if _, ok := AsFatal(errors.New("plain")); ok {
		t.Errorf("plain error classified as fatal")
	}
}
