package recognize

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// scanResponse is the wire shape shared by all three scan endpoints.
type scanResponse struct {
	Success bool            `json:"success"`
	AssetID string          `json:"assetId"`
	Asset   json.RawMessage `json:"asset"`
	Payload json.RawMessage `json:"payload"`
	Data    string          `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// classify maps one HTTP round trip to an Outcome. transportErr covers failures
// before a response existed (dial, timeout, reset); those are always transient.
func classify(status int, resp *scanResponse, transportErr error) Outcome {
	if transportErr != nil {
		return transient(fmt.Errorf("recognition round trip: %w", transportErr))
	}
	if status >= http.StatusInternalServerError {
		return transient(fmt.Errorf("recognition service returned %d", status))
	}
	if resp == nil {
		return transient(fmt.Errorf("recognition service returned %d with no body", status))
	}

	// The service answers 404 when it decoded a code but found no linked asset.
	if status == http.StatusNotFound || isAssetMissing(resp.Error) {
		return unresolved(fmt.Errorf("recognized symbol but no matching asset: %s", resp.Error))
	}

	if resp.Success {
		if resp.AssetID == "" {
			// success without an asset reference is not a match
			return unresolved(fmt.Errorf("recognition succeeded without an asset id"))
		}
		return matched(resp.AssetID, resp.Asset, resp.Payload)
	}

	return notFound()
}

func isAssetMissing(msg string) bool {
	if msg == "" {
		return false
	}
	m := strings.ToLower(msg)
	return strings.Contains(m, "asset not found") || strings.Contains(m, "no asset id")
}
