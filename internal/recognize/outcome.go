package recognize

import "encoding/json"

// OutcomeKind is the classified result of one recognition round trip.
type OutcomeKind string

const (
	// OutcomeMatched means the service recognized the code and resolved it to an asset.
	OutcomeMatched OutcomeKind = "matched"
	// OutcomeNotFound means no code was visible in the sample. Normal while scanning.
	OutcomeNotFound OutcomeKind = "not_found"
	// OutcomeAssetUnresolved means the service recognized a code but no asset is linked to it.
	OutcomeAssetUnresolved OutcomeKind = "asset_unresolved"
	// OutcomeTransient means the round trip itself failed (network, timeout, 5xx).
	OutcomeTransient OutcomeKind = "transient"
)

// Outcome is the tagged result of one recognition round trip. Exactly one of the
// payload fields is meaningful for each kind: AssetID/Asset for OutcomeMatched,
// Err for OutcomeTransient and OutcomeAssetUnresolved.
type Outcome struct {
	Kind    OutcomeKind
	AssetID string
	Asset   json.RawMessage
	Payload json.RawMessage
	Err     error
}

func matched(assetID string, asset, payload json.RawMessage) Outcome {
	return Outcome{Kind: OutcomeMatched, AssetID: assetID, Asset: asset, Payload: payload}
}

func notFound() Outcome {
	return Outcome{Kind: OutcomeNotFound}
}

func unresolved(err error) Outcome {
	return Outcome{Kind: OutcomeAssetUnresolved, Err: err}
}

func transient(err error) Outcome {
	return Outcome{Kind: OutcomeTransient, Err: err}
}
