package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeExtras is the typed per-node metadata. A node without extras inherits
// the effective extras of its nearest ancestor.
type NodeExtras struct {
	LightingStrength float32 `json:"lighting_strength"`
}

// DefaultNodeExtras applies where no ancestor declares extras.
func DefaultNodeExtras() NodeExtras {
	return NodeExtras{LightingStrength: 1}
}

// MeshExtras is the typed per-mesh metadata.
type MeshExtras struct {
	IsBillboard bool `json:"is_billboard"`
	KeepUpright bool `json:"keep_upright"`
}

// Orientation resolves the flags into a single draw-time variant.
func (e MeshExtras) Orientation() Orientation {
	switch {
	case e.IsBillboard && e.KeepUpright:
		return OrientBillboardUpright
	case e.IsBillboard:
		return OrientBillboard
	}
	return OrientFixed
}

// effectiveExtras is threaded down the scene traversal.
type effectiveExtras struct {
	parsed NodeExtras
	raw    json.RawMessage
}

// rawExtras turns the decoded extras value back into JSON. It reports nil
// when the node carries no extras.
func rawExtras(v any) (json.RawMessage, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(bytes.TrimSpace(x)) == 0 || bytes.Equal(bytes.TrimSpace(x), []byte("null")) {
			return nil, nil
		}
		return x, nil
	}
	return json.Marshal(v)
}

// parseExtras decodes raw into a copy of def, so absent fields keep their
// defaults.
func parseExtras[T any](raw json.RawMessage, def T) (T, error) {
	out := def
	if err := json.Unmarshal(raw, &out); err != nil {
		return def, fmt.Errorf("invalid extras %s: %w", truncate(raw, 64), err)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
