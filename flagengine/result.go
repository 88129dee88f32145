package flagengine

import "github.com/featurekit/featurekit-go/flagengine/variants"

// EvaluationResult is the decision for one toggle and one context.
type EvaluationResult struct {
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Variant VariantResult `json:"variant"`
	// StickinessValue is the context value that was hashed, empty when no hashing happened.
	StickinessValue string `json:"stickinessValue,omitempty"`
	ImpressionData  bool   `json:"impressionData"`
	Project         string `json:"project,omitempty"`
}

// VariantResult describes the variant served. A toggle without an applicable variant serves the
// synthetic disabled variant.
type VariantResult struct {
	Name           string            `json:"name"`
	Enabled        bool              `json:"enabled"`
	FeatureEnabled bool              `json:"featureEnabled"`
	Payload        *variants.Payload `json:"payload,omitempty"`
}

// DisabledVariant returns the synthetic variant for a toggle decision.
func DisabledVariant(featureEnabled bool) VariantResult {
	return VariantResult{Name: variants.DisabledName, FeatureEnabled: featureEnabled}
}
