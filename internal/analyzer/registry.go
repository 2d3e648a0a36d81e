package analyzer

import "fmt"

// NewSampler creates a sampler based on the specified variant
func NewSampler(variant string) (Sampler, error) {
	switch variant {
	case "border", "":
		return NewBorderSampler(), nil
	case "dominant":
		return NewDominantSampler(), nil
	default:
		return nil, fmt.Errorf("unknown key sampler variant: %s", variant)
	}
}
