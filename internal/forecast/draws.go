package forecast

import (
	"context"
	"fmt"
)

// Parameter naming convention shared with the external sampler: one
// intercept, one coefficient per feature keyed by the feature's name with
// a "b_" prefix, and for the heavy-tailed model a scale and a
// degrees-of-freedom parameter.
const (
	InterceptParam = "a"
	CoefPrefix     = "b_"
	SigmaParam     = "sigma"
	NuParam        = "nu"
)

// Draws maps a parameter name to its flattened posterior samples
// (draws x chains). Produced by the external sampler and treated as
// read-only here.
type Draws map[string][]float64

// Len returns the common draw count, or ErrDrawLengthMismatch when the
// vectors disagree. An empty Draws has length 0.
func (d Draws) Len() (int, error) {
	n := -1
	ref := ""
	for name, samples := range d {
		if n == -1 {
			n, ref = len(samples), name
			continue
		}
		if len(samples) != n {
			return 0, fmt.Errorf("%w: %q has %d draws, %q has %d",
				ErrDrawLengthMismatch, ref, n, name, len(samples))
		}
	}
	if n == -1 {
		return 0, nil
	}
	return n, nil
}

// Coef returns the coefficient draws for a feature name, if the fitted
// model used that feature. An absent coefficient means "feature not used
// by this model", not an error.
func (d Draws) Coef(feature string) ([]float64, bool) {
	b, ok := d[CoefPrefix+feature]
	return b, ok
}

// require returns the named parameter's draws or ErrMissingParameter.
func (d Draws) require(name string) ([]float64, error) {
	samples, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingParameter, name)
	}
	return samples, nil
}

// Sampler is the opaque model-fit collaborator: given named feature
// columns and a target vector it returns posterior draws. The sampling
// algorithm behind it is not this package's concern.
type Sampler interface {
	Sample(ctx context.Context, features map[string][]float64, target []float64) (Draws, error)
}
