package store

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/mikey/phishing-filter/internal/core"
)

// formatVersion is bumped whenever the persisted layout changes
const formatVersion = 1

// probTolerance bounds rounding drift in stored probability distributions
const probTolerance = 1e-6

type envelope struct {
	Version int                `json:"version"`
	Model   *core.TrainedModel `json:"model"`
}

// Encode serializes a model. Floats are written in shortest round-trip form
// so that decoding restores them bit for bit.
func Encode(model *core.TrainedModel) ([]byte, error) {
	if err := validate(model); err != nil {
		return nil, err
	}
	data, err := json.Marshal(envelope{Version: formatVersion, Model: model})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode model: %v", core.ErrSerialization, err)
	}
	return data, nil
}

// Decode deserializes and validates a model
func Decode(data []byte) (*core.TrainedModel, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode model: %v", core.ErrSerialization, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported model format version %d", core.ErrSerialization, env.Version)
	}
	if err := validate(env.Model); err != nil {
		return nil, err
	}
	return env.Model, nil
}

// validate checks the structural invariants of a model
func validate(m *core.TrainedModel) error {
	if m == nil {
		return fmt.Errorf("%w: model is missing", core.ErrSerialization)
	}

	dim := len(m.IDF)
	if dim == 0 || len(m.Vocabulary) != dim {
		return fmt.Errorf("%w: vocabulary has %d terms but %d idf weights", core.ErrSerialization, len(m.Vocabulary), dim)
	}

	for i, w := range m.IDF {
		if w < 1 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: idf weight %g at index %d is below 1", core.ErrSerialization, w, i)
		}
	}

	seen := make([]bool, dim)
	for term, i := range m.Vocabulary {
		if i < 0 || i >= dim || seen[i] {
			return fmt.Errorf("%w: invalid index %d for term %q", core.ErrSerialization, i, term)
		}
		seen[i] = true
	}

	if len(m.Classes) != core.NumClasses || m.Classes[0] != core.ClassLegitimate || m.Classes[1] != core.ClassPhishing {
		return fmt.Errorf("%w: unexpected class labels %v", core.ErrSerialization, m.Classes)
	}
	if len(m.ClassPrior) != core.NumClasses || len(m.FeatureLogProb) != core.NumClasses {
		return fmt.Errorf("%w: expected parameters for %d classes", core.ErrSerialization, core.NumClasses)
	}
	for c, row := range m.FeatureLogProb {
		if len(row) != dim {
			return fmt.Errorf("%w: class %d has %d log probabilities, want %d", core.ErrSerialization, c, len(row), dim)
		}
		if m.ClassPrior[c] <= 0 || m.ClassPrior[c] > 1 || math.IsNaN(m.ClassPrior[c]) {
			return fmt.Errorf("%w: class %d prior %g out of range", core.ErrSerialization, c, m.ClassPrior[c])
		}
		total := 0.0
		for i, lp := range row {
			if lp > 0 || math.IsNaN(lp) || math.IsInf(lp, 0) {
				return fmt.Errorf("%w: class %d log probability %g at index %d is not a log of a probability",
					core.ErrSerialization, c, lp, i)
			}
			total += math.Exp(lp)
		}
		if math.Abs(total-1) > probTolerance {
			return fmt.Errorf("%w: class %d feature probabilities sum to %g", core.ErrSerialization, c, total)
		}
	}
	if sum := m.ClassPrior[0] + m.ClassPrior[1]; math.Abs(sum-1) > probTolerance {
		return fmt.Errorf("%w: class priors sum to %g", core.ErrSerialization, sum)
	}
	if m.Alpha <= 0 || math.IsNaN(m.Alpha) {
		return fmt.Errorf("%w: smoothing constant must be positive, got %g", core.ErrSerialization, m.Alpha)
	}

	return nil
}
