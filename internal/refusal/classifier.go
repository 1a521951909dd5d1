package refusal

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrDimension is returned when a vector does not match the classifier.
var ErrDimension = errors.New("classifier dimension mismatch")

// Classifier predicts the probability that an embedded answer is a refusal.
type Classifier interface {
	RefusalProbability(vec []float64) (float64, error)
}

// LogisticClassifier is a pretrained logistic regression over embeddings.
type LogisticClassifier struct {
	Weights []float64 `yaml:"weights"`
	Bias    float64   `yaml:"bias"`
}

// LoadClassifier reads a classifier saved as YAML.
func LoadClassifier(path string) (*LogisticClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c LogisticClassifier
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode classifier %s: %w", path, err)
	}
	if len(c.Weights) == 0 {
		return nil, fmt.Errorf("classifier %s has no weights", path)
	}
	return &c, nil
}

func (c *LogisticClassifier) RefusalProbability(vec []float64) (float64, error) {
	if len(vec) != len(c.Weights) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), len(c.Weights))
	}
	z := c.Bias
	for i, w := range c.Weights {
		z += w * vec[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
