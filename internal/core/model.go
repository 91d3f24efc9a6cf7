package core

import (
	"fmt"
	"time"
)

// Class labels. The label set is fixed to these two values.
const (
	ClassLegitimate = 0
	ClassPhishing   = 1
)

// NumClasses is the size of the label set
const NumClasses = 2

// Verdict labels returned to callers
const (
	LabelPhishing   = "PHISHING"
	LabelLegitimate = "LEGITIMATE"
)

// Document represents a piece of email text with an optional label
type Document struct {
	Text string
	// Label is nil during inference
	Label *int
}

// Dataset is an ordered collection of labeled documents
type Dataset struct {
	Texts  []string
	Labels []int
}

// NewDataset builds a dataset from labeled documents
func NewDataset(docs []Document) (*Dataset, error) {
	ds := &Dataset{
		Texts:  make([]string, 0, len(docs)),
		Labels: make([]int, 0, len(docs)),
	}
	for i, doc := range docs {
		if doc.Label == nil {
			return nil, fmt.Errorf("%w: document %d has no label", ErrDatasetFormat, i)
		}
		if *doc.Label != ClassLegitimate && *doc.Label != ClassPhishing {
			return nil, fmt.Errorf("%w: document %d has label %d, want 0 or 1", ErrDatasetFormat, i, *doc.Label)
		}
		ds.Add(doc.Text, *doc.Label)
	}
	return ds, nil
}

// Add appends a labeled example to the dataset
func (d *Dataset) Add(text string, label int) {
	d.Texts = append(d.Texts, text)
	d.Labels = append(d.Labels, label)
}

// Len returns the number of examples
func (d *Dataset) Len() int {
	return len(d.Texts)
}

// ClassCounts returns the number of examples per class
func (d *Dataset) ClassCounts() [NumClasses]int {
	var counts [NumClasses]int
	for _, label := range d.Labels {
		if label >= 0 && label < NumClasses {
			counts[label]++
		}
	}
	return counts
}

// FeatureVector is a sparse vector over the vocabulary. Indices are strictly
// increasing and every value is non-negative.
type FeatureVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NNZ returns the number of stored (non-zero) entries
func (v FeatureVector) NNZ() int {
	return len(v.Indices)
}

// Dense expands the vector into a slice of length Dim
func (v FeatureVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for k, i := range v.Indices {
		out[i] = v.Values[k]
	}
	return out
}

// TrainedModel holds every learned parameter of the pipeline. It is never
// modified after training and may be shared between goroutines.
type TrainedModel struct {
	// Vocabulary maps a term to its feature index
	Vocabulary map[string]int `json:"vocabulary"`
	// IDF holds one inverse document frequency per feature index
	IDF []float64 `json:"idf"`
	// Classes is always [0, 1]
	Classes []int `json:"classes"`
	// ClassPrior holds prior(c) indexed by class
	ClassPrior []float64 `json:"class_prior"`
	// FeatureLogProb holds log P(i|c), indexed [class][feature]
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
	Alpha          float64     `json:"alpha"`

	TrainedAt    time.Time `json:"trained_at"`
	TrainingSize int       `json:"training_size"`
}

// VocabularySize returns the number of features
func (m *TrainedModel) VocabularySize() int {
	return len(m.IDF)
}

// ClassificationResult represents the verdict for a single text
type ClassificationResult struct {
	Label                 string    `json:"label"`
	IsPhishing            bool      `json:"is_phishing"`
	Confidence            float64   `json:"confidence"`
	PhishingProbability   float64   `json:"phishing_probability"`
	LegitimateProbability float64   `json:"legitimate_probability"`
	AnalyzedAt            time.Time `json:"analyzed_at"`
	ProcessingID          string    `json:"processing_id,omitempty"`
	Source                string    `json:"source,omitempty"`
}

// ConfusionMatrix holds the 2x2 prediction counts with phishing as the positive class
type ConfusionMatrix struct {
	TrueNegative  int `json:"true_negative"`
	FalsePositive int `json:"false_positive"`
	FalseNegative int `json:"false_negative"`
	TruePositive  int `json:"true_positive"`
}

// ClassReport holds per-class evaluation figures
type ClassReport struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvaluationMetrics summarizes model quality on the held-out split
type EvaluationMetrics struct {
	Accuracy  float64                 `json:"accuracy"`
	PerClass  [NumClasses]ClassReport `json:"per_class"`
	Confusion ConfusionMatrix         `json:"confusion"`
	TrainSize int                     `json:"train_size"`
	TestSize  int                     `json:"test_size"`
}

// CacheEntry is a cached verdict for a content digest
type CacheEntry struct {
	Digest    string
	Result    ClassificationResult
	ExpiresAt time.Time
}

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// Text returns the content used for classification
func (e *Email) Text() string {
	if e.Subject == "" {
		return e.Body
	}
	return e.Subject + "\n" + e.Body
}
