package pipeline

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishing-filter/internal/adapters/dataset"
	"github.com/mikey/phishing-filter/internal/core"
)

const (
	phishingExample   = "URGENT: Your account has been compromised! Click here to verify immediately."
	legitimateExample = "Hi team, just a reminder about our meeting tomorrow at 10 AM."
)

func fitSample(t *testing.T) (*Pipeline, *core.TrainedModel) {
	t.Helper()
	p := New(DefaultConfig(), zaptest.NewLogger(t))
	model, err := p.Fit(context.Background(), dataset.Sample())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return p, model
}

func TestTrainOnSampleCorpus(t *testing.T) {
	p := New(DefaultConfig(), zaptest.NewLogger(t))

	model, metrics, err := p.Train(context.Background(), dataset.Sample())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if metrics.TrainSize != 32 || metrics.TestSize != 8 {
		t.Errorf("split = %d/%d, want 32/8", metrics.TrainSize, metrics.TestSize)
	}
	if model.TrainingSize != 32 {
		t.Errorf("TrainingSize = %d, want 32", model.TrainingSize)
	}
	if model.VocabularySize() == 0 || model.VocabularySize() > DefaultConfig().Vectorizer.MaxFeatures {
		t.Errorf("vocabulary size %d out of range", model.VocabularySize())
	}
	if len(model.Vocabulary) != model.VocabularySize() {
		t.Errorf("vocabulary has %d terms but %d idf weights", len(model.Vocabulary), model.VocabularySize())
	}
	cm := metrics.Confusion
	if cm.TrueNegative+cm.FalsePositive+cm.FalseNegative+cm.TruePositive != metrics.TestSize {
		t.Errorf("confusion matrix %+v does not add up to %d", cm, metrics.TestSize)
	}
}

func TestTrainHeldOutAccuracy(t *testing.T) {
	var total float64
	const seeds = 20
	for seed := uint64(1); seed <= seeds; seed++ {
		cfg := DefaultConfig()
		cfg.Seed = seed
		_, metrics, err := New(cfg, zaptest.NewLogger(t)).Train(context.Background(), dataset.Sample())
		if err != nil {
			t.Fatalf("seed %d: Train failed: %v", seed, err)
		}
		total += metrics.Accuracy
	}

	if mean := total / seeds; mean < 0.75 {
		t.Errorf("mean held-out accuracy = %.3f, want >= 0.75", mean)
	}
}

func TestTrainReferenceAccuracy(t *testing.T) {
	p := New(DefaultConfig(), zaptest.NewLogger(t))
	model, metrics, err := p.Train(context.Background(), dataset.Sample())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if metrics.Accuracy < 0.8 {
		t.Errorf("held-out accuracy with seed %d = %.3f, want >= 0.8", DefaultConfig().Seed, metrics.Accuracy)
	}

	// The held-out model still separates the reference examples
	if r := p.Classify(model, phishingExample); !r.IsPhishing {
		t.Errorf("phishing example classified as %s", r.Label)
	}
	if r := p.Classify(model, legitimateExample); r.IsPhishing {
		t.Errorf("legitimate example classified as %s", r.Label)
	}
}

func TestTrainDeterministic(t *testing.T) {
	a, ma, err := New(DefaultConfig(), zaptest.NewLogger(t)).Train(context.Background(), dataset.Sample())
	if err != nil {
		t.Fatal(err)
	}
	b, mb, err := New(DefaultConfig(), zaptest.NewLogger(t)).Train(context.Background(), dataset.Sample())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a.Vocabulary, b.Vocabulary) || !reflect.DeepEqual(a.FeatureLogProb, b.FeatureLogProb) {
		t.Error("training twice with the same seed produced different models")
	}
	if *ma != *mb {
		t.Errorf("metrics differ: %+v vs %+v", ma, mb)
	}
}

func TestClassifyExamples(t *testing.T) {
	p, model := fitSample(t)

	tests := []struct {
		text       string
		wantLabel  string
		isPhishing bool
	}{
		{phishingExample, core.LabelPhishing, true},
		{legitimateExample, core.LabelLegitimate, false},
		{"URGENT: verify your account now by clicking this link and entering your password", core.LabelPhishing, true},
		{"Hi team, just a reminder about our weekly meeting tomorrow at 10 AM.", core.LabelLegitimate, false},
	}

	for _, tt := range tests {
		result := p.Classify(model, tt.text)
		if result.Label != tt.wantLabel || result.IsPhishing != tt.isPhishing {
			t.Errorf("Classify(%q) = %s (phishing %.3f), want %s",
				tt.text, result.Label, result.PhishingProbability, tt.wantLabel)
		}
		if result.Confidence < 0.5 {
			t.Errorf("confidence %v below 0.5", result.Confidence)
		}
	}
}

func TestClassifyProbabilities(t *testing.T) {
	p, model := fitSample(t)

	texts := []string{
		"",
		"   ",
		"!!!",
		"verify your bank password now",
		"quarterly report attached for review",
		"completely unrelated words zebra xylophone",
		"invalid \xff utf8",
	}
	for _, text := range texts {
		result := p.Classify(model, text)
		sum := result.PhishingProbability + result.LegitimateProbability
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Classify(%q): probabilities sum to %v", text, sum)
		}
		want := math.Max(result.PhishingProbability, result.LegitimateProbability)
		if math.Abs(result.Confidence-want) > 1e-12 {
			t.Errorf("Classify(%q): confidence %v, want %v", text, result.Confidence, want)
		}
	}
}

func TestClassifyEmptyTextUsesPriors(t *testing.T) {
	p, model := fitSample(t)

	result := p.Classify(model, "")
	if math.Abs(result.PhishingProbability-model.ClassPrior[core.ClassPhishing]) > 1e-12 {
		t.Errorf("P(phishing) = %v, want prior %v", result.PhishingProbability, model.ClassPrior[core.ClassPhishing])
	}
	// The sample corpus is balanced, so the tie goes to legitimate
	if result.Label != core.LabelLegitimate {
		t.Errorf("label = %s, want %s", result.Label, core.LabelLegitimate)
	}
}

func TestTrainErrors(t *testing.T) {
	p := New(DefaultConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	oneClass := &core.Dataset{}
	oneClass.Add("click here", core.ClassPhishing)
	oneClass.Add("verify now", core.ClassPhishing)
	if _, _, err := p.Train(ctx, oneClass); !errors.Is(err, core.ErrDatasetFormat) {
		t.Errorf("single class: got %v, want ErrDatasetFormat", err)
	}

	tooSmall := &core.Dataset{}
	tooSmall.Add("click here", core.ClassPhishing)
	tooSmall.Add("meeting notes", core.ClassLegitimate)
	tooSmall.Add("project update", core.ClassLegitimate)
	if _, _, err := p.Train(ctx, tooSmall); !errors.Is(err, core.ErrDatasetFormat) {
		t.Errorf("unsplittable class: got %v, want ErrDatasetFormat", err)
	}

	if _, _, err := p.Train(ctx, &core.Dataset{}); !errors.Is(err, core.ErrDatasetFormat) {
		t.Errorf("empty dataset: got %v, want ErrDatasetFormat", err)
	}

	badLabel := &core.Dataset{Texts: []string{"a", "b"}, Labels: []int{0, 3}}
	if _, _, err := p.Train(ctx, badLabel); !errors.Is(err, core.ErrDatasetFormat) {
		t.Errorf("bad label: got %v, want ErrDatasetFormat", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := p.Train(cancelled, dataset.Sample()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: got %v, want context.Canceled", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Alpha = 0
	if err := cfg.Validate(); err == nil {
		t.Error("alpha 0: expected error")
	}

	cfg = DefaultConfig()
	cfg.TestFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("test fraction 1.5: expected error")
	}
}

func TestTopTerms(t *testing.T) {
	_, model := fitSample(t)

	terms := TopTerms(model, core.ClassPhishing, 5)
	if len(terms) != 5 {
		t.Fatalf("got %d terms, want 5", len(terms))
	}
	for i := 1; i < len(terms); i++ {
		if terms[i].LogOdds > terms[i-1].LogOdds {
			t.Errorf("terms not sorted by log-odds: %v", terms)
		}
	}
	if terms[0].LogOdds <= 0 {
		t.Errorf("top phishing term %q has log-odds %v", terms[0].Term, terms[0].LogOdds)
	}
}
