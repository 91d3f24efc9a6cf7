package di

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mikey/phishing-filter/internal/adapters/dataset"
	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/factory"
	"github.com/mikey/phishing-filter/internal/ports"
)

func TestCLIContainerTrainAndReload(t *testing.T) {
	ctx := context.Background()
	flags := &CLIFlags{ModelPath: filepath.Join(t.TempDir(), "model.json")}

	container, err := BuildCLIContainer(flags)
	if err != nil {
		t.Fatalf("BuildCLIContainer failed: %v", err)
	}

	var trained *core.TrainedModel
	err = container.Invoke(func(service *core.PhishingDetectorService, emailFilter ports.EmailFilter) error {
		if _, ok := emailFilter.(*filter.CliFilter); !ok {
			t.Errorf("CLI container built %T, want *filter.CliFilter", emailFilter)
		}
		if _, err := service.ClassifyText(ctx, "hello"); !errors.Is(err, core.ErrModelNotFound) {
			t.Errorf("classify before training: error = %v, want ErrModelNotFound", err)
		}
		model, _, err := service.Train(ctx, dataset.Sample())
		trained = model
		return err
	})
	if err != nil {
		t.Fatalf("training through the container failed: %v", err)
	}

	// A fresh container loads the saved model from disk
	reloaded, err := BuildCLIContainer(flags)
	if err != nil {
		t.Fatal(err)
	}
	err = reloaded.Invoke(func(service *core.PhishingDetectorService) error {
		model, err := service.Model(ctx)
		if err != nil {
			return err
		}
		if model.VocabularySize() != trained.VocabularySize() || !model.TrainedAt.Equal(trained.TrainedAt) {
			t.Error("reloaded model differs from the trained one")
		}
		result, err := service.ClassifyText(ctx, "URGENT: Your account has been compromised! Click here to verify immediately.")
		if err != nil {
			return err
		}
		if result.Label != core.LabelPhishing {
			t.Errorf("label = %s, want %s", result.Label, core.LabelPhishing)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("classification through the container failed: %v", err)
	}
}

func TestCLIContainerRejectsBadStore(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{StoreType: "tape"})
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Invoke(func(*core.PhishingDetectorService) {}); err == nil {
		t.Error("expected an error for an unsupported store type")
	}
}

func TestServeContainerUsesStoreFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "served.json")
	container, err := BuildContainer(&CLIFlags{ModelPath: path})
	if err != nil {
		t.Fatalf("BuildContainer failed: %v", err)
	}

	err = container.Invoke(func(emailFilter ports.EmailFilter, sf *factory.StoreFactory) error {
		if _, ok := emailFilter.(*filter.PostfixFilter); !ok {
			t.Errorf("serve container built %T, want *filter.PostfixFilter", emailFilter)
		}
		if got := sf.ModelKey(); got != path {
			t.Errorf("model key = %q, want %q", got, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
}
