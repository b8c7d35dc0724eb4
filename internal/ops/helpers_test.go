package ops_test

import (
	"context"
	"encoding/json"
	"testing"

	"intake/internal/lifecycle"
	"intake/internal/ops"
	"intake/internal/retrypolicy"
	"intake/internal/services/export"
	"intake/internal/store"
	"intake/internal/testsupport"
)

type fakeExporter struct {
	result *export.Result
	err    error
	calls  int
}

func (f *fakeExporter) Render(ctx context.Context, card json.RawMessage, itemID string, formats []string) (*export.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &export.Result{
		Files:           []export.File{{Path: "/tmp/" + itemID + "/card.md", Format: export.FormatMarkdown, Bytes: 64}},
		Renderer:        export.RendererName,
		TemplateVersion: export.DefaultTemplateVersion,
	}, nil
}

func newService(t *testing.T) (*ops.Service, *store.Store, *fakeExporter) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	exporter := &fakeExporter{}
	return ops.NewService(st, exporter, retrypolicy.Default(), nil), st, exporter
}

// moveTo walks an item through legal transitions until it reaches target.
func moveTo(t *testing.T, st *store.Store, id string, target lifecycle.Status) {
	t.Helper()
	ctx := context.Background()
	path := map[lifecycle.Status]lifecycle.Status{
		lifecycle.StatusQueued:     lifecycle.StatusCaptured,
		lifecycle.StatusProcessing: lifecycle.StatusQueued,
		lifecycle.StatusReady:      lifecycle.StatusProcessing,
	}
	var climb func(to lifecycle.Status)
	climb = func(to lifecycle.Status) {
		from, ok := path[to]
		if !ok {
			t.Fatalf("no transition path to %s", to)
		}
		if from != lifecycle.StatusCaptured {
			climb(from)
		}
		if to == lifecycle.StatusReady {
			if err := st.TransitionToReady(ctx, id, "worth_it", 72); err != nil {
				t.Fatalf("to ready: %v", err)
			}
			return
		}
		if err := st.TransitionStatus(ctx, id, from, to); err != nil {
			t.Fatalf("%s -> %s: %v", from, to, err)
		}
	}
	climb(target)
}

func writeArtifact(t *testing.T, st *store.Store, itemID, artifactType string, payload string) *store.Artifact {
	t.Helper()
	art := &store.Artifact{
		ItemID:    itemID,
		Type:      artifactType,
		CreatedBy: store.CreatedBySystem,
		Payload:   json.RawMessage(payload),
	}
	if err := st.WriteArtifact(context.Background(), art); err != nil {
		t.Fatalf("write artifact %s: %v", artifactType, err)
	}
	return art
}

func writePrimaryArtifacts(t *testing.T, st *store.Store, itemID string) {
	t.Helper()
	writeArtifact(t, st, itemID, store.ArtifactSummary, `{"bullets":["a"],"insight":"i"}`)
	writeArtifact(t, st, itemID, store.ArtifactScore, `{"match_score":0.7,"priority":"worth_it"}`)
	writeArtifact(t, st, itemID, store.ArtifactTodos, `[{"title":"read","eta":"10m","type":"read"}]`)
	writeArtifact(t, st, itemID, store.ArtifactCard, `{"title":"T","url":"https://example.org","priority":"worth_it","match_score":0.7}`)
}

func failedItem(t *testing.T, st *store.Store, id string, failures int) {
	t.Helper()
	ctx := context.Background()
	moveTo(t, st, id, lifecycle.StatusProcessing)
	for i := 0; i < failures; i++ {
		if _, err := st.RecordFailedJob(ctx, id, store.KindProcess, "boom"); err != nil {
			t.Fatalf("record failed job: %v", err)
		}
	}
	failure := lifecycle.FailureInfo{FailedStep: lifecycle.StepPipeline, ErrorCode: "internal", Message: "boom"}
	if err := st.TransitionToFailed(ctx, id, lifecycle.StatusProcessing, lifecycle.StatusFailedAI, failure.ToJSON()); err != nil {
		t.Fatalf("to failed: %v", err)
	}
}
