package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

type fakeClassifier struct {
	result entity.Classification
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, _ *entity.Token) (entity.Classification, error) {
	f.calls++
	return f.result, f.err
}

type fakeInvestigator struct {
	report string
	err    error
	calls  int
	gotSig *entity.OnchainSignal
}

func (f *fakeInvestigator) Investigate(_ context.Context, _ *entity.Token, sig *entity.OnchainSignal) (string, error) {
	f.calls++
	f.gotSig = sig
	return f.report, f.err
}

type fakeSignals struct {
	sig entity.OnchainSignal
	err error
}

func (f *fakeSignals) Analyze(_ context.Context, _ string) (entity.OnchainSignal, error) {
	return f.sig, f.err
}

func newTestProcessor(cl *fakeClassifier, inv *fakeInvestigator, sigs *fakeSignals) *Processor {
	cfg := &common.FilterConfig{MinLiquidity: 2000, MaxTax: 0.20, RequireNotHoneypot: true}
	var deep *DeepDiveStage
	if sigs != nil {
		deep = NewDeepDiveStage(inv, sigs, nil)
	} else {
		deep = NewDeepDiveStage(inv, nil, nil)
	}
	return NewProcessor(NewFilterStage(cfg, nil), NewClassifyStage(cl, nil), deep, nil)
}

func recordFor(stage int, tok *entity.Token) *WorkingRecord {
	return NewWorkingRecord(entity.Job{ID: 42, TokenID: tok.ID, Stage: stage}, tok)
}

func TestProcessorRoutesByStage(t *testing.T) {
	cl := &fakeClassifier{result: entity.Classification{Tags: []string{"Dog"}, VibeScore: 70, RiskLevel: entity.RiskLow}}
	inv := &fakeInvestigator{report: "## Analysis"}
	proc := newTestProcessor(cl, inv, nil)

	tok := testToken(nil)

	rec := proc.Process(context.Background(), recordFor(entity.StageFilter, tok))
	if rec.Status != OutcomePassed || cl.calls != 0 || inv.calls != 0 {
		t.Fatalf("stage 1 leaked into collaborators: status=%q classify=%d investigate=%d", rec.Status, cl.calls, inv.calls)
	}

	rec = proc.Process(context.Background(), recordFor(entity.StageClassify, tok))
	if rec.Status != OutcomePassed || cl.calls != 1 || inv.calls != 0 {
		t.Fatalf("stage 2 routing wrong: status=%q classify=%d investigate=%d", rec.Status, cl.calls, inv.calls)
	}
	if rec.Classification == nil || rec.Classification.VibeScore != 70 {
		t.Fatalf("classification not recorded: %+v", rec.Classification)
	}

	rec = proc.Process(context.Background(), recordFor(entity.StageDeepDive, tok))
	if rec.Status != OutcomePassed || inv.calls != 1 {
		t.Fatalf("stage 3 routing wrong: status=%q investigate=%d", rec.Status, inv.calls)
	}
	if rec.Report != "## Analysis" {
		t.Fatalf("report not recorded: %q", rec.Report)
	}
}

func TestProcessorUnknownStage(t *testing.T) {
	proc := newTestProcessor(&fakeClassifier{}, &fakeInvestigator{}, nil)
	rec := proc.Process(context.Background(), recordFor(9, testToken(nil)))
	if rec.Status != OutcomeError {
		t.Fatalf("unknown stage should error, got %q", rec.Status)
	}
}

func TestClassifyStageCollaboratorError(t *testing.T) {
	cl := &fakeClassifier{err: errors.New("upstream timeout")}
	proc := newTestProcessor(cl, &fakeInvestigator{}, nil)

	rec := proc.Process(context.Background(), recordFor(entity.StageClassify, testToken(nil)))
	if rec.Status != OutcomeError {
		t.Fatalf("status = %q, want error", rec.Status)
	}
	if rec.ErrorMsg != "upstream timeout" {
		t.Errorf("error message = %q, want collaborator message preserved", rec.ErrorMsg)
	}
}

func TestDeepDiveSignalEnrichment(t *testing.T) {
	chain := "solana"
	tok := testToken(func(tok *entity.Token) { tok.Chain = &chain })

	inv := &fakeInvestigator{report: "r"}
	sigs := &fakeSignals{sig: entity.OnchainSignal{SmartMoneyCount: 3, IsAlpha: true, HoldersAnalyzed: 20}}
	proc := newTestProcessor(&fakeClassifier{}, inv, sigs)

	rec := proc.Process(context.Background(), recordFor(entity.StageDeepDive, tok))
	if rec.Status != OutcomePassed {
		t.Fatalf("status = %q, want passed", rec.Status)
	}
	if rec.Signal == nil || !rec.Signal.IsAlpha {
		t.Fatalf("signal not attached: %+v", rec.Signal)
	}
	if inv.gotSig == nil {
		t.Fatal("investigator should receive the signal")
	}
}

func TestDeepDiveSignalFailureIsTolerated(t *testing.T) {
	chain := "solana"
	tok := testToken(func(tok *entity.Token) { tok.Chain = &chain })

	inv := &fakeInvestigator{report: "r"}
	sigs := &fakeSignals{err: errors.New("rpc down")}
	proc := newTestProcessor(&fakeClassifier{}, inv, sigs)

	rec := proc.Process(context.Background(), recordFor(entity.StageDeepDive, tok))
	if rec.Status != OutcomePassed {
		t.Fatalf("signal failure must not fail the stage, got %q (%s)", rec.Status, rec.ErrorMsg)
	}
	if rec.Signal != nil {
		t.Fatal("failed signal should not be attached")
	}
}

func TestDeepDiveSkipsSignalForUnsupportedChain(t *testing.T) {
	chain := "bsc"
	tok := testToken(func(tok *entity.Token) { tok.Chain = &chain })

	inv := &fakeInvestigator{report: "r"}
	sigs := &fakeSignals{sig: entity.OnchainSignal{IsAlpha: true}}
	proc := newTestProcessor(&fakeClassifier{}, inv, sigs)

	rec := proc.Process(context.Background(), recordFor(entity.StageDeepDive, tok))
	if rec.Signal != nil {
		t.Fatal("signal lookup should be restricted to supported chains")
	}
	if rec.Status != OutcomePassed {
		t.Fatalf("status = %q, want passed", rec.Status)
	}
}

func TestDeepDiveInvestigatorError(t *testing.T) {
	inv := &fakeInvestigator{err: errors.New("deadline exceeded")}
	proc := newTestProcessor(&fakeClassifier{}, inv, nil)

	rec := proc.Process(context.Background(), recordFor(entity.StageDeepDive, testToken(nil)))
	if rec.Status != OutcomeError || rec.ErrorMsg != "deadline exceeded" {
		t.Fatalf("got (%q,%q), want error with message preserved", rec.Status, rec.ErrorMsg)
	}
}
