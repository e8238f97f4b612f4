// Package pipeline orchestrates the end-to-end verification: fetch,
// assemble, extract, query, parse, score.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmallek/copycheck/internal/claims"
	"github.com/jmallek/copycheck/internal/evidence"
	"github.com/jmallek/copycheck/internal/fetch"
	"github.com/jmallek/copycheck/internal/grounding"
	"github.com/jmallek/copycheck/internal/llm"
	"github.com/jmallek/copycheck/internal/model"
	"github.com/jmallek/copycheck/internal/score"
	"github.com/jmallek/copycheck/internal/verdict"
)

// Stage identifies a step of the verification state machine
type Stage string

const (
	StageFetching   Stage = "FETCHING"
	StageAssembling Stage = "ASSEMBLING"
	StageExtracting Stage = "EXTRACTING"
	StageQuerying   Stage = "QUERYING"
	StageParsing    Stage = "PARSING"
	StageScored     Stage = "SCORED"
	StageFailed     Stage = "FAILED"
)

// Request is the input contract for one verification
type Request struct {
	// AdCopy is the machine-generated advertising copy under test
	AdCopy string

	// URLs are the reference pages to grade against
	URLs []string

	// Documents is an optional pre-supplied document bundle. When set,
	// fetching is skipped entirely.
	Documents []model.SourceDocument
}

// Pipeline sequences the verification stages and owns the wall-clock
// budget. One pipeline serves many requests; all per-request state lives in
// locals, so concurrent Verify calls do not interfere.
type Pipeline struct {
	fetcher   *fetch.Fetcher
	assembler *evidence.Assembler
	extractor *claims.Extractor
	client    *grounding.Client
	scorer    *score.Scorer
	cfg       *model.Config
}

// New creates a pipeline from configuration and a model provider
func New(cfg *model.Config, provider llm.Provider) *Pipeline {
	return &Pipeline{
		fetcher:   fetch.NewFetcher(cfg.HTTP),
		assembler: evidence.NewAssembler(cfg.Evidence),
		extractor: claims.NewExtractor(cfg.Claims, provider),
		client:    grounding.NewClient(provider, cfg.LLM),
		scorer:    score.NewScorer(cfg.Thresholds),
		cfg:       cfg,
	}
}

// Verify runs the full pipeline. The caller always receives a report:
// either a scored one (possibly NEEDS_REVIEW with diagnostics) or a FAILED
// one with a human-readable reason. Cancellation of ctx propagates to every
// in-flight fetch and model call.
func (p *Pipeline) Verify(ctx context.Context, req Request) *model.VerificationReport {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.Budget)
	defer cancel()

	report := &model.VerificationReport{
		AdCopy:    req.AdCopy,
		CheckedAt: start.UTC(),
	}
	if len(req.URLs) > 0 {
		report.TargetURL = req.URLs[0]
	}

	// FETCHING. Partial failure degrades to partial evidence; only zero
	// fetched pages is fatal.
	docs := req.Documents
	if len(docs) == 0 {
		var failures []model.PageFailure
		docs, failures = p.fetcher.FetchAll(ctx, req.URLs)
		report.PageFailures = failures
	}
	if len(docs) == 0 {
		return p.fail(report, StageFetching, "no reference pages could be fetched", start)
	}

	// ASSEMBLING
	ev, err := p.assembler.Assemble(docs, req.AdCopy)
	if err != nil {
		return p.fail(report, StageAssembling, err.Error(), start)
	}

	// EXTRACTING
	claimList, err := p.extractor.Extract(ctx, req.AdCopy)
	if err != nil {
		return p.fail(report, StageExtracting, err.Error(), start)
	}
	if len(claimList) == 0 {
		// Vacuous truth: nothing checkable, so no model call is made
		report.Score = 1.0
		report.Verdict = model.VerdictPass
		report.Latency = time.Since(start)
		return report
	}

	// QUERYING
	completion, err := p.query(ctx, req.AdCopy, claimList, ev, docs)
	if err != nil {
		return p.fail(report, StageQuerying, err.Error(), start)
	}

	// PARSING. Malformed output degrades the affected claims to
	// UNVERIFIABLE instead of discarding the report.
	verdicts, tone, err := verdict.Parse(completion, claimList)
	if err != nil {
		verdicts = verdict.Unverifiable(claimList)
		tone = ""
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("model output could not be parsed; claims degraded to UNVERIFIABLE: %v", err))
	}

	// SCORED
	report.Verdicts = verdicts
	report.ToneNotes = tone
	report.Score, report.Verdict = p.scorer.Aggregate(verdicts)
	report.Latency = time.Since(start)

	return report
}

// query performs the grounding call. On CONTEXT_OVERFLOW the evidence set
// is re-packed at half the budget and the call retried once; a second
// overflow is fatal.
func (p *Pipeline) query(ctx context.Context, adCopy string, claimList []model.Claim, ev model.EvidenceSet, docs []model.SourceDocument) (string, error) {
	q := grounding.Query{
		AdCopy:   adCopy,
		Claims:   claimList,
		Evidence: ev,
		Tone:     p.cfg.LLM.Tone,
	}

	completion, err := p.client.Verify(ctx, q)
	if err == nil {
		return completion, nil
	}

	var merr *model.ModelError
	if errors.As(err, &merr) && merr.Kind == model.ModelContextOverflow {
		smaller, aerr := p.assembler.WithBudget(p.assembler.Budget() / 2).Assemble(docs, adCopy)
		if aerr != nil {
			return "", err
		}
		q.Evidence = smaller
		return p.client.Verify(ctx, q)
	}

	return "", err
}

// fail finalizes a report in the terminal FAILED state. No score is emitted.
func (p *Pipeline) fail(report *model.VerificationReport, stage Stage, reason string, start time.Time) *model.VerificationReport {
	report.Failed = true
	report.FailureStage = string(stage)
	report.FailureReason = reason
	report.Latency = time.Since(start)
	return report
}
