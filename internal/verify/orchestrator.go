package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/retrieval"
	"github.com/pkozlov/claimcheck/internal/store"
	"github.com/pkozlov/claimcheck/internal/worker"
)

// verdictStore is the slice of the persistence layer the orchestrator needs.
type verdictStore interface {
	ClaimsByQuarters(ctx context.Context, ticker string, quarters [][2]int) ([]store.ClaimWithVerdict, error)
	UpsertVerdict(ctx context.Context, v model.Verdict) error
	DeleteVerdicts(ctx context.Context, claimIDs []string) error
	CreateJob(ctx context.Context, message string) (string, error)
	UpdateJob(ctx context.Context, id string, status store.JobStatus, progress float64, message string) error
}

// EvidenceSource assembles evidence context for the generative tier.
type EvidenceSource interface {
	BuildForClaim(ctx context.Context, claim model.Claim) ([]retrieval.Candidate, error)
}

// Orchestrator runs each claim through the tiers in order: the deterministic
// check first, retrieval plus the generative tier only when it abstains, and
// the misleading-framing pass on every verdict regardless of which tier
// produced it.
type Orchestrator struct {
	store    verdictStore
	det      *DeterministicVerifier
	gen      *GenerativeVerifier
	detector *MisleadingDetector
	contexts EvidenceSource
	limiter  *worker.Limiter
	logger   *slog.Logger
}

// NewOrchestrator wires the verification tiers together. contexts may be nil
// when no evidence index has been loaded; the generative tier then runs
// without retrieved context.
func NewOrchestrator(st verdictStore, det *DeterministicVerifier, gen *GenerativeVerifier,
	detector *MisleadingDetector, contexts EvidenceSource, limiter *worker.Limiter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    st,
		det:      det,
		gen:      gen,
		detector: detector,
		contexts: contexts,
		limiter:  limiter,
		logger:   logger,
	}
}

// VerifyClaim runs the full tier sequence for one claim.
func (o *Orchestrator) VerifyClaim(ctx context.Context, claim model.Claim) (model.Verdict, error) {
	verdict, err := o.det.Verify(ctx, claim)
	switch {
	case err == nil:
		o.logger.Debug("deterministic verdict", "claim_id", claim.ID, "label", verdict.Label)
	case errors.Is(err, errAbstain):
		o.logger.Info("deterministic tier abstained, falling back",
			"claim_id", claim.ID, "reason", err)
		v := o.generative(ctx, claim)
		verdict = &v
	default:
		return model.Verdict{}, fmt.Errorf("verify claim %s: %w", claim.ID, err)
	}

	// Framing heuristics run on every verdict: a numerically accurate claim
	// can still be misleading.
	flags := o.detector.Detect(ctx, claim.Ticker, claim.Year, claim.Quarter, claim.Metric)
	o.detector.Apply(verdict, flags)

	return *verdict, nil
}

func (o *Orchestrator) generative(ctx context.Context, claim model.Claim) model.Verdict {
	evidence := ""
	if o.contexts != nil {
		items, err := o.contexts.BuildForClaim(ctx, claim)
		if err != nil {
			o.logger.Warn("context retrieval failed, verifying without evidence",
				"claim_id", claim.ID, "error", err)
		} else {
			evidence = retrieval.Render(items)
		}
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, o.gen.provider.Name()); err != nil {
			return model.Verdict{
				ClaimID:      claim.ID,
				Label:        model.LabelUnverifiable,
				ClaimedValue: claim.Value,
				Explanation:  fmt.Sprintf("Verification aborted: %v", err),
			}
		}
	}
	return o.gen.Verify(ctx, claim, evidence)
}

// VerifyQuarters verifies all stored claims for a company over the given
// (year, quarter) pairs. Claims that already carry a verdict are reused
// unless force is set, in which case their verdicts are deleted first and
// every claim is re-verified.
func (o *Orchestrator) VerifyQuarters(ctx context.Context, ticker string, quarters [][2]int, force bool) (*model.BatchResult, error) {
	rows, err := o.store.ClaimsByQuarters(ctx, ticker, quarters)
	if err != nil {
		return nil, fmt.Errorf("load claims for %s: %w", ticker, err)
	}

	jobID, err := o.store.CreateJob(ctx, fmt.Sprintf("verify %s (%d claims)", ticker, len(rows)))
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := o.store.UpdateJob(ctx, jobID, store.JobRunning, 0, "verification started"); err != nil {
		o.logger.Warn("job update failed", "job_id", jobID, "error", err)
	}

	if force {
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			if row.Verdict != nil {
				ids = append(ids, row.Claim.ID)
			}
		}
		if err := o.store.DeleteVerdicts(ctx, ids); err != nil {
			return nil, fmt.Errorf("clear prior verdicts: %w", err)
		}
	}

	result := &model.BatchResult{Company: ticker}
	if len(quarters) > 0 {
		result.Quarter = fmt.Sprintf("%dQ%d", quarters[0][0], quarters[0][1])
	}

	for i, row := range rows {
		result.Claims = append(result.Claims, row.Claim)

		if !force && row.Verdict != nil {
			o.logger.Debug("reusing stored verdict", "claim_id", row.Claim.ID, "label", row.Verdict.Label)
			result.Verdicts = append(result.Verdicts, *row.Verdict)
			continue
		}

		verdict, err := o.VerifyClaim(ctx, row.Claim)
		if err != nil {
			o.failJob(jobID, err)
			return nil, err
		}
		if err := o.store.UpsertVerdict(ctx, verdict); err != nil {
			o.failJob(jobID, err)
			return nil, fmt.Errorf("store verdict for %s: %w", row.Claim.ID, err)
		}
		result.Verdicts = append(result.Verdicts, verdict)

		progress := float64(i+1) / float64(len(rows))
		if err := o.store.UpdateJob(ctx, jobID, store.JobRunning, progress,
			fmt.Sprintf("verified %d/%d claims", i+1, len(rows))); err != nil {
			o.logger.Warn("job update failed", "job_id", jobID, "error", err)
		}
	}

	result.Summary = model.Summarize(result.Verdicts)
	if err := o.store.UpdateJob(ctx, jobID, store.JobCompleted, 1, "verification completed"); err != nil {
		o.logger.Warn("job update failed", "job_id", jobID, "error", err)
	}

	o.logger.Info("batch verification finished",
		"ticker", ticker,
		"claims", result.Summary.TotalClaims,
		"accuracy", result.Summary.AccuracyScore)
	return result, nil
}

func (o *Orchestrator) failJob(jobID string, cause error) {
	// Best-effort bookkeeping outside the request context.
	if err := o.store.UpdateJob(context.Background(), jobID, store.JobFailed, 0, cause.Error()); err != nil {
		o.logger.Warn("job update failed", "job_id", jobID, "error", err)
	}
}

// Runner binds quarter selection and the force flag into the single-ticker
// interface the batch worker pool expects.
func (o *Orchestrator) Runner(quarters [][2]int, force bool) worker.Verifier {
	return &companyRunner{orch: o, quarters: quarters, force: force}
}

type companyRunner struct {
	orch     *Orchestrator
	quarters [][2]int
	force    bool
}

func (r *companyRunner) VerifyCompany(ctx context.Context, ticker string) (*model.BatchResult, error) {
	return r.orch.VerifyQuarters(ctx, ticker, r.quarters, r.force)
}
