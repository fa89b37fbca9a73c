// Package reconcile decides whether a slip corresponds to a stored incoming
// transfer and, when asked, marks that transfer as reconciled.
//
// One call runs retrieval, strict filtering, scoring and the status decision
// synchronously, then optionally writes back. The store session is held for
// the whole call and released on every exit path.
package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"github.com/eshaffer321/slipcheck/internal/domain/matcher"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/storage"
	"github.com/google/uuid"
)

const (
	msgNoRows           = "no rows returned for the provided filters"
	msgStoreUnavailable = "transaction store unavailable"
	msgLookupFailed     = "candidate lookup failed"
)

// Reconciler runs reconciliation calls against a store. It keeps no state
// between calls and is safe for concurrent use.
type Reconciler struct {
	repo    storage.Repository
	matcher *matcher.Matcher
	logger  *slog.Logger
	newID   func() string
}

// NewReconciler creates a reconciler with the default matcher weights.
func NewReconciler(repo storage.Repository, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:    repo,
		matcher: matcher.NewMatcher(matcher.DefaultConfig()),
		logger:  logger,
		newID:   uuid.NewString,
	}
}

type scoredCandidate struct {
	candidate transaction.Candidate
	score     float64
}

// Reconcile matches q against the store. The only error returned is
// transaction.ErrInvalidQuery; every other failure is reported inside the
// result so callers always receive a decision.
func (r *Reconciler) Reconcile(ctx context.Context, q transaction.SlipQuery, opts Options) (*MatchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	result := &MatchResult{
		RequestID:  opts.RequestID,
		Candidates: []matcher.Diagnostic{},
	}
	if result.RequestID == "" {
		result.RequestID = r.newID()
	}
	log := r.logger.With("request_id", result.RequestID)

	sess, err := r.repo.Session(ctx)
	if err != nil {
		log.Error("Failed to open store session", "error", err)
		return storeFailure(result, msgStoreUnavailable, err), nil
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("Failed to release store session", "error", err)
		}
	}()

	loose, err := sess.FindCandidates(ctx, q)
	if err != nil {
		log.Error("Candidate lookup failed", "error", err)
		return storeFailure(result, msgLookupFailed, err), nil
	}
	if len(loose) == 0 {
		result.Status = StatusNotFound
		result.Message = msgNoRows
		log.Info("No candidates", "amount", q.Amount.String(), "date", q.TransferDate.Format("2006-01-02"))
		return result, nil
	}

	// Keep only strict passers when there are any; otherwise report on every
	// loose candidate so each rejection is explained.
	working, _ := r.matcher.FilterStrict(loose, q)
	strictCount := len(working)
	if strictCount == 0 {
		working = loose
	}

	ranked := r.rank(working)
	best := ranked[0]
	result.Status = decide(best.candidate, len(ranked), q.Tolerances)

	for _, s := range ranked {
		ev := r.matcher.Evaluate(s.candidate, q)
		score := s.score
		result.Candidates = append(result.Candidates, r.matcher.Diagnose(s.candidate, q, ev, &score))
	}
	bestDiag := result.Candidates[0]
	result.BestMatch = &bestDiag
	bestScore := best.score
	result.BestScore = &bestScore

	if result.Status == StatusMatched && opts.AutoReconcile {
		result.Reconciliation = r.writeBack(ctx, sess, best.candidate, opts.CallerID, log)
	}

	log.Info("Slip decided",
		"status", result.Status,
		"loose", len(loose),
		"strict", strictCount,
		"best_id", logID(bestDiag.ID),
		"best_score", best.score,
	)
	return result, nil
}

// rank scores every candidate and sorts ascending. Equal scores keep their
// retrieval order.
func (r *Reconciler) rank(cs []transaction.Candidate) []scoredCandidate {
	out := make([]scoredCandidate, len(cs))
	for i, c := range cs {
		out[i] = scoredCandidate{candidate: c, score: r.matcher.Score(c)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score < out[j].score
	})
	return out
}

// decide applies the status policy to the best candidate. A lone candidate
// is accepted when either the amount or the time is within tolerance.
func decide(best transaction.Candidate, remaining int, tol transaction.Tolerances) Status {
	amountOK := best.WithinAmount(tol.Amount)
	timeOK := best.WithinTime(tol.MatchTimeMinutes)

	switch {
	case amountOK && timeOK:
		return StatusMatched
	case remaining == 1:
		if amountOK || timeOK {
			return StatusMatched
		}
		return StatusPossible
	default:
		return StatusMultiple
	}
}

func storeFailure(result *MatchResult, msg string, err error) *MatchResult {
	result.Status = StatusNotFound
	result.Message = msg
	result.Error = err.Error()
	return result
}
