package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resilience-registry/models"

	"github.com/google/uuid"
)

// Outcome discriminates an engine result.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeConflict Outcome = "conflict"
	OutcomeRejected Outcome = "rejected"
	OutcomeNotFound Outcome = "not_found"
)

// Result is the typed response of every engine call. Bounty is set only
// on success; Reason/Detail only on rejection. A Conflict means the
// status-guarded write lost a race — the caller should re-read and decide
// whether to retry, never treat it as fatal.
type Result struct {
	Outcome  Outcome
	Bounty   *models.Bounty
	Previous Status // status the transition moved from, set on Apply success
	Reason   RejectReason
	Detail   string
}

func success(b *models.Bounty) Result { return Result{Outcome: OutcomeSuccess, Bounty: b} }

func rejected(rej *Rejection) Result {
	return Result{Outcome: OutcomeRejected, Reason: rej.Reason, Detail: rej.Detail}
}

// RealmResolver answers whether an actor owns a realm. Backed by the
// realm mirror table in production and a map fake in tests.
type RealmResolver interface {
	IsRealmOwner(ctx context.Context, realmReference, actorID string) (bool, error)
}

// CreateInput carries the write-once terms of a new bounty.
type CreateInput struct {
	CreatorID      string
	RealmReference string
	Title          string
	Description    string
	RewardAmount   float64
	ReleaseMode    string
	Milestones     []models.Milestone
}

// Engine orchestrates bounty transitions: load, validate, one conditional
// write. It never retries, never issues a second write, and never calls
// external services — a call either fully commits or has no effect.
type Engine struct {
	store  Store
	realms RealmResolver
	now    func() time.Time
}

func NewEngine(store Store, realms RealmResolver) *Engine {
	return &Engine{store: store, realms: realms, now: time.Now}
}

// Get is the plain read path.
func (e *Engine) Get(ctx context.Context, bountyID string) (Result, error) {
	b, err := e.store.Get(ctx, bountyID)
	if errors.Is(err, ErrNotFound) {
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return success(b), nil
}

// Create is the distinguished first transition. It races only against a
// duplicate id, so it uses insert-if-absent rather than a conditional
// update. The caller must own the referenced realm.
func (e *Engine) Create(ctx context.Context, in CreateInput) (Result, error) {
	if in.CreatorID == "" || in.RealmReference == "" {
		return rejected(&Rejection{Reason: ReasonInvalidPayload, Detail: "creatorId and realmReference are required"}), nil
	}
	if rej := ValidateTerms(in.Title, in.RewardAmount, in.ReleaseMode, in.Milestones); rej != nil {
		return rejected(rej), nil
	}

	owns, err := e.realms.IsRealmOwner(ctx, in.RealmReference, in.CreatorID)
	if err != nil {
		return Result{}, fmt.Errorf("realm ownership lookup: %w", err)
	}
	if !owns {
		return rejected(&Rejection{Reason: ReasonForbidden, Detail: "only the realm owner can create bounties"}), nil
	}

	b := &models.Bounty{
		ID:             uuid.NewString(),
		CreatorID:      in.CreatorID,
		RealmReference: in.RealmReference,
		Title:          in.Title,
		Description:    in.Description,
		RewardAmount:   in.RewardAmount,
		ReleaseMode:    in.ReleaseMode,
		Milestones:     models.MilestoneList(in.Milestones),
		Status:         string(StatusOpen),
		CreatedAt:      e.now(),
	}
	if err := e.store.Insert(ctx, b); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Result{Outcome: OutcomeConflict}, nil
		}
		return Result{}, fmt.Errorf("insert bounty: %w", err)
	}
	return success(b), nil
}

// Apply runs one lifecycle transition end to end:
//
//  1. load the bounty (NotFound if absent);
//  2. validate (status, action, actor, payload) — pure, no I/O;
//  3. one conditional write guarded by the status observed in step 1;
//  4. zero rows affected → Conflict: someone else moved the bounty first.
//
// At most one transition out of any given status value is ever committed,
// even under concurrent callers racing to claim the same open bounty.
// A non-nil error means an infrastructure fault (store failure, unknown
// action name), never a business-rule rejection.
func (e *Engine) Apply(ctx context.Context, bountyID string, action Action, actorID string, p Payload) (Result, error) {
	if !action.Known() {
		return Result{}, fmt.Errorf("unknown action %q", action)
	}
	if actorID == "" {
		return rejected(&Rejection{Reason: ReasonForbidden, Detail: "actor identity is required"}), nil
	}

	b, err := e.store.Get(ctx, bountyID)
	if errors.Is(err, ErrNotFound) {
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load bounty: %w", err)
	}

	now := e.now()
	decision, rej := Validate(b, action, actorID, p, now)
	if rej != nil {
		return rejected(rej), nil
	}

	observed := Status(b.Status)
	updated, err := e.store.ConditionalUpdate(ctx, b.ID, observed, decision.Next, decision.Patch)
	if err != nil {
		return Result{}, fmt.Errorf("conditional update: %w", err)
	}
	if !updated {
		return Result{Outcome: OutcomeConflict}, nil
	}

	// Project the committed state onto the copy loaded in step 1 instead
	// of re-reading: the guarded write already confirmed it applied.
	applyPatch(b, decision.Patch)
	b.Status = string(decision.Next)
	b.UpdatedAt = now
	return Result{Outcome: OutcomeSuccess, Bounty: b, Previous: observed}, nil
}
