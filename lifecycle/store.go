package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"resilience-registry/models"
)

var (
	// ErrNotFound is returned by Store.Get for an unknown bounty id.
	ErrNotFound = errors.New("bounty not found")
	// ErrAlreadyExists is returned by Store.Insert when the id is taken.
	ErrAlreadyExists = errors.New("bounty already exists")
)

// Store is the narrow persistence contract the engine relies on. The only
// concurrency primitive is ConditionalUpdate: apply the patch to the row
// only if its status still equals expected, else report no rows affected.
// No locks, no leases, no cross-row transactions — transitions are always
// scoped to a single bounty row.
type Store interface {
	Get(ctx context.Context, id string) (*models.Bounty, error)
	Insert(ctx context.Context, b *models.Bounty) error
	ConditionalUpdate(ctx context.Context, id string, expected Status, next Status, patch map[string]interface{}) (bool, error)
}

// applyPatch applies a validator patch to an in-memory bounty, keyed by
// column name so the same patch feeds both the memory store and the SQL
// UPDATE. Unknown keys are a programming fault and are ignored on purpose
// rather than panicking.
func applyPatch(b *models.Bounty, patch map[string]interface{}) {
	for col, v := range patch {
		switch col {
		case "claimer_id":
			b.ClaimerID = v.(string)
		case "claimer_wallet":
			b.ClaimerWallet = v.(string)
		case "evidence_summary":
			b.EvidenceSummary = v.(string)
		case "evidence_links":
			b.EvidenceLinks = v.(models.StringList)
		case "escrow_address":
			b.EscrowAddress = v.(string)
		case "escrow_tx_signature":
			b.EscrowTxSignature = v.(string)
		case "governance_reference":
			b.GovernanceReference = v.(string)
		case "proposal_address":
			b.ProposalAddress = v.(string)
		case "release_tx_signature":
			b.ReleaseTxSignature = v.(string)
		case "claimed_at":
			b.ClaimedAt = timePtr(v)
		case "submitted_at":
			b.SubmittedAt = timePtr(v)
		case "resolved_at":
			b.ResolvedAt = timePtr(v)
		case "funded_at":
			b.FundedAt = timePtr(v)
		case "paid_at":
			b.PaidAt = timePtr(v)
		}
	}
}

func timePtr(v interface{}) *time.Time {
	t := v.(time.Time)
	return &t
}

// MemoryStore is the reference Store used by tests: a mutex-guarded map
// with the same conditional-update semantics as the SQL store.
type MemoryStore struct {
	mu       sync.Mutex
	bounties map[string]*models.Bounty
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bounties: make(map[string]*models.Bounty)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) Insert(ctx context.Context, b *models.Bounty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bounties[b.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *b
	s.bounties[b.ID] = &cp
	return nil
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, id string, expected Status, next Status, patch map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bounties[id]
	if !ok || Status(b.Status) != expected {
		return false, nil
	}
	applyPatch(b, patch)
	b.Status = string(next)
	b.UpdatedAt = time.Now()
	return true, nil
}
