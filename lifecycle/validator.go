package lifecycle

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"resilience-registry/models"
)

// Payload field limits. Text limits count runes; chain fields are
// base58/signature strings checked in bytes against their columns.
const (
	MaxTitleLen           = 200
	MaxEvidenceSummaryLen = 2000
	MaxEvidenceLinks      = 10
	MaxEvidenceLinkLen    = 500
	MaxChainFieldLen      = 128 // addresses and tx signatures, stored verbatim

	// Milestone amounts are float64 SOL; their sum must match the reward
	// within this tolerance.
	MilestoneSumEpsilon = 1e-6
)

// RejectReason classifies a normal business-rule rejection.
type RejectReason string

const (
	ReasonWrongState     RejectReason = "wrong_state"
	ReasonForbidden      RejectReason = "forbidden"
	ReasonInvalidPayload RejectReason = "invalid_payload"
)

// Rejection is the validator's negative outcome. Detail names the
// offending field for invalid_payload so callers can render it.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// Payload carries the caller-supplied fields for a transition. Fields not
// required by the requested action are ignored.
type Payload struct {
	ClaimerWallet       string
	EvidenceSummary     string
	EvidenceLinks       []string
	EscrowAddress       string
	EscrowTxSignature   string
	ProposalAddress     string
	GovernanceReference string
	ReleaseTxSignature  string
}

// Decision is the validator's positive outcome: the next status plus the
// column patch the engine must write. The patch never includes the status
// column itself — the engine sets that as part of the guarded update.
type Decision struct {
	Next  Status
	Patch map[string]interface{}
}

// Validate checks one requested transition against the current bounty.
// Pure: no I/O, no clock reads (now is passed in). Check order is state,
// then actor, then payload — an action invalid from the current status is
// wrong_state even when the actor would also be unauthorized.
func Validate(b *models.Bounty, action Action, actorID string, p Payload, now time.Time) (Decision, *Rejection) {
	if !action.Known() {
		// Structurally malformed request; callers screen action names
		// before reaching here (Engine.Apply returns an error for this).
		return Decision{}, &Rejection{Reason: ReasonInvalidPayload, Detail: "unknown action"}
	}

	current := Status(b.Status)
	if !action.validFrom(current) {
		return Decision{}, &Rejection{
			Reason: ReasonWrongState,
			Detail: fmt.Sprintf("%s not allowed from status %q", action, current),
		}
	}

	switch action {
	case ActionClaim:
		if actorID == b.CreatorID {
			return Decision{}, &Rejection{Reason: ReasonForbidden, Detail: "creator cannot claim their own bounty"}
		}
		if rej := requireChainField("claimerWallet", p.ClaimerWallet); rej != nil {
			return Decision{}, rej
		}
		return Decision{
			Next: StatusClaimed,
			Patch: map[string]interface{}{
				"claimer_id":     actorID,
				"claimer_wallet": p.ClaimerWallet,
				"claimed_at":     now,
			},
		}, nil

	case ActionSubmitEvidence:
		if actorID != b.ClaimerID {
			return Decision{}, &Rejection{Reason: ReasonForbidden, Detail: "only the claimer can submit evidence"}
		}
		if p.EvidenceSummary == "" {
			return Decision{}, &Rejection{Reason: ReasonInvalidPayload, Detail: "evidenceSummary is required"}
		}
		if utf8.RuneCountInString(p.EvidenceSummary) > MaxEvidenceSummaryLen {
			return Decision{}, &Rejection{
				Reason: ReasonInvalidPayload,
				Detail: fmt.Sprintf("evidenceSummary exceeds %d characters", MaxEvidenceSummaryLen),
			}
		}
		if len(p.EvidenceLinks) > MaxEvidenceLinks {
			return Decision{}, &Rejection{
				Reason: ReasonInvalidPayload,
				Detail: fmt.Sprintf("evidenceLinks exceeds %d entries", MaxEvidenceLinks),
			}
		}
		for i, link := range p.EvidenceLinks {
			if link == "" || utf8.RuneCountInString(link) > MaxEvidenceLinkLen {
				return Decision{}, &Rejection{
					Reason: ReasonInvalidPayload,
					Detail: fmt.Sprintf("evidenceLinks[%d] must be 1-%d characters", i, MaxEvidenceLinkLen),
				}
			}
		}
		return Decision{
			Next: StatusSubmitted,
			Patch: map[string]interface{}{
				"evidence_summary": p.EvidenceSummary,
				"evidence_links":   models.StringList(p.EvidenceLinks),
				"submitted_at":     now,
			},
		}, nil

	case ActionApprove:
		if rej := requireCreator(b, actorID); rej != nil {
			return Decision{}, rej
		}
		return Decision{Next: StatusApproved, Patch: map[string]interface{}{"resolved_at": now}}, nil

	case ActionReject:
		if rej := requireCreator(b, actorID); rej != nil {
			return Decision{}, rej
		}
		return Decision{Next: StatusRejected, Patch: map[string]interface{}{"resolved_at": now}}, nil

	case ActionFundEscrow:
		if rej := requireCreator(b, actorID); rej != nil {
			return Decision{}, rej
		}
		if rej := requireChainField("escrowAddress", p.EscrowAddress); rej != nil {
			return Decision{}, rej
		}
		if rej := requireChainField("escrowTxSignature", p.EscrowTxSignature); rej != nil {
			return Decision{}, rej
		}
		return Decision{
			Next: StatusFunded,
			Patch: map[string]interface{}{
				"escrow_address":      p.EscrowAddress,
				"escrow_tx_signature": p.EscrowTxSignature,
				"funded_at":           now,
			},
		}, nil

	case ActionLinkProposal:
		if rej := requireCreator(b, actorID); rej != nil {
			return Decision{}, rej
		}
		if rej := requireChainField("proposalAddress", p.ProposalAddress); rej != nil {
			return Decision{}, rej
		}
		if p.GovernanceReference != "" && len(p.GovernanceReference) > MaxChainFieldLen {
			return Decision{}, &Rejection{Reason: ReasonInvalidPayload, Detail: "governanceReference too long"}
		}
		patch := map[string]interface{}{"proposal_address": p.ProposalAddress}
		if p.GovernanceReference != "" {
			patch["governance_reference"] = p.GovernanceReference
		}
		return Decision{Next: StatusVoting, Patch: patch}, nil

	case ActionMarkPaid:
		if actorID != b.CreatorID && actorID != b.ClaimerID {
			return Decision{}, &Rejection{Reason: ReasonForbidden, Detail: "only the creator or the claimer can mark a bounty paid"}
		}
		if rej := requireChainField("releaseTxSignature", p.ReleaseTxSignature); rej != nil {
			return Decision{}, rej
		}
		return Decision{
			Next: StatusPaid,
			Patch: map[string]interface{}{
				"release_tx_signature": p.ReleaseTxSignature,
				"paid_at":              now,
				"resolved_at":          now,
			},
		}, nil

	case ActionCancelEscrow:
		if rej := requireCreator(b, actorID); rej != nil {
			return Decision{}, rej
		}
		// releaseTxSignature carries the refund proof here.
		if rej := requireChainField("releaseTxSignature", p.ReleaseTxSignature); rej != nil {
			return Decision{}, rej
		}
		return Decision{
			Next: StatusRejected,
			Patch: map[string]interface{}{
				"release_tx_signature": p.ReleaseTxSignature,
				"resolved_at":          now,
			},
		}, nil
	}

	// unreachable: Known() covered every action above
	return Decision{}, &Rejection{Reason: ReasonInvalidPayload, Detail: "unknown action"}
}

func requireCreator(b *models.Bounty, actorID string) *Rejection {
	if actorID != b.CreatorID {
		return &Rejection{Reason: ReasonForbidden, Detail: "only the bounty creator can do this"}
	}
	return nil
}

// requireChainField validates an opaque on-chain string (address, tx
// signature, proposal pubkey). Stored verbatim, never checked against a
// ledger — only presence and a sane length.
func requireChainField(name, value string) *Rejection {
	if value == "" {
		return &Rejection{Reason: ReasonInvalidPayload, Detail: name + " is required"}
	}
	if len(value) > MaxChainFieldLen {
		return &Rejection{Reason: ReasonInvalidPayload, Detail: name + " too long"}
	}
	return nil
}

// ValidateTerms checks the creation-time terms: title, reward, release
// mode and the milestone schedule. Milestone amounts must sum to the
// reward when the schedule is non-empty; this is checked at creation only.
func ValidateTerms(title string, rewardAmount float64, releaseMode string, milestones []models.Milestone) *Rejection {
	if title == "" {
		return &Rejection{Reason: ReasonInvalidPayload, Detail: "title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return &Rejection{Reason: ReasonInvalidPayload, Detail: fmt.Sprintf("title exceeds %d characters", MaxTitleLen)}
	}
	if rewardAmount <= 0 {
		return &Rejection{Reason: ReasonInvalidPayload, Detail: "rewardAmount must be positive"}
	}
	switch releaseMode {
	case models.ReleaseModeDAO, models.ReleaseModeDirect, models.ReleaseModeMultisig:
	default:
		return &Rejection{Reason: ReasonInvalidPayload, Detail: "releaseMode must be one of dao, direct, multisig"}
	}
	if len(milestones) > 0 {
		var sum float64
		for i, m := range milestones {
			if m.Title == "" {
				return &Rejection{Reason: ReasonInvalidPayload, Detail: fmt.Sprintf("milestones[%d].title is required", i)}
			}
			if m.AmountSOL <= 0 {
				return &Rejection{Reason: ReasonInvalidPayload, Detail: fmt.Sprintf("milestones[%d].amount_sol must be positive", i)}
			}
			sum += m.AmountSOL
		}
		if math.Abs(sum-rewardAmount) > MilestoneSumEpsilon {
			return &Rejection{
				Reason: ReasonInvalidPayload,
				Detail: fmt.Sprintf("milestones sum %.9f does not equal rewardAmount %.9f", sum, rewardAmount),
			}
		}
	}
	return nil
}
