package lifecycle

import (
	"strings"
	"testing"
	"time"

	"resilience-registry/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creatorID = "11111111-1111-1111-1111-111111111111"
	claimerID = "22222222-2222-2222-2222-222222222222"
	otherID   = "33333333-3333-3333-3333-333333333333"
)

func bountyIn(status Status) *models.Bounty {
	b := &models.Bounty{
		ID:             "b-1",
		CreatorID:      creatorID,
		RealmReference: "realm-1",
		Title:          "Ship the indexer",
		RewardAmount:   500,
		ReleaseMode:    models.ReleaseModeDAO,
		Status:         string(status),
	}
	if status != StatusOpen {
		b.ClaimerID = claimerID
		b.ClaimerWallet = "wallet-claimer"
	}
	return b
}

func TestValidateTransitionTable(t *testing.T) {
	now := time.Now()
	okPayload := Payload{
		ClaimerWallet:      "wallet-claimer",
		EvidenceSummary:    "done, see links",
		EvidenceLinks:      []string{"https://github.com/x/pr/1"},
		EscrowAddress:      "escrow-addr",
		EscrowTxSignature:  "escrow-sig",
		ProposalAddress:    "proposal-addr",
		ReleaseTxSignature: "release-sig",
	}

	tests := []struct {
		name       string
		status     Status
		action     Action
		actor      string
		payload    Payload
		wantNext   Status
		wantReason RejectReason // empty means allowed
	}{
		{"claim from open", StatusOpen, ActionClaim, claimerID, okPayload, StatusClaimed, ""},
		{"creator cannot claim own bounty", StatusOpen, ActionClaim, creatorID, okPayload, "", ReasonForbidden},
		{"claim from claimed is wrong state", StatusClaimed, ActionClaim, otherID, okPayload, "", ReasonWrongState},
		{"claim without wallet", StatusOpen, ActionClaim, claimerID, Payload{}, "", ReasonInvalidPayload},

		{"submit evidence by claimer", StatusClaimed, ActionSubmitEvidence, claimerID, okPayload, StatusSubmitted, ""},
		{"submit evidence by stranger", StatusClaimed, ActionSubmitEvidence, otherID, okPayload, "", ReasonForbidden},
		{"submit evidence by creator", StatusClaimed, ActionSubmitEvidence, creatorID, okPayload, "", ReasonForbidden},
		{"submit evidence from open", StatusOpen, ActionSubmitEvidence, claimerID, okPayload, "", ReasonWrongState},

		{"approve by creator", StatusSubmitted, ActionApprove, creatorID, Payload{}, StatusApproved, ""},
		{"approve by claimer", StatusSubmitted, ActionApprove, claimerID, Payload{}, "", ReasonForbidden},
		{"approve while open is wrong state even for creator", StatusOpen, ActionApprove, creatorID, Payload{}, "", ReasonWrongState},
		{"reject by creator", StatusSubmitted, ActionReject, creatorID, Payload{}, StatusRejected, ""},
		{"reject by stranger", StatusSubmitted, ActionReject, otherID, Payload{}, "", ReasonForbidden},

		{"fund escrow by creator", StatusApproved, ActionFundEscrow, creatorID, okPayload, StatusFunded, ""},
		{"fund escrow by claimer", StatusApproved, ActionFundEscrow, claimerID, okPayload, "", ReasonForbidden},
		{"fund escrow without address", StatusApproved, ActionFundEscrow, creatorID, Payload{EscrowTxSignature: "sig"}, "", ReasonInvalidPayload},
		{"fund escrow without signature", StatusApproved, ActionFundEscrow, creatorID, Payload{EscrowAddress: "addr"}, "", ReasonInvalidPayload},

		{"link proposal by creator", StatusFunded, ActionLinkProposal, creatorID, okPayload, StatusVoting, ""},
		{"link proposal by claimer", StatusFunded, ActionLinkProposal, claimerID, okPayload, "", ReasonForbidden},
		{"link proposal from voting is wrong state", StatusVoting, ActionLinkProposal, creatorID, okPayload, "", ReasonWrongState},

		{"mark paid from funded by creator", StatusFunded, ActionMarkPaid, creatorID, okPayload, StatusPaid, ""},
		{"mark paid from voting by claimer", StatusVoting, ActionMarkPaid, claimerID, okPayload, StatusPaid, ""},
		{"mark paid by stranger on voting", StatusVoting, ActionMarkPaid, otherID, okPayload, "", ReasonForbidden},
		{"mark paid without release signature", StatusFunded, ActionMarkPaid, creatorID, Payload{}, "", ReasonInvalidPayload},
		{"mark paid on paid is wrong state", StatusPaid, ActionMarkPaid, creatorID, okPayload, "", ReasonWrongState},
		{"mark paid on rejected is wrong state", StatusRejected, ActionMarkPaid, creatorID, okPayload, "", ReasonWrongState},

		{"cancel escrow from funded", StatusFunded, ActionCancelEscrow, creatorID, okPayload, StatusRejected, ""},
		{"cancel escrow from voting", StatusVoting, ActionCancelEscrow, creatorID, okPayload, StatusRejected, ""},
		{"cancel escrow by claimer", StatusFunded, ActionCancelEscrow, claimerID, okPayload, "", ReasonForbidden},
		{"cancel escrow without refund proof", StatusFunded, ActionCancelEscrow, creatorID, Payload{}, "", ReasonInvalidPayload},
		{"cancel escrow from open is wrong state", StatusOpen, ActionCancelEscrow, creatorID, okPayload, "", ReasonWrongState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, rej := Validate(bountyIn(tt.status), tt.action, tt.actor, tt.payload, now)
			if tt.wantReason == "" {
				require.Nil(t, rej, "expected transition to be allowed")
				assert.Equal(t, tt.wantNext, decision.Next)
				// The status column is the engine's job, never the patch's.
				_, hasStatus := decision.Patch["status"]
				assert.False(t, hasStatus)
			} else {
				require.NotNil(t, rej, "expected transition to be rejected")
				assert.Equal(t, tt.wantReason, rej.Reason)
				assert.NotEmpty(t, rej.Detail)
			}
		})
	}
}

func TestValidateEvidenceLimits(t *testing.T) {
	now := time.Now()
	b := bountyIn(StatusClaimed)

	t.Run("summary over 2000 chars", func(t *testing.T) {
		p := Payload{EvidenceSummary: strings.Repeat("a", 2001)}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonInvalidPayload, rej.Reason)
		assert.Contains(t, rej.Detail, "evidenceSummary")
	})

	t.Run("summary at exactly 2000 chars is fine", func(t *testing.T) {
		p := Payload{EvidenceSummary: strings.Repeat("a", 2000)}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		assert.Nil(t, rej)
	})

	t.Run("more than 10 links", func(t *testing.T) {
		links := make([]string, 11)
		for i := range links {
			links[i] = "https://example.com/pr"
		}
		p := Payload{EvidenceSummary: "done", EvidenceLinks: links}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		require.NotNil(t, rej)
		assert.Contains(t, rej.Detail, "evidenceLinks")
	})

	t.Run("multibyte summary counts characters not bytes", func(t *testing.T) {
		// 1500 Cyrillic runes = 3000 bytes; well inside the 2000-char cap.
		p := Payload{EvidenceSummary: strings.Repeat("д", 1500)}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		assert.Nil(t, rej)
	})

	t.Run("multibyte summary over 2000 chars", func(t *testing.T) {
		p := Payload{EvidenceSummary: strings.Repeat("д", 2001)}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonInvalidPayload, rej.Reason)
		assert.Contains(t, rej.Detail, "evidenceSummary")
	})

	t.Run("link over 500 chars", func(t *testing.T) {
		p := Payload{EvidenceSummary: "done", EvidenceLinks: []string{strings.Repeat("x", 501)}}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		require.NotNil(t, rej)
		assert.Equal(t, ReasonInvalidPayload, rej.Reason)
	})

	t.Run("multibyte link at exactly 500 chars is fine", func(t *testing.T) {
		p := Payload{EvidenceSummary: "done", EvidenceLinks: []string{strings.Repeat("ф", 500)}}
		_, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		assert.Nil(t, rej)
	})

	t.Run("patch carries evidence fields", func(t *testing.T) {
		p := Payload{EvidenceSummary: "done", EvidenceLinks: []string{"https://example.com/pr/9"}}
		decision, rej := Validate(b, ActionSubmitEvidence, claimerID, p, now)
		require.Nil(t, rej)
		assert.Equal(t, "done", decision.Patch["evidence_summary"])
		assert.Equal(t, models.StringList{"https://example.com/pr/9"}, decision.Patch["evidence_links"])
	})
}

func TestValidateTerms(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		reward      float64
		mode        string
		milestones  []models.Milestone
		wantOK      bool
		wantInField string
	}{
		{"valid, no milestones", "Fix CI", 100, models.ReleaseModeDirect, nil, true, ""},
		{"valid, milestones sum to reward", "Audit", 500, models.ReleaseModeDAO,
			[]models.Milestone{{Title: "M1", AmountSOL: 300}, {Title: "M2", AmountSOL: 200}}, true, ""},
		{"empty title", "", 100, models.ReleaseModeDirect, nil, false, "title"},
		{"multibyte title at 200 chars", strings.Repeat("ü", 200), 100, models.ReleaseModeDirect, nil, true, ""},
		{"title over 200 chars", strings.Repeat("ü", 201), 100, models.ReleaseModeDirect, nil, false, "title"},
		{"zero reward", "Fix CI", 0, models.ReleaseModeDirect, nil, false, "rewardAmount"},
		{"negative reward", "Fix CI", -5, models.ReleaseModeDirect, nil, false, "rewardAmount"},
		{"bad release mode", "Fix CI", 100, "vibes", nil, false, "releaseMode"},
		{"milestone sum mismatch", "Audit", 500, models.ReleaseModeDAO,
			[]models.Milestone{{Title: "M1", AmountSOL: 300}, {Title: "M2", AmountSOL: 150}}, false, "milestones"},
		{"milestone with zero amount", "Audit", 500, models.ReleaseModeDAO,
			[]models.Milestone{{Title: "M1", AmountSOL: 0}, {Title: "M2", AmountSOL: 500}}, false, "milestones[0]"},
		{"milestone missing title", "Audit", 500, models.ReleaseModeDAO,
			[]models.Milestone{{Title: "", AmountSOL: 500}}, false, "milestones[0]"},
		{"sum within epsilon", "Audit", 0.3, models.ReleaseModeDAO,
			[]models.Milestone{{Title: "M1", AmountSOL: 0.1}, {Title: "M2", AmountSOL: 0.2}}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := ValidateTerms(tt.title, tt.reward, tt.mode, tt.milestones)
			if tt.wantOK {
				assert.Nil(t, rej)
			} else {
				require.NotNil(t, rej)
				assert.Equal(t, ReasonInvalidPayload, rej.Reason)
				assert.Contains(t, rej.Detail, tt.wantInField)
			}
		})
	}
}

func TestUnknownActionIsNotABusinessRejection(t *testing.T) {
	assert.False(t, Action("definitely_not_an_action").Known())
	assert.True(t, ActionClaim.Known())
}
