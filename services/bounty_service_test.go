package services

import (
	"testing"

	"resilience-registry/lifecycle"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestRejectionStatus(t *testing.T) {
	assert.Equal(t, fiber.StatusForbidden, rejectionStatus(lifecycle.ReasonForbidden))
	assert.Equal(t, fiber.StatusBadRequest, rejectionStatus(lifecycle.ReasonInvalidPayload))
	assert.Equal(t, fiber.StatusConflict, rejectionStatus(lifecycle.ReasonWrongState))
}

func TestTransitionReqPayloadMapping(t *testing.T) {
	req := transitionReq{
		ClaimerWallet:      "wallet",
		EvidenceSummary:    "summary",
		EvidenceLinks:      []string{"https://example.com/pr/1"},
		EscrowAddress:      "escrow",
		EscrowTxSignature:  "escrow-sig",
		ProposalAddress:    "proposal",
		ReleaseTxSignature: "release-sig",
	}
	p := req.payload()
	assert.Equal(t, "wallet", p.ClaimerWallet)
	assert.Equal(t, "summary", p.EvidenceSummary)
	assert.Equal(t, []string{"https://example.com/pr/1"}, p.EvidenceLinks)
	assert.Equal(t, "escrow", p.EscrowAddress)
	assert.Equal(t, "escrow-sig", p.EscrowTxSignature)
	assert.Equal(t, "proposal", p.ProposalAddress)
	assert.Equal(t, "release-sig", p.ReleaseTxSignature)
}
