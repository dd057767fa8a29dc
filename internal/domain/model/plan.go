package model

import (
	"time"

	"subscription-billing/internal/domain"
)

// Plan represents a billable offering: a fixed price per term, denominated in
// the smallest unit of a single settlement asset.
type Plan struct {
	ID                  string // derived address over (Owner, Code)
	Code                string // short identifier, unique per owner
	Owner               string // identity entitled to the settled funds (minus fee)
	Price               int64  // per term, smallest unit of Mint
	Mint                string // settlement asset identifier
	Term                Term
	SettlementAccount   string // token account controlled by the plan's escrow authority
	PayoutAccount       string // owner's receiving token account
	ActiveSubscriptions int32  // non-closed subscriptions; pure counter, never below zero
	CreatedAt           time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan. The caller supplies the derived
// address; the constructor only enforces field invariants.
func NewPlan(id, code, owner string, price int64, mint string, term Term, settlementAccount, payoutAccount string) (*Plan, error) {
	if id == "" || code == "" || owner == "" || mint == "" || settlementAccount == "" || payoutAccount == "" {
		return nil, domain.ErrInvalidArgument
	}
	if price <= 0 || !term.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:                  id,
		Code:                code,
		Owner:               owner,
		Price:               price,
		Mint:                mint,
		Term:                term,
		SettlementAccount:   settlementAccount,
		PayoutAccount:       payoutAccount,
		ActiveSubscriptions: 0,
		CreatedAt:           time.Now(),
	}, nil
}
