package usecase

import "math/big"

// feeBasisPoints is the engine-wide settlement fee: 3% of every settled term,
// rounded toward zero. Applied to the owner's share only; refunds are untaxed.
const feeBasisPoints = 300

// fee returns floor(amount * 3 / 100) for any amount >= 0, without overflow.
// feeOf(amount) + ownerShare(amount) == amount holds exactly.
func fee(amount int64) int64 {
	return mulDiv(amount, feeBasisPoints, 10_000)
}

// prorate returns the refund for an unused fraction of a term:
// floor(price * remainingSeconds / termSeconds).
func prorate(price, remainingSeconds, termSeconds int64) int64 {
	if remainingSeconds <= 0 {
		return 0
	}
	if remainingSeconds >= termSeconds {
		return price
	}
	return mulDiv(price, remainingSeconds, termSeconds)
}

// mulDiv computes floor(a*b/c) for non-negative inputs. The intermediate
// product can exceed int64 for ledger-scale amounts, so it goes through
// big.Int rather than trusting a*b not to wrap.
func mulDiv(a, b, c int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	var p big.Int
	p.Mul(big.NewInt(a), big.NewInt(b))
	p.Quo(&p, big.NewInt(c))
	return p.Int64()
}
