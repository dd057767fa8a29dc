package model

import (
	"time"

	"subscription-billing/internal/domain"
)

// Term is an enumerated billing period. New terms only need an entry in the
// termSeconds table; nothing else in the engine switches on the term value.
type Term string

const (
	TermOneSecond     Term = "one_second"     // testing only
	TermThirtySeconds Term = "thirty_seconds" // testing only
	TermOneWeek       Term = "one_week"
	TermThirtyDays    Term = "thirty_days"
	TermOneYear       Term = "one_year"
)

var termSeconds = map[Term]int64{
	TermOneSecond:     1,
	TermThirtySeconds: 30,
	TermOneWeek:       7 * 24 * 60 * 60,
	TermThirtyDays:    30 * 24 * 60 * 60,
	TermOneYear:       365 * 24 * 60 * 60,
}

// ParseTerm validates a wire/storage value against the known terms.
func ParseTerm(s string) (Term, error) {
	t := Term(s)
	if _, ok := termSeconds[t]; !ok {
		return "", domain.ErrInvalidArgument
	}
	return t, nil
}

// Seconds returns the fixed length of one billing term.
func (t Term) Seconds() int64 { return termSeconds[t] }

// Duration is Seconds as a time.Duration.
func (t Term) Duration() time.Duration { return time.Duration(t.Seconds()) * time.Second }

func (t Term) Valid() bool { _, ok := termSeconds[t]; return ok }
