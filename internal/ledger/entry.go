package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CashRefAccountID is the ref_account_id sentinel for cash legs, which
// concern no operational account.
const CashRefAccountID = "0"

// Leg is one debit-or-credit row to be written into a batch. Exactly one of
// Debit/Credit is nonzero.
type Leg struct {
	AccountCode  string
	RefAccountID string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Narration    string
}

// Entry collects the legs of one posting invocation and enforces the
// debit==credit invariant before anything touches the database. Workflows
// build an Entry instead of emitting paired inserts by hand, so an
// unmatched leg cannot slip through a copy-paste path.
//
// TRANSFER postings are the exception: their counterparty legs arrive in
// later invocations appending to the same PENDING batch, so a partial
// entry skips the per-invocation balance check. The batch as a whole is
// still checked before it can leave PENDING.
type Entry struct {
	legs    []Leg
	partial bool
}

func NewEntry() *Entry {
	return &Entry{}
}

// Debit appends a debit leg.
func (e *Entry) Debit(accountCode, refAccountID string, amount decimal.Decimal, narration string) *Entry {
	e.legs = append(e.legs, Leg{
		AccountCode:  accountCode,
		RefAccountID: refAccountID,
		Debit:        amount,
		Narration:    narration,
	})
	return e
}

// Credit appends a credit leg.
func (e *Entry) Credit(accountCode, refAccountID string, amount decimal.Decimal, narration string) *Entry {
	e.legs = append(e.legs, Leg{
		AccountCode:  accountCode,
		RefAccountID: refAccountID,
		Credit:       amount,
		Narration:    narration,
	})
	return e
}

// AllowPartial marks the entry as one side of a multi-invocation TRANSFER
// posting, exempting it from the per-invocation balance check.
func (e *Entry) AllowPartial() *Entry {
	e.partial = true
	return e
}

// Legs validates the entry and returns its legs in append order.
func (e *Entry) Legs() ([]Leg, error) {
	if len(e.legs) == 0 {
		return nil, fmt.Errorf("%w: entry has no legs", ErrUnbalancedEntry)
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, leg := range e.legs {
		debitSet := leg.Debit.IsPositive()
		creditSet := leg.Credit.IsPositive()
		if debitSet == creditSet {
			return nil, fmt.Errorf("%w: leg %d must carry exactly one positive side (debit=%s credit=%s)",
				ErrUnbalancedEntry, i, leg.Debit, leg.Credit)
		}
		if leg.AccountCode == "" {
			return nil, fmt.Errorf("%w: leg %d has no GL account", ErrUnbalancedEntry, i)
		}
		totalDebit = totalDebit.Add(leg.Debit)
		totalCredit = totalCredit.Add(leg.Credit)
	}

	if !e.partial && !totalDebit.Equal(totalCredit) {
		return nil, fmt.Errorf("%w: debits %s != credits %s", ErrUnbalancedEntry, totalDebit, totalCredit)
	}
	return e.legs, nil
}
