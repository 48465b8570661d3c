package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goreconcile/internal/domain"
)

func TestEntryFromDomain(t *testing.T) {
	posted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &domain.Entry{
		ID:        "e-1",
		Name:      "MISC/0001",
		State:     domain.EntryStatePosted,
		PostedAt:  posted,
		Lines: []*domain.Line{
			{ID: "l-1", Debit: decimal.NewFromInt(100), AmountResidual: decimal.NewFromInt(100)},
		},
	}

	resp := EntryFromDomain(entry)

	assert.Equal(t, "posted", resp.State)
	require.NotNil(t, resp.PostedAt)
	assert.Equal(t, posted, *resp.PostedAt)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].Debit.Equal(decimal.NewFromInt(100)))
}

func TestEntryFromDomainDraftOmitsPostedAt(t *testing.T) {
	resp := EntryFromDomain(&domain.Entry{ID: "e-1", State: domain.EntryStateDraft})

	assert.Nil(t, resp.PostedAt)
	assert.Nil(t, resp.ReverseDate)
	assert.Empty(t, resp.Lines)
}

func TestLineFromDomainMaturity(t *testing.T) {
	maturity := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	with := LineFromDomain(&domain.Line{ID: "l-1", DateMaturity: maturity})
	require.NotNil(t, with.DateMaturity)
	assert.Equal(t, maturity, *with.DateMaturity)

	without := LineFromDomain(&domain.Line{ID: "l-2"})
	assert.Nil(t, without.DateMaturity)
}
