package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateBalances(t *testing.T) {
	t.Run("OnlyAvailableCommissionsCount", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 500},
			{ID: 2, EntryType: EntryTypeCommission, Status: EntryStatusPending, Currency: "USD", AmountCents: 300},
			{ID: 3, EntryType: EntryTypeCommission, Status: EntryStatusCanceled, Currency: "USD", AmountCents: 200},
			{ID: 4, EntryType: EntryTypeCommission, Status: EntryStatusReversed, Currency: "USD", AmountCents: 100},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(500), report.Balances["USD"])
		assert.Empty(t, report.Debt)
		assert.Empty(t, report.Warnings)
	})

	t.Run("PaidRedeemDebitsBalance", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 1500},
			{ID: 2, EntryType: EntryTypeRedeem, Status: EntryStatusPaid, Currency: "USD", AmountCents: -1000},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(500), report.Balances["USD"])
	})

	t.Run("NegativeNetClampsToZeroAndAccruesDebt", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 500},
			{ID: 2, EntryType: EntryTypeRedeem, Status: EntryStatusPaid, Currency: "USD", AmountCents: -1000},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(0), report.Balances["USD"])
		assert.Equal(t, int64(500), report.Debt["USD"])
		assert.Contains(t, report.Warnings, "negative_balance_clamped:USD")
	})

	t.Run("ReversedAdjustmentStillCounts", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 1000},
			{ID: 2, EntryType: EntryTypeAdjustment, Status: EntryStatusReversed, Currency: "USD", AmountCents: -400},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(600), report.Balances["USD"])
		assert.Equal(t, int64(400), report.ReversedAdjustmentCents["USD"])
	})

	t.Run("CurrenciesAreIndependent", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 700},
			{ID: 2, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "EUR", AmountCents: 300},
			{ID: 3, EntryType: EntryTypeRedeem, Status: EntryStatusPaid, Currency: "EUR", AmountCents: -800},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(700), report.Balances["USD"])
		assert.Equal(t, int64(0), report.Balances["EUR"])
		assert.Equal(t, int64(500), report.Debt["EUR"])
		assert.NotContains(t, report.Warnings, "negative_balance_clamped:USD")
	})

	t.Run("UnknownEntryTypeWarnsInsteadOfPanicking", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryType("BONUS"), Status: EntryStatusAvailable, Currency: "USD", AmountCents: 100},
			{ID: 2, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 200},
		}

		report := AggregateBalances(entries)
		assert.Equal(t, int64(200), report.Balances["USD"])
		assert.Len(t, report.Warnings, 1)
	})

	t.Run("DeterministicAcrossOrderings", func(t *testing.T) {
		entries := []LedgerEntry{
			{ID: 1, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "USD", AmountCents: 500},
			{ID: 2, EntryType: EntryTypeRedeem, Status: EntryStatusPaid, Currency: "USD", AmountCents: -700},
			{ID: 3, EntryType: EntryTypeCommission, Status: EntryStatusAvailable, Currency: "EUR", AmountCents: 900},
		}
		reversed := []LedgerEntry{entries[2], entries[1], entries[0]}

		a := AggregateBalances(entries)
		b := AggregateBalances(reversed)
		assert.Equal(t, a.Balances, b.Balances)
		assert.Equal(t, a.Debt, b.Debt)
		assert.Equal(t, a.Warnings, b.Warnings)
	})

	t.Run("EmptyLedger", func(t *testing.T) {
		report := AggregateBalances(nil)
		assert.Empty(t, report.Balances)
		assert.Empty(t, report.Debt)
		assert.Empty(t, report.Warnings)
	})
}

func TestBalanceDeltas(t *testing.T) {
	t.Run("NoDrift", func(t *testing.T) {
		fresh := &BalanceReport{
			Balances: map[string]int64{"USD": 500},
			Debt:     map[string]int64{},
		}
		balanceDeltas, debtDeltas := BalanceDeltas(map[string]int64{"USD": 500}, map[string]int64{}, fresh)
		assert.Empty(t, balanceDeltas)
		assert.Empty(t, debtDeltas)
	})

	t.Run("DriftInBothDirections", func(t *testing.T) {
		fresh := &BalanceReport{
			Balances: map[string]int64{"USD": 300, "EUR": 100},
			Debt:     map[string]int64{"USD": 50},
		}
		cachedBalances := map[string]int64{"USD": 500, "GBP": 40}
		cachedDebt := map[string]int64{}

		balanceDeltas, debtDeltas := BalanceDeltas(cachedBalances, cachedDebt, fresh)
		assert.Equal(t, int64(-200), balanceDeltas["USD"])
		assert.Equal(t, int64(100), balanceDeltas["EUR"])
		assert.Equal(t, int64(-40), balanceDeltas["GBP"])
		assert.Equal(t, int64(50), debtDeltas["USD"])
	})
}
