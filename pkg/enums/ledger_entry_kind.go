package enums

import "fmt"

// LedgerEntryKind maps to the ledger_entry_kind_enum enum in Postgres.
type LedgerEntryKind string

const (
	LedgerEntryKindCredit  LedgerEntryKind = "credit"
	LedgerEntryKindDebit   LedgerEntryKind = "debit"
	LedgerEntryKindRefund  LedgerEntryKind = "refund"
	LedgerEntryKindEarning LedgerEntryKind = "earning"
)

var validLedgerEntryKinds = []LedgerEntryKind{
	LedgerEntryKindCredit,
	LedgerEntryKindDebit,
	LedgerEntryKindRefund,
	LedgerEntryKindEarning,
}

// IsValid reports whether the value matches the canonical ledger entry kind enum.
func (k LedgerEntryKind) IsValid() bool {
	for _, candidate := range validLedgerEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseLedgerEntryKind converts raw input into LedgerEntryKind.
func ParseLedgerEntryKind(value string) (LedgerEntryKind, error) {
	for _, candidate := range validLedgerEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry kind %q", value)
}
