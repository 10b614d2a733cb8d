package models

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

type SignConvention struct {
	NormalBalance EntryType `json:"normal_balance"`
}

// AccountingStandard defines which entry type is "normal" for each account
// type. It is supplied by the caller at initialization time and never
// persisted.
type AccountingStandard struct {
	Name            string                         `json:"name"`
	SignConventions map[AccountType]SignConvention `json:"sign_conventions"`
}

// NormalBalance reports the normal balance for an account type. The second
// return is false when the standard has no convention for the type.
func (s *AccountingStandard) NormalBalance(t AccountType) (EntryType, bool) {
	conv, ok := s.SignConventions[t]
	if !ok {
		return "", false
	}
	return conv.NormalBalance, true
}

// DefaultStandard returns the usual double-entry conventions: assets and
// expenses carry a debit normal balance, liabilities, equity and revenue a
// credit one.
func DefaultStandard() *AccountingStandard {
	return &AccountingStandard{
		Name: "default",
		SignConventions: map[AccountType]SignConvention{
			AccountTypeAsset:     {NormalBalance: EntryTypeDebit},
			AccountTypeExpense:   {NormalBalance: EntryTypeDebit},
			AccountTypeLiability: {NormalBalance: EntryTypeCredit},
			AccountTypeEquity:    {NormalBalance: EntryTypeCredit},
			AccountTypeRevenue:   {NormalBalance: EntryTypeCredit},
		},
	}
}
