package models

// MappingResult is the outcome of one mapping attempt. Absence of either
// account implies Confidence == 0; acceptance is decided by the
// orchestrator's thresholds, not by the producing stage.
type MappingResult struct {
	DebitAccount  *Account `json:"debit_account,omitempty"`
	CreditAccount *Account `json:"credit_account,omitempty"`
	Confidence    float64  `json:"confidence"`
	Stage         string   `json:"stage,omitempty"`
}

// Mapped reports whether both sides of the entry were resolved.
func (r *MappingResult) Mapped() bool {
	return r.DebitAccount != nil && r.CreditAccount != nil
}
