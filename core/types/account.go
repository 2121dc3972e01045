package types

import "encoding/json"

// AccountState is the view_account snapshot of an account at a given block.
// Amounts are decimal strings in the smallest currency unit.
type AccountState struct {
	AccountID     *string `json:"account_id,omitempty"`
	Staked        *string `json:"staked,omitempty"`
	Locked        string  `json:"locked"`
	Amount        string  `json:"amount"`
	CodeHash      string  `json:"code_hash"`
	BlockHash     string  `json:"block_hash"`
	BlockHeight   uint64  `json:"block_height"`
	StoragePaidAt int64   `json:"storage_paid_at"`
	StorageUsage  int64   `json:"storage_usage"`
}

// UnmarshalJSON accepts the legacy camel-case accountId key alongside account_id.
// Absent optional fields stay nil.
func (s *AccountState) UnmarshalJSON(data []byte) error {
	type plain AccountState
	aux := struct {
		*plain
		LegacyAccountID *string `json:"accountId,omitempty"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.AccountID == nil && aux.LegacyAccountID != nil {
		s.AccountID = aux.LegacyAccountID
	}
	return nil
}

// AccountBalance is the derived balance breakdown. It is built once per
// request and never mutated.
type AccountBalance struct {
	Total       string `json:"total"`
	StateStaked string `json:"stateStaked"`
	Staked      string `json:"staked"`
	Available   string `json:"available"`
}
