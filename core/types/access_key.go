package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"nearaccount/crypto"
)

const fullAccessPermission = "FullAccess"

// FunctionCallPermission restricts a key to calling methods on one receiver.
// A nil Allowance means the key may spend fees without limit.
type FunctionCallPermission struct {
	Allowance   *string  `json:"allowance"`
	ReceiverID  string   `json:"receiver_id"`
	MethodNames []string `json:"method_names"`
}

// AccessKeyPermission is either full access or a function-call grant. The
// wire form is the bare string "FullAccess" or {"FunctionCall": {...}}.
type AccessKeyPermission struct {
	FullAccess   bool
	FunctionCall *FunctionCallPermission
}

func (p AccessKeyPermission) MarshalJSON() ([]byte, error) {
	if p.FunctionCall != nil {
		return json.Marshal(map[string]*FunctionCallPermission{"FunctionCall": p.FunctionCall})
	}
	return json.Marshal(fullAccessPermission)
}

func (p *AccessKeyPermission) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if name != fullAccessPermission {
			return fmt.Errorf("unknown access key permission %q", name)
		}
		*p = AccessKeyPermission{FullAccess: true}
		return nil
	}
	var wrapped struct {
		FunctionCall *FunctionCallPermission `json:"FunctionCall"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.FunctionCall == nil {
		return fmt.Errorf("access key permission missing FunctionCall body")
	}
	if wrapped.FunctionCall.MethodNames == nil {
		wrapped.FunctionCall.MethodNames = []string{}
	}
	*p = AccessKeyPermission{FunctionCall: wrapped.FunctionCall}
	return nil
}

// AccessKey is the chain's record for one public key registered to an account.
// BlockHeight and BlockHash are only populated by single-key views.
type AccessKey struct {
	Nonce       uint64              `json:"nonce"`
	Permission  AccessKeyPermission `json:"permission"`
	BlockHeight uint64              `json:"block_height,omitempty"`
	BlockHash   string              `json:"block_hash,omitempty"`
}

// AccountAccessKey pairs an access key with the public key it belongs to.
type AccountAccessKey struct {
	AccessKey AccessKey        `json:"access_key"`
	PublicKey crypto.PublicKey `json:"public_key"`
}

// AccountAccessKeyList holds keys in the order the chain returned them.
type AccountAccessKeyList struct {
	Keys []AccountAccessKey `json:"keys"`
}

func (l *AccountAccessKeyList) UnmarshalJSON(data []byte) error {
	var raw struct {
		Keys []AccountAccessKey `json:"keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Keys == nil {
		raw.Keys = []AccountAccessKey{}
	}
	l.Keys = raw.Keys
	return nil
}
