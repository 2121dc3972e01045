package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Finality selects how settled a queried block must be.
type Finality string

const (
	FinalityOptimistic Finality = "optimistic"
	FinalityNearFinal  Finality = "near-final"
	FinalityFinal      Finality = "final"
)

// ParseFinality validates a finality name.
func ParseFinality(raw string) (Finality, error) {
	switch f := Finality(strings.ToLower(strings.TrimSpace(raw))); f {
	case FinalityOptimistic, FinalityNearFinal, FinalityFinal:
		return f, nil
	default:
		return "", fmt.Errorf("unknown finality %q", raw)
	}
}

func (f Finality) String() string { return string(f) }

// BlockReference selects a block either by finality or by an explicit
// height or hash. Exactly one selector is set.
type BlockReference struct {
	Finality    Finality
	BlockHeight *uint64
	BlockHash   string
}

// AtFinality references the latest block with the given finality.
func AtFinality(f Finality) BlockReference {
	return BlockReference{Finality: f}
}

// AtHeight references a block by height.
func AtHeight(height uint64) BlockReference {
	return BlockReference{BlockHeight: &height}
}

// AtHash references a block by hash.
func AtHash(hash string) BlockReference {
	return BlockReference{BlockHash: hash}
}

// Validate checks that exactly one selector is present.
func (r BlockReference) Validate() error {
	set := 0
	if r.Finality != "" {
		set++
	}
	if r.BlockHeight != nil {
		set++
	}
	if r.BlockHash != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("block reference must set exactly one of finality, height or hash")
	}
	return nil
}

// Params renders the reference as request parameters.
func (r BlockReference) Params() map[string]any {
	switch {
	case r.BlockHeight != nil:
		return map[string]any{"block_id": *r.BlockHeight}
	case r.BlockHash != "":
		return map[string]any{"block_id": r.BlockHash}
	default:
		return map[string]any{"finality": string(r.Finality)}
	}
}

// QueryParams renders the reference as string-valued query parameters.
func (r BlockReference) QueryParams() map[string]string {
	switch {
	case r.BlockHeight != nil:
		return map[string]string{"block_id": strconv.FormatUint(*r.BlockHeight, 10)}
	case r.BlockHash != "":
		return map[string]string{"block_id": r.BlockHash}
	default:
		return map[string]string{"finality": string(r.Finality)}
	}
}

func (r BlockReference) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r.Params())
}

func (r BlockReference) String() string {
	switch {
	case r.BlockHeight != nil:
		return "height:" + strconv.FormatUint(*r.BlockHeight, 10)
	case r.BlockHash != "":
		return "hash:" + r.BlockHash
	default:
		return "finality:" + string(r.Finality)
	}
}

// RuntimeConfig is the consumed subset of the runtime economic parameters.
type RuntimeConfig struct {
	StorageAmountPerByte *string `json:"storage_amount_per_byte,omitempty"`
}

// ProtocolConfig is the EXPERIMENTAL_protocol_config response. Only
// RuntimeConfig feeds balance calculation; the rest is informational.
type ProtocolConfig struct {
	ProtocolVersion uint32         `json:"protocol_version"`
	ChainID         string         `json:"chain_id"`
	GenesisHeight   uint64         `json:"genesis_height"`
	EpochLength     uint64         `json:"epoch_length"`
	RuntimeConfig   *RuntimeConfig `json:"runtime_config,omitempty"`
}

// StorageAmountPerByte returns the per-byte storage cost and whether the
// response carried it.
func (c *ProtocolConfig) StorageAmountPerByte() (string, bool) {
	if c == nil || c.RuntimeConfig == nil || c.RuntimeConfig.StorageAmountPerByte == nil {
		return "", false
	}
	return *c.RuntimeConfig.StorageAmountPerByte, true
}

// NodeStatus is the subset of the status response used for health checks.
type NodeStatus struct {
	ChainID  string `json:"chain_id"`
	SyncInfo struct {
		LatestBlockHash   string `json:"latest_block_hash"`
		LatestBlockHeight uint64 `json:"latest_block_height"`
		Syncing           bool   `json:"syncing"`
	} `json:"sync_info"`
}
