// Package balance derives the spendable balance breakdown of an account from
// its state snapshot and the current per-byte storage price.
package balance

import (
	"github.com/holiman/uint256"

	accerrors "nearaccount/core/errors"
	"nearaccount/core/types"
)

// Compute combines an account snapshot with the storage price into an
// AccountBalance. All arithmetic is unsigned 128-bit and checked; malformed
// input, overflow and underflow fail with ErrArithmetic.
//
// The chain reports amount exclusive of the locked balance, so total is
// amount + locked. Funds are held back by whichever is larger of the stake
// and the cost of the storage currently in use.
func Compute(state *types.AccountState, storageAmountPerByte string) (*types.AccountBalance, error) {
	if state == nil {
		return nil, accerrors.Arithmetic("nil account state")
	}
	costPerByte, err := parseUint128("storage_amount_per_byte", storageAmountPerByte)
	if err != nil {
		return nil, err
	}
	if state.StorageUsage < 0 {
		return nil, accerrors.Arithmetic("storage_usage: negative value %d", state.StorageUsage)
	}
	stateStaked, err := checkedMul("state_staked", uint256.NewInt(uint64(state.StorageUsage)), costPerByte)
	if err != nil {
		return nil, err
	}
	staked, err := parseUint128("locked", state.Locked)
	if err != nil {
		return nil, err
	}
	amount, err := parseUint128("amount", state.Amount)
	if err != nil {
		return nil, err
	}
	total, err := checkedAdd("total", amount, staked)
	if err != nil {
		return nil, err
	}
	available, err := checkedSub("available", total, maxOf(staked, stateStaked))
	if err != nil {
		return nil, err
	}
	return &types.AccountBalance{
		Total:       total.Dec(),
		StateStaked: stateStaked.Dec(),
		Staked:      staked.Dec(),
		Available:   available.Dec(),
	}, nil
}
