package balance

import (
	"github.com/holiman/uint256"

	accerrors "nearaccount/core/errors"
)

const maxBits = 128

// parseUint128 reads a non-negative base-10 integer that fits in 128 bits.
// Only ASCII digits are accepted; leading zeros are tolerated.
func parseUint128(field, raw string) (*uint256.Int, error) {
	if raw == "" {
		return nil, accerrors.Arithmetic("%s: empty amount", field)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return nil, accerrors.Arithmetic("%s: %q is not a decimal integer", field, raw)
		}
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, accerrors.Arithmetic("%s: %v", field, err)
	}
	if v.BitLen() > maxBits {
		return nil, accerrors.Arithmetic("%s: %s exceeds 128 bits", field, raw)
	}
	return v, nil
}

func checkedAdd(field string, x, y *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow || sum.BitLen() > maxBits {
		return nil, accerrors.Arithmetic("%s: %s + %s overflows 128 bits", field, x.Dec(), y.Dec())
	}
	return sum, nil
}

func checkedMul(field string, x, y *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow || product.BitLen() > maxBits {
		return nil, accerrors.Arithmetic("%s: %s * %s overflows 128 bits", field, x.Dec(), y.Dec())
	}
	return product, nil
}

func checkedSub(field string, x, y *uint256.Int) (*uint256.Int, error) {
	diff, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, accerrors.Arithmetic("%s: %s - %s underflows", field, x.Dec(), y.Dec())
	}
	return diff, nil
}

func maxOf(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return y
	}
	return x
}
