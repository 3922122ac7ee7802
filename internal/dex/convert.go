package dex

import (
	"fmt"
	"math/big"
)

var (
	int256Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	int256Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
)

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

func checkInt256(name string, value *big.Int) error {
	if value == nil {
		return fmt.Errorf("%s is nil", name)
	}
	if value.Cmp(int256Min) < 0 || value.Cmp(int256Max) > 0 {
		return fmt.Errorf("%s overflows int256: %s", name, value.String())
	}
	return nil
}

func checkUint(name string, value *big.Int, bits int) error {
	if value == nil {
		return fmt.Errorf("%s is nil", name)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("%s is negative: %s", name, value.String())
	}
	if value.BitLen() > bits {
		return fmt.Errorf("%s overflows uint%d: %s", name, bits, value.String())
	}
	return nil
}
