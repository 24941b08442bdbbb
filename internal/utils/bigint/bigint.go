package bigint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid integer amount")

// Value decodes venue amounts that arrive either as JSON numbers or as decimal/hex
// strings. It is only used at the HTTP boundary.
type Value struct {
	*big.Int
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		v.Int = nil
		return nil
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	n, err := parseAny(s)
	if err != nil {
		return err
	}
	v.Int = n
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Big().String())
}

// Big never returns nil.
func (v Value) Big() *big.Int {
	if v.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v.Int)
}

func parseAny(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// ParseAmount parses a non-negative decimal integer string.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// String renders nil as "0".
func String(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func Copy(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}

// MulDivUp returns ceil(n * num / den).
func MulDivUp(n, num, den *big.Int) *big.Int {
	product := new(big.Int).Mul(n, num)
	q, r := new(big.Int).QuoRem(product, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// ConvertDecimals rescales an amount between token precisions. Rounding up is
// used when an amount must not fall short after conversion.
func ConvertDecimals(n *big.Int, from, to uint8, roundUp bool) *big.Int {
	switch {
	case from == to:
		return new(big.Int).Set(n)
	case to > from:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil)
		return new(big.Int).Mul(n, scale)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil)
	if roundUp {
		return MulDivUp(n, big.NewInt(1), scale)
	}
	return new(big.Int).Quo(n, scale)
}
