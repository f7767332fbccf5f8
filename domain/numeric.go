package domain

import (
	"encoding/json"
	"strconv"

	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"golang.org/x/xerrors"
)

// Amount is an unsigned 64-bit quantity of base units. It is stored and
// serialized as a decimal string since BSON and JSON numbers cannot carry the
// full range.
type Amount uint64

// MaxAmount is the largest representable amount.
const MaxAmount = Amount(^uint64(0))

func (a Amount) Uint64() uint64 {
	return uint64(a)
}

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount(v), nil
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.String())
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return xerrors.Errorf("amount: unexpected bson type %s", t)
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both "123" and 123.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n uint64
		if err := json.Unmarshal(b, &n); err != nil {
			return xerrors.Errorf("amount: %w", err)
		}
		*a = Amount(n)
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// U128 is an unsigned 128-bit value, used for fixed-point accumulators.
type U128 struct {
	v uint256.Int
}

func NewU128(v uint64) U128 {
	var u U128
	u.v.SetUint64(v)
	return u
}

// U128FromInt narrows x to 128 bits, failing with ErrMathOverflow if it does
// not fit.
func U128FromInt(x *uint256.Int) (U128, error) {
	if x.BitLen() > 128 {
		return U128{}, ErrMathOverflow
	}
	var u U128
	u.v.Set(x)
	return u, nil
}

// Int returns a copy of the value as a 256-bit integer.
func (u U128) Int() *uint256.Int {
	return new(uint256.Int).Set(&u.v)
}

func (u U128) IsZero() bool {
	return u.v.IsZero()
}

func (u U128) Cmp(o U128) int {
	return u.v.Cmp(&o.v)
}

func (u U128) String() string {
	return u.v.Dec()
}

func ParseU128(s string) (U128, error) {
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return U128{}, xerrors.Errorf("invalid u128 %q: %w", s, err)
	}
	return U128FromInt(x)
}

func (u U128) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(u.String())
}

func (u *U128) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return xerrors.Errorf("u128: unexpected bson type %s", t)
	}
	v, err := ParseU128(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func (u U128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *U128) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return xerrors.Errorf("u128: %w", err)
	}
	v, err := ParseU128(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}
