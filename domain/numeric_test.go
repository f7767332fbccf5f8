package domain

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAmountKeepsFullRange(t *testing.T) {
	req := require.New(t)
	type doc struct {
		A Amount `bson:"a" json:"a"`
	}

	raw, err := bson.Marshal(doc{A: MaxAmount})
	req.NoError(err)
	var out doc
	req.NoError(bson.Unmarshal(raw, &out))
	req.Equal(MaxAmount, out.A)

	j, err := json.Marshal(doc{A: 42})
	req.NoError(err)
	req.JSONEq(`{"a":"42"}`, string(j))

	req.NoError(json.Unmarshal([]byte(`{"a":7}`), &out))
	req.Equal(Amount(7), out.A)
}

func TestU128Bounds(t *testing.T) {
	req := require.New(t)
	max := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	max.SubUint64(max, 1)

	u, err := U128FromInt(max)
	req.NoError(err)
	req.Equal("340282366920938463463374607431768211455", u.String())

	_, err = U128FromInt(new(uint256.Int).AddUint64(max, 1))
	req.ErrorIs(err, ErrMathOverflow)

	type doc struct {
		U U128 `bson:"u"`
	}
	raw, err := bson.Marshal(doc{U: u})
	req.NoError(err)
	var out doc
	req.NoError(bson.Unmarshal(raw, &out))
	req.Equal(0, out.U.Cmp(u))
}
