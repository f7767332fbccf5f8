package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "receipt:0xabc", RedisKey(PfxReceipt, "0xabc"))
	assert.Equal(t, "single", RedisKey("single"))
}

func TestGetPrefix(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"plain", ""},
		{"receipt:0xabc", "receipt"},
		{"ledger:receipt:0xabc", "ledger:receipt"},
		{"a:b:c:d", "a:b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GetPrefix(c.key), c.key)
	}
}
