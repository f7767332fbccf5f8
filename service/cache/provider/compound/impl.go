package compound

import (
	"errors"
	"strconv"
	"time"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/service/cache/provider"
)

type impl struct {
	layers []provider.Provider
}

// NewCompound stacks providers from nearest to farthest. A hit in a far
// layer is copied into every nearer layer.
func NewCompound(layers ...provider.Provider) provider.Provider {
	return &impl{layers}
}

func (im *impl) Get(c ctx.Ctx, key string) ([]byte, time.Duration, error) {
	for idx, lyr := range im.layers {
		val, ttl, err := lyr.Get(c, key)
		if errors.Is(err, provider.ErrNotFound) {
			continue
		} else if err != nil {
			return nil, 0, err
		}

		for _, near := range im.layers[:idx] {
			if err := near.Set(c, key, val, ttl); err != nil {
				return nil, 0, err
			}
		}
		return val, ttl, nil
	}
	return nil, 0, provider.ErrNotFound
}

func (im *impl) Set(c ctx.Ctx, key string, value []byte, ttl time.Duration) error {
	for _, lyr := range im.layers {
		if err := lyr.Set(c, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Incr counts in the farthest layer and overwrites the nearer ones.
func (im *impl) Incr(c ctx.Ctx, key string, val int) (int64, time.Duration, error) {
	last := len(im.layers) - 1
	res, ttl, err := im.layers[last].Incr(c, key, val)
	if err != nil {
		return 0, 0, err
	}

	for _, lyr := range im.layers[:last] {
		if err := lyr.Set(c, key, []byte(strconv.FormatInt(res, 10)), ttl); err != nil {
			return 0, 0, err
		}
	}
	return res, ttl, nil
}

func (im *impl) Del(c ctx.Ctx, key string) error {
	for _, lyr := range im.layers {
		if err := lyr.Del(c, key); err != nil {
			return err
		}
	}
	return nil
}
