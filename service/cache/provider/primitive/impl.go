package primitive

import (
	"errors"
	"strconv"
	"time"

	"github.com/coocood/freecache"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/service/cache/provider"
)

type impl struct {
	name  string
	cache *freecache.Cache
}

// NewPrimitive builds an in-process provider of sizeMB megabytes.
func NewPrimitive(name string, sizeMB int) provider.Provider {
	return &impl{name, freecache.NewCache(sizeMB * 1024 * 1024)}
}

func (im *impl) Get(c ctx.Ctx, key string) ([]byte, time.Duration, error) {
	val, exp, err := im.cache.GetWithExpiration([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, 0, provider.ErrNotFound
	} else if err != nil {
		c.WithFields(fields(im.name, key, err)).Error("cache.Get failed")
		return nil, 0, err
	}
	return val, remaining(exp), nil
}

func (im *impl) Set(c ctx.Ctx, key string, value []byte, ttl time.Duration) error {
	if err := im.cache.Set([]byte(key), value, int(ttl.Seconds())); err != nil {
		c.WithFields(fields(im.name, key, err)).Error("cache.Set failed")
		return err
	}
	return nil
}

func (im *impl) Incr(c ctx.Ctx, key string, val int) (int64, time.Duration, error) {
	v, exp, err := im.cache.GetWithExpiration([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return 0, 0, provider.ErrNotFound
	} else if err != nil {
		c.WithFields(fields(im.name, key, err)).Error("cache.GetWithExpiration failed")
		return 0, 0, err
	}

	i, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		c.WithFields(fields(im.name, key, err)).Error("strconv.ParseInt failed")
		return 0, 0, err
	}

	nv := i + int64(val)
	ttl := remaining(exp)
	return nv, ttl, im.Set(c, key, []byte(strconv.FormatInt(nv, 10)), ttl)
}

func (im *impl) Del(c ctx.Ctx, key string) error {
	im.cache.Del([]byte(key))
	return nil
}

// remaining converts freecache's absolute expiry (unix seconds, 0 for none)
// into a ttl.
func remaining(expireAt uint32) time.Duration {
	if expireAt == 0 {
		return 0
	}
	left := int64(expireAt) - time.Now().Unix()
	if left <= 0 {
		return time.Second
	}
	return time.Duration(left) * time.Second
}

func fields(name, key string, err error) map[string]interface{} {
	return map[string]interface{}{"cache": name, "key": key, "err": err}
}
