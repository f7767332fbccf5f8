package cache

import (
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/domain/keys"
	"github.com/x-xyz/cloutledger/service/cache/provider"
)

type impl struct {
	ttl         time.Duration
	pfx         string
	cache       provider.Provider
	met         metrics.Service
	serialize   Serializer
	deserialize Deserializer
}

func New(config ServiceConfig) Service {
	im := &impl{
		ttl:         config.Ttl,
		pfx:         config.Pfx,
		cache:       config.Cache,
		met:         config.Metrics,
		serialize:   config.Serialize,
		deserialize: config.Deserialize,
	}
	if im.serialize == nil {
		im.serialize = json.Marshal
	}
	if im.deserialize == nil {
		im.deserialize = json.Unmarshal
	}
	if im.met == nil {
		im.met = metrics.New("cache")
	}
	return im
}

func (im *impl) fields(key string, err error) log.Fields {
	return log.Fields{"pfx": im.pfx, "key": key, "err": err}
}

// GetByFunc serves container from the cache, or from getter on a miss. A
// broken cache degrades to the getter; getter errors are never cached.
func (im *impl) GetByFunc(c ctx.Ctx, key string, container interface{}, getter OneTimeGetter) error {
	err := im.Get(c, key, container)
	if err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		c.WithFields(im.fields(key, err)).Warn("Get failed, falling back to getter")
	}

	val, err := getter()
	if err != nil {
		return err
	}
	if err := im.Set(c, key, val); err != nil {
		c.WithFields(im.fields(key, err)).Warn("Set failed")
	}

	reflect.ValueOf(container).Elem().Set(reflect.ValueOf(val).Elem())
	return nil
}

func (im *impl) Get(c ctx.Ctx, key string, container interface{}) error {
	key = keys.RedisKey(im.pfx, key)

	val, _, err := im.cache.Get(c, key)
	if errors.Is(err, provider.ErrNotFound) {
		im.met.BumpSum("miss", 1, "pfx", im.pfx)
		return ErrNotFound
	} else if err != nil {
		c.WithFields(im.fields(key, err)).Error("cache.Get failed")
		return err
	}
	if err := im.deserialize(val, container); err != nil {
		c.WithFields(im.fields(key, err)).Error("deserialize failed")
		return err
	}
	im.met.BumpSum("hit", 1, "pfx", im.pfx)
	return nil
}

func (im *impl) Set(c ctx.Ctx, key string, value interface{}) error {
	key = keys.RedisKey(im.pfx, key)

	val, err := im.serialize(value)
	if err != nil {
		c.WithFields(im.fields(key, err)).Error("serialize failed")
		return err
	}
	if err := im.cache.Set(c, key, val, im.ttl); err != nil {
		c.WithFields(im.fields(key, err)).Error("cache.Set failed")
		return err
	}
	return nil
}

func (im *impl) Del(c ctx.Ctx, key string) error {
	key = keys.RedisKey(im.pfx, key)

	if err := im.cache.Del(c, key); err != nil {
		c.WithFields(im.fields(key, err)).Error("cache.Del failed")
		return err
	}
	return nil
}
