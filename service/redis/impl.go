package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/domain/keys"
)

const (
	// retTTLNoKey is the return value of TTL when the key does not exist
	retTTLNoKey = -2

	// retTTLNoExpire is the return value of TTL when the key exists but has
	// no associated expire
	retTTLNoExpire = -1

	delBatchSize = 100
)

type redImpl struct {
	name  string
	met   metrics.Service
	pools *Pools
}

// Pools represents different pool types
type Pools struct {
	Src *redis.Pool
}

// New redis service over the given pools
func New(name string, metrics metrics.Service, pools *Pools) Service {
	return &redImpl{
		name:  name,
		met:   metrics,
		pools: pools,
	}
}

func (r *redImpl) getConn() (redis.Conn, error) {
	defer r.met.BumpTime("getconn.time", "cluster", r.name).End()
	if r.pools == nil || r.pools.Src == nil {
		return nil, ErrNoPool
	}

	conn := r.pools.Src.Get()
	if err := conn.Err(); err != nil {
		r.met.BumpSum("getConn.err", 1, "cluster", r.name, "reason", err.Error())
		return nil, err
	}
	return conn, nil
}

func (r *redImpl) connDo(c ctx.Ctx, commandName string, args ...interface{}) (interface{}, error) {
	conn, err := r.getConn()
	if err != nil {
		return nil, err
	}

	reply, err := conn.Do(commandName, args...)

	// Closing conn explicitly asap keeps the pool small under load.
	if err := conn.Close(); err != nil {
		r.met.BumpSum("conn.Close.err", 1, "cluster", r.name)
	}
	return reply, err
}

func (r *redImpl) tags(fn, key string) []string {
	return []string{"func", fn, "cluster", r.name, "prefix", keys.GetPrefix(key)}
}

func (r *redImpl) Get(c ctx.Ctx, key string) ([]byte, error) {
	tags := r.tags("get", key)
	defer r.met.BumpTime("time", tags...).End()

	val, err := redis.Bytes(r.connDo(c, "GET", key))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("GET redis failed")
		return nil, err
	}
	r.met.BumpHistogram("bytes", float64(len(val)), tags...)
	return val, nil
}

func (r *redImpl) Set(c ctx.Ctx, key string, val []byte, expire time.Duration) error {
	tags := r.tags("set", key)
	defer r.met.BumpTime("time", tags...).End()
	r.met.BumpHistogram("bytes", float64(len(val)), tags...)

	var err error
	if expire == Forever {
		r.met.BumpSum("ttl.forever", 1, tags...)
		_, err = r.connDo(c, "SET", key, val)
	} else {
		r.met.BumpAvg("ttl", expire.Seconds(), tags...)
		_, err = r.connDo(c, "SET", key, val, "PX", int(expire/time.Millisecond))
	}
	if err != nil {
		c.WithField("err", err).Error("set redis failed")
	}
	return err
}

func (r *redImpl) Del(c ctx.Ctx, ks ...string) (int, error) {
	if len(ks) == 0 {
		return 0, fmt.Errorf("length of keys is 0")
	}

	tags := r.tags("del", ks[0])
	defer r.met.BumpTime("time", tags...).End()
	r.met.BumpHistogram("elements", float64(len(ks)), tags...)

	affected := 0
	for start := 0; start < len(ks); start += delBatchSize {
		end := start + delBatchSize
		if end > len(ks) {
			end = len(ks)
		}
		res, err := redis.Int(r.connDo(c, "DEL", redis.Args{}.AddFlat(ks[start:end])...))
		if err != nil {
			c.WithField("err", err).Error("DEL redis failed")
			return 0, err
		}
		affected += res
	}
	return affected, nil
}

func (r *redImpl) Exists(c ctx.Ctx, key string) (bool, error) {
	defer r.met.BumpTime("time", r.tags("exists", key)...).End()
	res, err := redis.Bool(r.connDo(c, "EXISTS", key))
	if err != nil {
		c.WithField("err", err).Error("EXISTS redis failed")
	}
	return res, err
}

func (r *redImpl) Incrby(c ctx.Ctx, key string, val int) (int64, error) {
	defer r.met.BumpTime("time", r.tags("incrby", key)...).End()
	res, err := redis.Int64(r.connDo(c, "INCRBY", key, val))
	if err != nil {
		c.WithField("err", err).Error("INCRBY redis failed")
	}
	return res, err
}

func (r *redImpl) TTL(c ctx.Ctx, key string) (int, error) {
	defer r.met.BumpTime("time", r.tags("ttl", key)...).End()
	res, err := redis.Int(r.connDo(c, "TTL", key))
	if err != nil {
		c.WithField("err", err).Error("TTL redis failed")
		return 0, err
	}

	switch res {
	case retTTLNoKey:
		return res, ErrNotFound
	case retTTLNoExpire:
		return res, ErrNoTTL
	}
	return res, nil
}

func (r *redImpl) Ping(c ctx.Ctx) error {
	defer r.met.BumpTime("time", "func", "ping", "cluster", r.name).End()
	if _, err := redis.String(r.connDo(c, "PING")); err != nil {
		c.WithField("err", err).Error("PING redis failed")
		return err
	}
	return nil
}
