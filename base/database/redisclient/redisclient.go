package redisclient

import (
	"context"
	"runtime"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/x-xyz/cloutledger/base/backoff"
	"github.com/x-xyz/cloutledger/base/log"
)

const (
	dialTimeout  = 2 * time.Second
	readTimeout  = 1500 * time.Millisecond
	writeTimeout = 1500 * time.Millisecond
	idleTimeout  = 240 * time.Second
	dialRetries  = 3
)

type Options struct {
	Addr     string
	Password string
	// PoolMultiplier scales the active connection limit by the number of CPUs.
	// Zero keeps the default limits.
	PoolMultiplier float64
	// Retry redials with jitter when the first dial fails.
	Retry bool
}

// MustConnect panics if redis is unreachable.
func MustConnect(opts Options) *redis.Pool {
	p, err := Connect(opts)
	if err != nil {
		log.Log().WithFields(log.Fields{"redisAddr": opts.Addr, "err": err}).Panic("fail to dial redis")
	}
	return p
}

// Connect builds a pool and checks one connection out of it.
func Connect(opts Options) (*redis.Pool, error) {
	maxIdle, maxActive := 64, 256
	if opts.PoolMultiplier > 0 {
		cpu := float64(runtime.NumCPU())
		maxActive = int(cpu * opts.PoolMultiplier)
		maxIdle = maxActive / 4
	}

	dialOpts := []redis.DialOption{
		redis.DialConnectTimeout(dialTimeout),
		redis.DialReadTimeout(readTimeout),
		redis.DialWriteTimeout(writeTimeout),
	}
	if opts.Password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(opts.Password))
	}
	p := &redis.Pool{
		MaxIdle:     maxIdle,
		MaxActive:   maxActive,
		Wait:        true,
		IdleTimeout: idleTimeout,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", opts.Addr, dialOpts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	attempts := 1
	if opts.Retry {
		attempts += dialRetries
	}
	err := backoff.Retry(context.Background(), backoff.NewExponential(time.Second, 8*time.Second).WithJitter(1), attempts,
		func() error { return ping(p) },
		func(attempt int, err error) {
			log.Log().WithFields(log.Fields{
				"redisAddr": opts.Addr,
				"err":       err,
				"attempt":   attempt,
			}).Error("fail to dial redis")
		})
	if err != nil {
		p.Close()
		return nil, err
	}

	log.Log().WithField("redisAddr", opts.Addr).Info("redis connected")
	return p, nil
}

func ping(p *redis.Pool) error {
	c := p.Get()
	defer c.Close()
	_, err := c.Do("PING")
	return err
}
