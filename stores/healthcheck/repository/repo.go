package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/database/mongoclient"
	hcdomain "github.com/x-xyz/cloutledger/domain/healthcheck"
	"github.com/x-xyz/cloutledger/domain/keys"
	"github.com/x-xyz/cloutledger/service/cache/provider"
)

const pingTimeout = 2 * time.Second

type impl struct {
	mgoClient *mongoclient.Client
	cache     provider.Provider
}

// New builds the health check repo. A nil mongo client means the ledger runs
// on the in-memory store and PingDB always succeeds.
func New(
	mgoClient *mongoclient.Client,
	cache provider.Provider,
) hcdomain.HealthCheckRepo {
	return &impl{
		mgoClient: mgoClient,
		cache:     cache,
	}
}

func (im *impl) PingDB(c ctx.Ctx) error {
	if im.mgoClient == nil {
		return nil
	}
	tc, cancel := ctx.WithTimeout(c, pingTimeout)
	defer cancel()
	if err := im.mgoClient.Ping(tc, readpref.Primary()); err != nil {
		c.WithField("err", err).Error("ping mongo error")
		return err
	}
	return nil
}

func (im *impl) PingCache(c ctx.Ctx) error {
	tc, cancel := ctx.WithTimeout(c, pingTimeout)
	defer cancel()
	if err := im.cache.Set(tc, keys.RedisKey(keys.PfxHealthCheck, "testset"), []byte("1"), 30*time.Second); err != nil {
		c.WithField("err", err).Error("test cache set failed")
		return err
	}
	return nil
}
