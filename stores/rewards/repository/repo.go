package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) rewards.Repo {
	return &impl{q}
}

func (im *impl) FindOne(c ctx.Ctx, address domain.Address) (*rewards.VaultConfig, error) {
	res := &rewards.VaultConfig{}
	if err := im.q.FindOne(c, domain.TableVaultConfigs, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) Insert(c ctx.Ctx, config *rewards.VaultConfig) error {
	if err := im.q.Insert(c, domain.TableVaultConfigs, config); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) Upsert(c ctx.Ctx, config *rewards.VaultConfig) error {
	if err := im.q.Upsert(c, domain.TableVaultConfigs, bson.M{"_id": config.Address}, config); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}
