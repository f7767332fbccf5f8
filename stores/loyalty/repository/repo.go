package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/loyalty"
	"github.com/x-xyz/cloutledger/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) loyalty.Repo {
	return &impl{q}
}

func (im *impl) FindRegistry(c ctx.Ctx) (*loyalty.RegistryConfig, error) {
	res := &loyalty.RegistryConfig{}
	if err := im.q.FindOne(c, domain.TableRegistryConfigs, bson.M{"_id": loyalty.RegistryAddress()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertRegistry(c ctx.Ctx, config *loyalty.RegistryConfig) error {
	if err := im.q.Insert(c, domain.TableRegistryConfigs, config); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertRegistry(c ctx.Ctx, config *loyalty.RegistryConfig) error {
	if err := im.q.Upsert(c, domain.TableRegistryConfigs, bson.M{"_id": config.Address}, config); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) FindProfile(c ctx.Ctx, address domain.Address) (*loyalty.Profile, error) {
	res := &loyalty.Profile{}
	if err := im.q.FindOne(c, domain.TableLoyaltyProfiles, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertProfile(c ctx.Ctx, profile *loyalty.Profile) error {
	if err := im.q.Insert(c, domain.TableLoyaltyProfiles, profile); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertProfile(c ctx.Ctx, profile *loyalty.Profile) error {
	if err := im.q.Upsert(c, domain.TableLoyaltyProfiles, bson.M{"_id": profile.Address}, profile); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}
