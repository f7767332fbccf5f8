package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/staking"
	"github.com/x-xyz/cloutledger/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) staking.Repo {
	return &impl{q}
}

func (im *impl) FindPool(c ctx.Ctx, address domain.Address) (*staking.Pool, error) {
	res := &staking.Pool{}
	if err := im.q.FindOne(c, domain.TableStakingPools, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertPool(c ctx.Ctx, pool *staking.Pool) error {
	if err := im.q.Insert(c, domain.TableStakingPools, pool); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertPool(c ctx.Ctx, pool *staking.Pool) error {
	if err := im.q.Upsert(c, domain.TableStakingPools, bson.M{"_id": pool.Address}, pool); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) FindPosition(c ctx.Ctx, address domain.Address) (*staking.Position, error) {
	res := &staking.Position{}
	if err := im.q.FindOne(c, domain.TableStakePositions, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindPositions(c ctx.Ctx, pool domain.Address, offset, limit int) ([]*staking.Position, error) {
	res := []*staking.Position{}
	qry := bson.M{"pool": pool.ToLower()}
	if err := im.q.Search(c, domain.TableStakePositions, offset, limit, domain.SortString("_id", domain.SortDirAsc), qry, &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) UpsertPosition(c ctx.Ctx, position *staking.Position) error {
	if err := im.q.Upsert(c, domain.TableStakePositions, bson.M{"_id": position.Address}, position); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}
