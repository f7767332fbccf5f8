package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) token.Repo {
	return &impl{q}
}

func (im *impl) FindMint(c ctx.Ctx, address domain.Address) (*token.Mint, error) {
	res := &token.Mint{}
	if err := im.q.FindOne(c, domain.TableMints, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertMint(c ctx.Ctx, mint *token.Mint) error {
	if err := im.q.Insert(c, domain.TableMints, mint); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertMint(c ctx.Ctx, mint *token.Mint) error {
	if err := im.q.Upsert(c, domain.TableMints, bson.M{"_id": mint.Address}, mint); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) FindAccount(c ctx.Ctx, address domain.Address) (*token.Account, error) {
	res := &token.Account{}
	if err := im.q.FindOne(c, domain.TableTokenAccounts, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertAccount(c ctx.Ctx, account *token.Account) error {
	if err := im.q.Insert(c, domain.TableTokenAccounts, account); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertAccount(c ctx.Ctx, account *token.Account) error {
	if err := im.q.Upsert(c, domain.TableTokenAccounts, bson.M{"_id": account.Address}, account); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}
