package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/database/mongoclient"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/escrow"
	"github.com/x-xyz/cloutledger/service/query"
)

type impl struct {
	q query.Mongo
}

func New(q query.Mongo) escrow.Repo {
	return &impl{q}
}

func (im *impl) FindListing(c ctx.Ctx, address domain.Address) (*escrow.Listing, error) {
	res := &escrow.Listing{}
	if err := im.q.FindOne(c, domain.TableListings, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) FindListings(c ctx.Ctx, filter escrow.ListingFilter) ([]*escrow.Listing, error) {
	if filter.Seller != nil {
		seller := filter.Seller.ToLower()
		filter.Seller = &seller
	}
	qry, err := mongoclient.MakeBsonM(filter)
	if err != nil {
		c.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	res := []*escrow.Listing{}
	if err := im.q.Search(c, domain.TableListings, filter.Offset, filter.Limit, domain.SortString("createdAt", domain.SortDirDesc), qry, &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertListing(c ctx.Ctx, listing *escrow.Listing) error {
	if err := im.q.Insert(c, domain.TableListings, listing); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertListing(c ctx.Ctx, listing *escrow.Listing) error {
	if err := im.q.Upsert(c, domain.TableListings, bson.M{"_id": listing.Address}, listing); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) FindVault(c ctx.Ctx, address domain.Address) (*escrow.Vault, error) {
	res := &escrow.Vault{}
	if err := im.q.FindOne(c, domain.TableEscrowVaults, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertVault(c ctx.Ctx, vault *escrow.Vault) error {
	if err := im.q.Insert(c, domain.TableEscrowVaults, vault); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (im *impl) UpsertVault(c ctx.Ctx, vault *escrow.Vault) error {
	if err := im.q.Upsert(c, domain.TableEscrowVaults, bson.M{"_id": vault.Address}, vault); err != nil {
		c.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (im *impl) FindReceipt(c ctx.Ctx, address domain.Address) (*escrow.Receipt, error) {
	res := &escrow.Receipt{}
	if err := im.q.FindOne(c, domain.TableSaleReceipts, bson.M{"_id": address.ToLower()}, res); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		c.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return res, nil
}

func (im *impl) InsertReceipt(c ctx.Ctx, receipt *escrow.Receipt) error {
	if err := im.q.Insert(c, domain.TableSaleReceipts, receipt); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		c.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}
