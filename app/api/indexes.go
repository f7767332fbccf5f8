package main

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/service/query"
)

// secondary lookups; every table is keyed on _id already
var indexes = []struct {
	table domain.Table
	keys  []string
}{
	{domain.TableTokenAccounts, []string{"owner", "mint"}},
	{domain.TableStakePositions, []string{"pool", "_id"}},
	{domain.TableListings, []string{"seller", "status", "createdAt"}},
	{domain.TableListings, []string{"status", "createdAt"}},
}

func ensureIndexes(c ctx.Ctx, q query.Mongo) error {
	for _, idx := range indexes {
		if err := q.EnsureIndex(c, idx.table, idx.keys...); err != nil {
			return err
		}
	}
	return nil
}
