package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
)

const mockTable = domain.Table("dummies")

type dummy struct {
	ID     string        `bson:"_id"`
	Owner  string        `bson:"owner"`
	Amount domain.Amount `bson:"amount"`
	Seq    int64         `bson:"seq"`
	Nested struct {
		Tag string `bson:"tag"`
	} `bson:"nested"`
}

type memorySuite struct {
	suite.Suite
	ctx ctx.Ctx
	q   Mongo
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(memorySuite))
}

func (s *memorySuite) SetupTest() {
	s.ctx = ctx.Background()
	s.q = NewMemory()
}

func (s *memorySuite) insert(id, owner string, amount domain.Amount, seq int64) {
	d := dummy{ID: id, Owner: owner, Amount: amount, Seq: seq}
	d.Nested.Tag = owner + "-tag"
	s.Require().NoError(s.q.Insert(s.ctx, mockTable, d))
}

func (s *memorySuite) TestInsertAndFindOne() {
	s.insert("a", "alice", 10, 1)

	var got dummy
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"_id": "a"}, &got))
	s.Equal("alice", got.Owner)
	s.Equal(domain.Amount(10), got.Amount)

	s.ErrorIs(s.q.FindOne(s.ctx, mockTable, bson.M{"_id": "b"}, &got), ErrNotFound)
	s.ErrorIs(s.q.FindOne(s.ctx, domain.Table("missing"), bson.M{"_id": "a"}, &got), ErrNotFound)
}

func (s *memorySuite) TestInsertDuplicate() {
	s.insert("a", "alice", 10, 1)
	err := s.q.Insert(s.ctx, mockTable, dummy{ID: "a", Owner: "bob"})
	s.ErrorIs(err, ErrDuplicateKey)

	var got dummy
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"_id": "a"}, &got))
	s.Equal("alice", got.Owner)
}

func (s *memorySuite) TestSelectorMatchesEncodedValues() {
	s.insert("a", "alice", 10, 1)
	s.insert("b", "bob", 20, 2)

	var got dummy
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"amount": domain.Amount(20)}, &got))
	s.Equal("b", got.ID)
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"nested.tag": "alice-tag"}, &got))
	s.Equal("a", got.ID)

	n, err := s.q.Count(s.ctx, mockTable, bson.M{"owner": "carol"})
	s.Require().NoError(err)
	s.Equal(0, n)
	n, err = s.q.Count(s.ctx, mockTable, bson.M{})
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Error(s.q.FindOne(s.ctx, mockTable, bson.M{"$or": bson.A{}}, &got))
}

func (s *memorySuite) TestUpsert() {
	s.Require().NoError(s.q.Upsert(s.ctx, mockTable, bson.M{"_id": "a"}, dummy{ID: "a", Owner: "alice", Amount: 1}))
	s.Require().NoError(s.q.Upsert(s.ctx, mockTable, bson.M{"_id": "a"}, dummy{ID: "a", Owner: "alice", Amount: 2}))

	var all []dummy
	s.Require().NoError(s.q.Search(s.ctx, mockTable, 0, 0, "", bson.M{}, &all))
	s.Require().Len(all, 1)
	s.Equal(domain.Amount(2), all[0].Amount)

	// documents without _id take it from the selector
	s.Require().NoError(s.q.Upsert(s.ctx, mockTable, bson.M{"_id": "b"}, bson.M{"owner": "bob"}))
	var got dummy
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"owner": "bob"}, &got))
	s.Equal("b", got.ID)

	s.ErrorIs(s.q.Upsert(s.ctx, mockTable, bson.M{"_id": "a"}, dummy{ID: "b"}), ErrDuplicateKey)
}

func (s *memorySuite) TestSearchSortAndPage() {
	s.insert("a", "alice", 10, 3)
	s.insert("b", "alice", 20, 1)
	s.insert("c", "alice", 30, 2)
	s.insert("d", "bob", 40, 4)

	var got []dummy
	s.Require().NoError(s.q.Search(s.ctx, mockTable, 0, 0, "seq", bson.M{"owner": "alice"}, &got))
	s.Equal([]string{"b", "c", "a"}, ids(got))

	s.Require().NoError(s.q.Search(s.ctx, mockTable, 0, 2, "-seq", bson.M{}, &got))
	s.Equal([]string{"d", "a"}, ids(got))

	s.Require().NoError(s.q.Search(s.ctx, mockTable, 3, 10, "seq", bson.M{}, &got))
	s.Equal([]string{"d"}, ids(got))

	s.Require().NoError(s.q.Search(s.ctx, mockTable, 10, 10, "seq", bson.M{}, &got))
	s.Empty(got)

	s.Error(s.q.Search(s.ctx, mockTable, 0, 0, "", bson.M{}, got))
}

func (s *memorySuite) TestTransactionRollsBack() {
	s.insert("a", "alice", 10, 1)
	boom := errors.New("boom")

	err := s.q.RunWithTransaction(s.ctx, func(c ctx.Ctx) error {
		s.Require().NoError(s.q.Upsert(c, mockTable, bson.M{"_id": "a"}, dummy{ID: "a", Owner: "alice", Amount: 99}))
		s.Require().NoError(s.q.Insert(c, mockTable, dummy{ID: "b", Owner: "bob"}))
		s.Require().NoError(s.q.Insert(c, domain.Table("other"), dummy{ID: "x"}))

		var got dummy
		s.Require().NoError(s.q.FindOne(c, mockTable, bson.M{"_id": "a"}, &got))
		s.Equal(domain.Amount(99), got.Amount)
		return boom
	})
	s.ErrorIs(err, boom)

	var got dummy
	s.Require().NoError(s.q.FindOne(s.ctx, mockTable, bson.M{"_id": "a"}, &got))
	s.Equal(domain.Amount(10), got.Amount)
	s.ErrorIs(s.q.FindOne(s.ctx, mockTable, bson.M{"_id": "b"}, &got), ErrNotFound)
	s.ErrorIs(s.q.FindOne(s.ctx, domain.Table("other"), bson.M{"_id": "x"}, &got), ErrNotFound)
}

func (s *memorySuite) TestTransactionRollsBackOnPanic() {
	s.Panics(func() {
		_ = s.q.RunWithTransaction(s.ctx, func(c ctx.Ctx) error {
			s.Require().NoError(s.q.Insert(c, mockTable, dummy{ID: "a"}))
			panic("boom")
		})
	})
	n, err := s.q.Count(s.ctx, mockTable, bson.M{})
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *memorySuite) TestTransactionCommitsAndNests() {
	err := s.q.RunWithTransaction(s.ctx, func(c ctx.Ctx) error {
		s.Require().NoError(s.q.Insert(c, mockTable, dummy{ID: "a"}))
		return s.q.RunWithTransaction(c, func(c ctx.Ctx) error {
			return s.q.Insert(c, mockTable, dummy{ID: "b"})
		})
	})
	s.Require().NoError(err)

	n, err := s.q.Count(s.ctx, mockTable, bson.M{})
	s.Require().NoError(err)
	s.Equal(2, n)
}

func ids(ds []dummy) []string {
	res := make([]string, 0, len(ds))
	for _, d := range ds {
		res = append(res, d.ID)
	}
	return res
}
