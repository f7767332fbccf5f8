package query

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/database/mongoclient"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/domain"
)

const (
	queryMaxTime      = 20 * time.Second
	slowLogThreshold  = 500 * time.Millisecond
	transactionTokens = 10
)

var (
	timeNow = time.Now
)

type impl struct {
	client *mongoclient.Client
	met    metrics.Service
	tokens chan int
}

// New returns the MongoDB implementation. At most transactionTokens
// transactions run at once.
func New(client *mongoclient.Client, met metrics.Service) Mongo {
	tokens := make(chan int, transactionTokens)
	for i := 0; i < transactionTokens; i++ {
		tokens <- i + 1
	}
	return &impl{
		client: client,
		met:    met,
		tokens: tokens,
	}
}

func (im *impl) logerr(context ctx.Ctx, msg string, err error) {
	if _, ok := err.(topology.ConnectionError); ok {
		im.met.BumpSum("mongo.conn.err", 1)
	}
	context.WithFields(log.Fields{"err": err}).Error(msg)
}

func (im *impl) collection(table domain.Table) *mongo.Collection {
	return im.client.Database(im.client.DbName).Collection(string(table))
}

func (im *impl) Insert(context ctx.Ctx, table domain.Table, insert interface{}) error {
	defer im.met.BumpTime("mongo.time", "func", "insert", "table", string(table)).End()
	defer slowLog(context, string(table), "insert", nil, "")()

	context = ctx.WithValue(context, "table", table)
	if _, err := im.collection(table).InsertOne(context, insert); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		im.logerr(context, "Insert: InsertOne failed", err)
		return err
	}
	return nil
}

func (im *impl) FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error {
	defer im.met.BumpTime("mongo.time", "func", "findone", "table", string(table)).End()
	defer slowLog(context, string(table), "findone", query, "")()

	context = ctx.WithValues(context, map[string]interface{}{
		"table": table,
		"query": query,
	})

	res := im.collection(table).FindOne(context, query, options.FindOne().SetMaxTime(queryMaxTime))
	if err := res.Decode(result); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		im.logerr(context, "FindOne: Decode failed", err)
		return err
	}
	return nil
}

func (im *impl) Count(context ctx.Ctx, table domain.Table, selector interface{}) (int, error) {
	defer im.met.BumpTime("mongo.time", "func", "count", "table", string(table)).End()
	defer slowLog(context, string(table), "count", selector, "")()

	context = ctx.WithValues(context, map[string]interface{}{
		"table":    table,
		"selector": selector,
	})

	count, err := im.collection(table).CountDocuments(context, selector, options.Count().SetMaxTime(queryMaxTime))
	if err != nil {
		im.logerr(context, "Count: CountDocuments failed", err)
		return 0, err
	}
	return int(count), nil
}

func (im *impl) Upsert(context ctx.Ctx, table domain.Table, selector, update interface{}) error {
	defer im.met.BumpTime("mongo.time", "func", "upsert", "table", string(table)).End()
	defer slowLog(context, string(table), "upsert", selector, "")()

	context = ctx.WithValues(context, map[string]interface{}{
		"table":    table,
		"selector": selector,
	})

	if _, err := im.collection(table).ReplaceOne(context, selector, update, options.Replace().SetUpsert(true)); err != nil {
		im.logerr(context, "Upsert: ReplaceOne failed", err)
		return err
	}
	return nil
}

func sortOption(sort string) bson.D {
	if sort == "" {
		return nil
	}
	if strings.HasPrefix(sort, "-") {
		return bson.D{{Key: sort[1:], Value: -1}}
	}
	return bson.D{{Key: sort, Value: 1}}
}

func (im *impl) Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error {
	defer im.met.BumpTime("mongo.time", "func", "search", "table", string(table)).End()
	defer slowLog(context, string(table), "search", query, sort)()

	context = ctx.WithValues(context, map[string]interface{}{
		"table": table,
		"query": query,
	})

	findOpts := options.Find().SetMaxTime(queryMaxTime).SetSkip(int64(offset))
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	if s := sortOption(sort); len(s) > 0 {
		findOpts.SetSort(s)
	}
	cursor, err := im.collection(table).Find(context, query, findOpts)
	if err != nil {
		im.logerr(context, "Search: Find failed", err)
		return err
	}
	defer cursor.Close(context)

	if err := cursor.All(context, results); err != nil {
		im.logerr(context, "Search: cursor.All failed", err)
		return err
	}
	return nil
}

func (im *impl) EnsureIndex(context ctx.Ctx, table domain.Table, keys ...string) error {
	idx := bson.D{}
	for _, k := range keys {
		idx = append(idx, bson.E{Key: k, Value: 1})
	}
	if _, err := im.collection(table).Indexes().CreateOne(context, mongo.IndexModel{Keys: idx}); err != nil {
		im.logerr(ctx.WithValue(context, "table", table), "EnsureIndex: CreateOne failed", err)
		return err
	}
	return nil
}

func (im *impl) RunWithTransaction(context ctx.Ctx, run func(ctx.Ctx) error) error {
	var token int
	select {
	case <-context.Done():
		return context.Err()
	case token = <-im.tokens:
	}
	defer func() { im.tokens <- token }()

	session, err := im.client.StartSession()
	if err != nil {
		im.logerr(context, "RunWithTransaction: StartSession failed", err)
		return err
	}
	defer session.EndSession(context)

	_, err = session.WithTransaction(context, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, run(ctx.Wrap(context, sessCtx))
	})
	return err
}

func slowLog(context ctx.Ctx, table, action string, query interface{}, sort string) func() {
	start := timeNow()
	return func() {
		elapsed := time.Since(start)
		if elapsed >= slowLogThreshold {
			context.WithFields(log.Fields{
				"table":      table,
				"action":     action,
				"startTime":  start.Unix(),
				"durationMs": elapsed.Milliseconds(),
				"query":      query,
				"sort":       sort,
			}).Warn("mongo slowlog")
		}
	}
}
