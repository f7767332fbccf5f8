package mongoclient

import (
	"context"
	"crypto/tls"
	"runtime"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/x-xyz/cloutledger/base/log"
)

const (
	socketTimeout  = 60 * time.Second
	connectTimeout = 10 * time.Second
)

// Client wraps mongo.Client together with the ledger database name.
type Client struct {
	DbName string
	*mongo.Client
}

type Options struct {
	URI        string
	AuthDBName string
	DBName     string
	TLS        bool
	// PoolSizeMultiplier scales the pool by the number of CPUs.
	PoolSizeMultiplier float64
}

// MustConnect panics if the ledger database is unreachable.
func MustConnect(opts Options) *Client {
	cli, err := Connect(opts)
	if err != nil {
		log.Log().WithFields(log.Fields{"dbName": opts.DBName, "err": err}).Panic("fail to dial mongo")
	}
	return cli
}

// Connect returns a client that always waits for majority write concern.
// Ledger transactions need a replica set, so a standalone server is rejected
// by the first transaction rather than here.
func Connect(opts Options) (*Client, error) {
	connSetting, err := connstring.Parse(opts.URI)
	if err != nil {
		log.Log().WithFields(log.Fields{"dbName": opts.DBName, "err": err}).Error("fail to parse connstring")
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	clientOpts.SetSocketTimeout(socketTimeout)
	if connSetting.Username != "" && connSetting.AuthSource == "" && opts.AuthDBName != "" {
		clientOpts.SetAuth(options.Credential{
			AuthMechanism:           connSetting.AuthMechanism,
			AuthMechanismProperties: connSetting.AuthMechanismProperties,
			Username:                connSetting.Username,
			Password:                connSetting.Password,
			PasswordSet:             connSetting.PasswordSet,
			AuthSource:              opts.AuthDBName,
		})
	}

	multiplier := opts.PoolSizeMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	// each host keeps its own pool
	poolSize := int(float64(runtime.NumCPU()) * multiplier)
	if hosts := len(connSetting.Hosts); hosts > 0 {
		poolSize = (poolSize + hosts - 1) / hosts
	}
	if poolSize < 1 {
		poolSize = 1
	}
	clientOpts.SetMinPoolSize(uint64(poolSize / 4))
	clientOpts.SetMaxPoolSize(uint64(poolSize))

	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{})
	}
	clientOpts.SetWriteConcern(writeconcern.New(writeconcern.WMajority()))
	clientOpts.SetRetryWrites(true)

	c, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(c, clientOpts)
	if err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": connSetting.Hosts,
			"dbName":     opts.DBName,
			"err":        err,
		}).Error("fail to connect mongo")
		return nil, err
	}
	if err := client.Ping(c, readpref.Primary()); err != nil {
		log.Log().WithFields(log.Fields{
			"mongoHosts": connSetting.Hosts,
			"dbName":     opts.DBName,
			"err":        err,
		}).Error("fail to ping mongo")
		return nil, err
	}

	log.Log().WithFields(log.Fields{
		"mongoHosts": connSetting.Hosts,
		"db":         opts.DBName,
		"poolSize":   poolSize,
	}).Info("mongo connected")
	return &Client{
		Client: client,
		DbName: opts.DBName,
	}, nil
}
