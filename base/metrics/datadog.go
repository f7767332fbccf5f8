package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/x-xyz/cloutledger/base/log"
)

const (
	ddClientsSize    = 16 // needs to be 2^n
	ddClientsIdxMask = ddClientsSize - 1

	// buffer 10 counters before sending to statsd
	bufferMetrics = 10
	sampleRate    = 1
)

var (
	initOnce = sync.Once{}
	conf     = Config{Port: 8125}

	// ddClientsIdx is used for accessing ddClients by round robin scheduling
	ddClientsIdx = int32(0)
	ddClients    []statsCli
	ddTags       []string
)

// Config points metrics at a datadog agent.
type Config struct {
	Host string
	Port int
	Env  string
	App  string
}

// Setup must run before the first bump to take effect. An empty Host keeps
// metrics in the debug log.
func Setup(c Config) {
	if c.Port == 0 {
		c.Port = conf.Port
	}
	conf = c
}

func initDDClient() {
	ddTags = []string{
		"host:", // drop the agent host tag
		"env:" + conf.Env,
		"app:" + conf.App,
	}
	ddClients = make([]statsCli, ddClientsSize)
	if conf.Host == "" {
		for i := range ddClients {
			ddClients[i] = logClient{}
		}
		return
	}

	addr := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
	log.Log().WithField("addr", addr).Info("connecting to datadog agent")
	for i := 0; i < ddClientsSize; i++ {
		cli, err := statsd.NewBuffered(addr, bufferMetrics)
		if err != nil {
			log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
		}
		ddClients[i] = cli
	}
}

type statsCli interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

func nextClient() statsCli {
	initOnce.Do(initDDClient)
	i := atomic.AddInt32(&ddClientsIdx, 1) & ddClientsIdxMask
	return ddClients[i]
}

// DDMetrics sends bumps to the shared statsd clients.
type DDMetrics struct{}

// BumpAvg is a gauge, datadog has no average-only type.
func (dm *DDMetrics) BumpAvg(key string, val float64, tags ...string) {
	if err := nextClient().Gauge(key, val, withGlobalTags(tags), sampleRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "val": val, "func": "BumpAvg"}).Error("Bump fail")
	}
}

func (dm *DDMetrics) BumpSum(key string, val float64, tags ...string) {
	if err := nextClient().Count(key, int64(val), withGlobalTags(tags), sampleRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "val": val, "func": "BumpSum"}).Error("Bump fail")
	}
}

func (dm *DDMetrics) BumpHistogram(key string, val float64, tags ...string) {
	if err := nextClient().Histogram(key, val, withGlobalTags(tags), sampleRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": key, "val": val, "func": "BumpHistogram"}).Error("Bump fail")
	}
}

func (dm *DDMetrics) BumpTime(key string, tags ...string) Ender {
	return &ddTimeTracker{
		start: time.Now(),
		key:   key,
		tags:  withGlobalTags(tags),
	}
}

func withGlobalTags(tags []string) []string {
	initOnce.Do(initDDClient)
	return append(append([]string{}, ddTags...), parseTag(tags)...)
}

func parseTag(tags []string) []string {
	if tags == nil {
		return nil
	}
	if len(tags)%2 != 0 {
		log.Log().WithField("tags", tags).Panic("tag length needs to be multiple of 2")
	}
	arr := make([]string, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		arr[i/2] = tags[i] + ":" + tags[i+1]
	}
	return arr
}

type ddTimeTracker struct {
	start time.Time
	key   string
	tags  []string
}

func (dt *ddTimeTracker) End() {
	dur := float64(time.Since(dt.start)) / float64(time.Millisecond)
	if err := nextClient().TimeInMilliseconds(dt.key, dur, dt.tags, sampleRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": dt.key, "val": dur, "func": "BumpTime"}).Error("Bump fail")
	}
}
