package metrics

import (
	"strings"

	"github.com/x-xyz/cloutledger/base/log"
)

// logClient stands in for statsd while no agent host is set. Each bump is a
// single debug line carrying its tags as fields.
type logClient struct{}

func (logClient) write(kind, name string, value interface{}, tags []string) error {
	fields := tagFields(tags)
	fields["metric"] = name
	fields["kind"] = kind
	fields["val"] = value
	log.Log().WithFields(fields).Debug("metric")
	return nil
}

func (lc logClient) Gauge(name string, value float64, tags []string, _ float64) error {
	return lc.write("gauge", name, value, tags)
}

func (lc logClient) Count(name string, value int64, tags []string, _ float64) error {
	return lc.write("count", name, value, tags)
}

func (lc logClient) Histogram(name string, value float64, tags []string, _ float64) error {
	return lc.write("histogram", name, value, tags)
}

func (lc logClient) TimeInMilliseconds(name string, value float64, tags []string, _ float64) error {
	return lc.write("ms", name, value, tags)
}

// tagFields spreads "key:value" tags into fields. Tags without a value, like
// the blank host tag, are dropped.
func tagFields(tags []string) log.Fields {
	fields := log.Fields{}
	for _, tag := range tags {
		if k, v, ok := strings.Cut(tag, ":"); ok && v != "" {
			fields["tag."+k] = v
		}
	}
	return fields
}
