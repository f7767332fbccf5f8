/*Package metrics wraps datadog-go to faciliate metric recording
Following are naming convention of metric:
- Internal process time: *.time
- Error: *.err
- Business counters: *.count, *.amount
*/
package metrics

import (
	"strings"
)

// Ender provides interface for BumpTime
type Ender interface {
	End()
}

// Service provides interface for metrics
type Service interface {
	BumpAvg(key string, val float64, tags ...string)
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)

	BumpTime(key string, tags ...string) Ender
}

// New creates a metric client with pkgName as key prefix. Until Setup is
// called with an agent host, metrics are written to the debug log.
func New(pkgName string) Service {
	return &Metrics{
		pkgName: pkgName,
		datadog: DDMetrics{},
	}
}

// Metrics prefixes every key with its package name.
type Metrics struct {
	pkgName string
	datadog DDMetrics
}

func (mt *Metrics) key(key string) string {
	return mt.pkgName + `.` + key
}

// recoverBump keeps a malformed tag list from taking the caller down.
func (mt *Metrics) recoverBump(typ, key string, tags []string) {
	if err := recover(); err != nil {
		mt.datadog.BumpSum(typ+".panic", 1, "tag", mt.key(key)+"#"+strings.Join(tags, "#"))
	}
}

// BumpAvg bumps the average for the given key.
func (mt *Metrics) BumpAvg(key string, val float64, tags ...string) {
	defer mt.recoverBump("bumpavg", key, tags)
	mt.datadog.BumpAvg(mt.key(key), val, tags...)
}

// BumpSum bumps the sum for the given key.
func (mt *Metrics) BumpSum(key string, val float64, tags ...string) {
	defer mt.recoverBump("bumpsum", key, tags)
	mt.datadog.BumpSum(mt.key(key), val, tags...)
}

// BumpHistogram bumps the histogram for the given key.
func (mt *Metrics) BumpHistogram(key string, val float64, tags ...string) {
	defer mt.recoverBump("bumphistogram", key, tags)
	mt.datadog.BumpHistogram(mt.key(key), val, tags...)
}

// BumpTime starts a timer and reports it when End is called:
//
//     defer s.BumpTime("my.function").End()
func (mt *Metrics) BumpTime(key string, tags ...string) (e Ender) {
	e = fakeEnd{}
	defer mt.recoverBump("bumptime", key, tags)
	return mt.datadog.BumpTime(mt.key(key), tags...)
}

type fakeEnd struct{}

func (fakeEnd) End() {}
