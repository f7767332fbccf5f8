package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	require.Nil(t, parseTag(nil))
	require.Equal(t, []string{"op:stake", "table:pools"}, parseTag([]string{"op", "stake", "table", "pools"}))
	require.Panics(t, func() { parseTag([]string{"dangling"}) })
}

func TestBumpWithoutAgentFallsBackToLog(t *testing.T) {
	m := New("test")
	require.NotPanics(t, func() {
		m.BumpSum("count", 1, "op", "stake")
		m.BumpAvg("avg", 2)
		m.BumpHistogram("hist", 3)
		m.BumpTime("time", "op", "stake").End()
	})
	_, ok := ddClients[0].(logClient)
	require.True(t, ok)
}

func TestOddTagsDoNotPanicCaller(t *testing.T) {
	m := New("test")
	require.NotPanics(t, func() { m.BumpSum("count", 1, "odd") })
}

func TestTagFields(t *testing.T) {
	fields := tagFields([]string{"host:", "env:dev", "op:stake", "bare"})
	require.Equal(t, "dev", fields["tag.env"])
	require.Equal(t, "stake", fields["tag.op"])
	require.Len(t, fields, 2)
}
