package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLogFansOutToSubscribers(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.WriteLog("hello", Info)

	select {
	case e := <-ch:
		assert.Equal(t, "hello", e.Text)
		assert.Equal(t, Info, e.Level)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log entry")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe()
	unsub()
	b.WriteLog("after unsub", Warn)

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after unsubscribe")
}

func TestVerboseKeysAndTracedIDs(t *testing.T) {
	b := New()
	assert.False(t, b.Verbose("netio"))
	b.SetVerbose("netio", true)
	assert.True(t, b.Verbose("netio"))
	b.SetVerbose("netio", false)
	assert.False(t, b.Verbose("netio"))

	assert.False(t, b.Traced(0x33))
	b.SetTraced(0x33, true)
	assert.True(t, b.Traced(0x33))
}

func TestRecoverEscalatesToInstalledHook(t *testing.T) {
	b := New()
	var caught any
	b.SetPanicHook(func(v any) { caught = v })

	func() {
		defer b.Recover()
		panic("boom")
	}()

	require.NotNil(t, caught)
	assert.Equal(t, "boom", caught)
}

func TestRecoverWithNoHookRepanics(t *testing.T) {
	b := New()
	assert.Panics(t, func() {
		defer b.Recover()
		panic("uncaught")
	})
}
