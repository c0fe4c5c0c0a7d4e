package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishIsBusinessScoped(t *testing.T) {
	h := NewHub()
	a := NewClient("biz-a")
	b := NewClient("biz-b")
	h.Register(a)
	h.Register(b)

	h.Publish("biz-a", Event{Type: "pass_prepared", StationID: "st-1"})

	require.Len(t, a.Send, 1)
	assert.Len(t, b.Send, 0)

	var ev Event
	require.NoError(t, json.Unmarshal(<-a.Send, &ev))
	assert.Equal(t, "pass_prepared", ev.Type)
	assert.Equal(t, "st-1", ev.StationID)
	assert.False(t, ev.At.IsZero())
}

func TestHubCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := NewClient("biz-a")
	h.Register(c)
	assert.Equal(t, 1, h.ClientCount("biz-a"))

	c.Close()
	c.Close()
	assert.Equal(t, 0, h.ClientCount("biz-a"))

	// publishing after close must not panic on the closed channel
	h.Publish("biz-a", Event{Type: "pass_claimed"})
}

func TestHubPublishDropsWhenClientIsSlow(t *testing.T) {
	h := NewHub()
	c := NewClient("biz-a")
	h.Register(c)
	for i := 0; i < cap(c.Send)+10; i++ {
		h.Publish("biz-a", Event{Type: "transaction_settled"})
	}
	assert.Equal(t, cap(c.Send), len(c.Send))
}
