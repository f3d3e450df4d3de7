package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := New()

	var got1, got2 []Notification
	b.Subscribe(func(n Notification) { got1 = append(got1, n) })
	b.Subscribe(func(n Notification) { got2 = append(got2, n) })

	b.Publish(KindPatientAdded, map[string]string{"id": "p-1"})

	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
	assert.Equal(t, KindPatientAdded, got1[0].Kind)
	assert.JSONEq(t, `{"id":"p-1"}`, string(got1[0].Data))
}

func TestPublish_NoSelfExclusion(t *testing.T) {
	b := New()

	// A subscriber that publishes still receives its own notification.
	var got []Kind
	b.Subscribe(func(n Notification) { got = append(got, n.Kind) })

	b.Publish(KindResultsCleared, nil)

	assert.Equal(t, []Kind{KindResultsCleared}, got)
}

func TestPublish_NilDataOmitted(t *testing.T) {
	b := New()

	var got Notification
	b.Subscribe(func(n Notification) { got = n })

	b.Publish(KindFormCleared, nil)

	assert.Nil(t, got.Data)

	wire, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), `"data"`)
}

func TestPublish_StampsTimestamp(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	b := New(WithClock(func() time.Time { return fixed }))

	var got Notification
	b.Subscribe(func(n Notification) { got = n })

	b.Publish(KindDraftSaved, nil)

	assert.Equal(t, fixed.UnixMilli(), got.Timestamp)
}

func TestPublish_UnencodablePayloadDropped(t *testing.T) {
	b := New()

	var got Notification
	b.Subscribe(func(n Notification) { got = n })

	// A channel cannot be JSON-encoded; the notification still goes out.
	b.Publish(KindResultsUpdated, make(chan int))

	assert.Equal(t, KindResultsUpdated, got.Kind)
	assert.Nil(t, got.Data)
}

func TestSubscription_Cancel(t *testing.T) {
	b := New()

	calls := 0
	sub := b.Subscribe(func(Notification) { calls++ })
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(KindPatientAdded, nil)
	sub.Cancel()
	b.Publish(KindPatientAdded, nil)

	assert.Equal(t, 1, calls, "cancelled subscriber must not receive")
	assert.Equal(t, 0, b.SubscriberCount())

	// Cancel is idempotent
	sub.Cancel()
}

func TestSubscribe_LateSubscriberGetsNoReplay(t *testing.T) {
	b := New()

	b.Publish(KindPatientAdded, nil)

	var got []Notification
	b.Subscribe(func(n Notification) { got = append(got, n) })

	assert.Empty(t, got, "no replay for subscribers added after publish")
}

func TestNopBus_Degrades(t *testing.T) {
	b := NewNop()

	calls := 0
	sub := b.Subscribe(func(Notification) { calls++ })
	b.Publish(KindPatientAdded, nil)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, b.SubscriberCount())
	sub.Cancel() // must not panic
}

func TestHandler_MayPublishReentrantly(t *testing.T) {
	b := New()

	var kinds []Kind
	b.Subscribe(func(n Notification) {
		kinds = append(kinds, n.Kind)
		if n.Kind == KindPatientAdded {
			b.Publish(KindResultsUpdated, nil)
		}
	})

	b.Publish(KindPatientAdded, nil)

	assert.Equal(t, []Kind{KindPatientAdded, KindResultsUpdated}, kinds)
}

func TestNotification_WireFormat(t *testing.T) {
	n := Notification{
		Kind:      KindPatientAdded,
		Data:      json.RawMessage(`{"id":"p-1"}`),
		Timestamp: 1718452800000,
	}

	wire, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"patient-added","data":{"id":"p-1"},"timestamp":1718452800000}`, string(wire))
}
