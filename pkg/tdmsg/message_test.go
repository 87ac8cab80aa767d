package tdmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_TypeAndExtra(t *testing.T) {
	m := New("getOption", map[string]any{"name": "version"})
	assert.Equal(t, "getOption", m.Type())
	assert.Empty(t, m.ExtraID())

	m.SetExtraID("deadbeef")
	assert.Equal(t, "deadbeef", m.ExtraID())

	// The envelope survives a codec round trip.
	data, err := Encode(m)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", got.ExtraID())
}

func TestMessage_Accessors(t *testing.T) {
	m := Message{
		TypeField: "updateAuthorizationState",
		"authorization_state": map[string]any{
			TypeField: "authorizationStateWaitCode",
		},
	}

	assert.Equal(t, "authorizationStateWaitCode", m.Object("authorization_state").Type())
	assert.Nil(t, m.Object("missing"))
	assert.Empty(t, m.String("missing"))

	ids := Message{"chat_id": float64(-1001234567890), "count": 3}
	assert.EqualValues(t, -1001234567890, ids.Int64("chat_id"))
	assert.EqualValues(t, 3, ids.Int64("count"))
	assert.Zero(t, ids.Int64("missing"))
}

func TestNewExtraID_ShapeAndUniqueness(t *testing.T) {
	const n = 1000

	seen := make(map[string]struct{}, n)
	for range n {
		id := NewExtraID()
		require.Len(t, id, extraIDBytes*2)

		_, dup := seen[id]
		require.False(t, dup, "duplicate extra id %s", id)
		seen[id] = struct{}{}
	}
}
