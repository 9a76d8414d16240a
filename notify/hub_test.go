package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(nil)
	go h.Run(ctx)
	return h
}

func join(t *testing.T, h *Hub, tournamentID int) *Client {
	t.Helper()
	c := &Client{Hub: h, Send: make(chan []byte, 4), Room: RoomFor(tournamentID)}
	h.Register <- c
	require.Eventually(t, func() bool { return h.RoomSize(c.Room) > 0 }, time.Second, 5*time.Millisecond)
	return c
}

func TestPublishReachesOnlyTournamentRoom(t *testing.T) {
	h := startHub(t)
	follower := join(t, h, 7)
	other := join(t, h, 8)

	h.Publish(7, "ROUND_CREATED", map[string]int{"round": 2})

	select {
	case raw := <-follower.Send:
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]int `json:"payload"`
			RoomID  string         `json:"room_id"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "ROUND_CREATED", msg.Type)
		assert.Equal(t, "tournament_7", msg.RoomID)
		assert.Equal(t, 2, msg.Payload["round"])
	case <-time.After(time.Second):
		t.Fatal("follower did not receive the event")
	}
	assert.Empty(t, other.Send)
}

func TestUnregisterClosesClientAndRoom(t *testing.T) {
	h := startHub(t)
	c := join(t, h, 3)

	h.Unregister <- c
	require.Eventually(t, func() bool { return h.RoomSize(c.Room) == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)

	// публикация в пустую комнату ничего не делает
	h.Publish(3, "RESULT_RECORDED", nil)
}

func TestFullBufferDropsMessage(t *testing.T) {
	h := startHub(t)
	c := &Client{Hub: h, Send: make(chan []byte, 1), Room: RoomFor(1)}
	h.Register <- c
	require.Eventually(t, func() bool { return h.RoomSize(c.Room) == 1 }, time.Second, 5*time.Millisecond)

	h.Publish(1, "A", nil)
	h.Publish(1, "B", nil)

	require.Len(t, c.Send, 1)
	assert.Contains(t, string(<-c.Send), `"type":"A"`)
}
