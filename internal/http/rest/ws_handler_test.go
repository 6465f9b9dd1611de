package rest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ammoru/pulseroom/internal/room"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialSocket(t *testing.T, srvURL string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) room.UpdateMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg room.UpdateMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func joinPoll(t *testing.T, conn *websocket.Conn, pollID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(SocketMessage{Type: MsgTypeJoin, PollID: pollID}))
}

func TestSocketJoinDeliversCurrentSnapshot(t *testing.T) {
	_, srv := newTestServer(t)
	poll := createTestPoll(t, srv, "Pick a color", []string{"Red", "Blue"})

	// Two votes land before the subscriber joins.
	castTestVote(t, srv, poll.ID.String(), poll.Options[1].ID.String(), "v1")
	castTestVote(t, srv, poll.ID.String(), poll.Options[1].ID.String(), "v2")

	conn := dialSocket(t, srv.URL)
	joinPoll(t, conn, poll.ID.String())

	msg := readUpdate(t, conn)
	assert.Equal(t, room.MsgTypeUpdate, msg.Type)
	assert.Equal(t, 2, msg.Poll.TotalVotes)
	assert.Equal(t, map[string]int{"Red": 0, "Blue": 2}, votesByText(msg.Poll))
}

func TestSocketReceivesVoteUpdates(t *testing.T) {
	_, srv := newTestServer(t)
	poll := createTestPoll(t, srv, "Pick a color", []string{"Red", "Blue"})

	conn := dialSocket(t, srv.URL)
	joinPoll(t, conn, poll.ID.String())

	initial := readUpdate(t, conn)
	require.Equal(t, 0, initial.Poll.TotalVotes)

	castTestVote(t, srv, poll.ID.String(), poll.Options[0].ID.String(), "v1")

	// Updates may coalesce, but the latest delivered snapshot must
	// reflect the vote.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msg := readUpdate(t, conn)
		if msg.Poll.TotalVotes == 1 {
			assert.Equal(t, map[string]int{"Red": 1, "Blue": 0}, votesByText(msg.Poll))
			return
		}
		require.True(t, time.Now().Before(deadline), "vote update never arrived")
	}
}

func TestSocketVoterSeesOwnVoteOnOtherSession(t *testing.T) {
	_, srv := newTestServer(t)
	poll := createTestPoll(t, srv, "Pick a color", []string{"Red", "Blue"})

	// The voter's second session subscribes before the vote.
	otherSession := dialSocket(t, srv.URL)
	joinPoll(t, otherSession, poll.ID.String())
	readUpdate(t, otherSession)

	castTestVote(t, srv, poll.ID.String(), poll.Options[0].ID.String(), "v1")

	msg := readUpdate(t, otherSession)
	assert.Equal(t, 1, msg.Poll.TotalVotes)
}

func TestSocketJoinUnknownPoll(t *testing.T) {
	_, srv := newTestServer(t)

	conn := dialSocket(t, srv.URL)
	joinPoll(t, conn, "00000000-0000-0000-0000-000000000001")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "poll:error", msg.Type)
	assert.NotEmpty(t, msg.Message)
}

func TestSocketDisconnectLeavesRoom(t *testing.T) {
	api, srv := newTestServer(t)
	poll := createTestPoll(t, srv, "Pick a color", []string{"Red", "Blue"})

	conn := dialSocket(t, srv.URL)
	joinPoll(t, conn, poll.ID.String())
	readUpdate(t, conn)

	require.Equal(t, 1, api.Deps.Rooms.RoomSize(poll.ID))

	// No explicit leave message: closing the transport is enough.
	require.NoError(t, conn.Close())

	deadline := time.Now().Add(2 * time.Second)
	for api.Deps.Rooms.RoomSize(poll.ID) != 0 {
		require.True(t, time.Now().Before(deadline), "disconnect did not leave the room")
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSocketExplicitLeaveStopsUpdates(t *testing.T) {
	api, srv := newTestServer(t)
	poll := createTestPoll(t, srv, "Pick a color", []string{"Red", "Blue"})

	conn := dialSocket(t, srv.URL)
	joinPoll(t, conn, poll.ID.String())
	readUpdate(t, conn)

	require.NoError(t, conn.WriteJSON(SocketMessage{Type: MsgTypeLeave}))

	deadline := time.Now().Add(2 * time.Second)
	for api.Deps.Rooms.RoomSize(poll.ID) != 0 {
		require.True(t, time.Now().Before(deadline), "leave message did not leave the room")
		time.Sleep(5 * time.Millisecond)
	}
}
