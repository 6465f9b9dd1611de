package rest

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ammoru/pulseroom/internal/room"
	"github.com/ammoru/pulseroom/util"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoin  = "poll:join"
	MsgTypeLeave = "poll:leave"
)

// SocketMessage is an inbound subscription control message.
type SocketMessage struct {
	Type   string `json:"type"`
	PollID string `json:"pollId"`
}

type socketError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wsConn adapts a gorilla connection to the room.Conn write side.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) WriteSnapshot(payload []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (api *API) upgrader() websocket.Upgrader {
	allowed := api.Config.AllowedOrigin
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowed == "" {
				return true
			}
			return r.Header.Get("Origin") == allowed
		},
	}
}

// HandlePollSocket upgrades the request and runs the subscription loop.
// The client joins one poll room at a time; a read error of any kind is a
// disconnect and leaves the current room.
func (api *API) HandlePollSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := api.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket Upgrade Error:", err)
		return
	}

	sub := room.NewSubscriber(&wsConn{conn: conn})
	go sub.Run()

	joined := false
	var joinedPoll uuid.UUID

	defer func() {
		if joined {
			api.Deps.Rooms.Leave(joinedPoll, sub)
		}
		sub.Close()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg SocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Println("Invalid JSON:", err)
			continue
		}

		switch msg.Type {
		case MsgTypeJoin:
			pollID, err := util.StringToUUID(msg.PollID)
			if err != nil {
				offerSocketError(sub, "poll not found")
				continue
			}
			current, err := api.Deps.Store.Get(r.Context(), pollID)
			if err != nil {
				offerSocketError(sub, "poll not found")
				continue
			}

			if joined {
				api.Deps.Rooms.Leave(joinedPoll, sub)
			}
			api.Deps.Rooms.Join(pollID, sub, current)
			joined = true
			joinedPoll = pollID

		case MsgTypeLeave:
			if joined {
				api.Deps.Rooms.Leave(joinedPoll, sub)
				joined = false
			}
		}
	}
}

// offerSocketError queues an error frame through the subscriber so the
// writer goroutine stays the connection's only writer. Error frames take
// the control channel and never displace a pending snapshot.
func offerSocketError(sub *room.Subscriber, message string) {
	payload, err := json.Marshal(socketError{Type: "poll:error", Message: message})
	if err != nil {
		return
	}
	sub.OfferControl(payload)
}
