package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/stake-plus/crisistruth/src/logging"
	"github.com/stake-plus/crisistruth/src/realtime"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 32
	wsMaxTopics  = 16
)

type wsMessage struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data"`
	Time  string      `json:"time"`
}

// Live streams relay updates to websocket clients.
type Live struct {
	relay    *realtime.Relay
	upgrader websocket.Upgrader
	log      *log.Logger
}

func NewLive(relay *realtime.Relay) Live {
	return Live{
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logging.Component("ws"),
	}
}

// Serve handles GET /ws?topic=claim:<id>,crisis:<id>.
func (l Live) Serve(c *gin.Context) {
	var topics []string
	for _, t := range strings.Split(c.Query("topic"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 || len(topics) > wsMaxTopics {
		c.JSON(http.StatusBadRequest, gin.H{"err": "topic must name 1 to 16 topics"})
		return
	}
	for _, t := range topics {
		if err := realtime.ValidTopic(t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
	}

	conn, err := l.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.log.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	send := make(chan wsMessage, wsSendBuffer)
	var unsubs []func()
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()
	for _, t := range topics {
		unsub, err := l.relay.Subscribe(t, func(u realtime.Update) {
			msg := wsMessage{Type: u.Type, Topic: u.Topic, Data: u.Payload, Time: time.Now().UTC().Format(time.RFC3339)}
			select {
			case send <- msg:
			default:
				l.log.Warn("slow websocket client, dropping update", "topic", u.Topic)
			}
		})
		if err != nil {
			_ = conn.WriteJSON(wsMessage{Type: "error", Data: err.Error(), Time: time.Now().UTC().Format(time.RFC3339)})
			return
		}
		unsubs = append(unsubs, unsub)
	}

	_ = conn.WriteJSON(wsMessage{Type: "init", Data: gin.H{"topics": topics}, Time: time.Now().UTC().Format(time.RFC3339)})

	// The read loop only exists to notice disconnects and answer pongs.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
