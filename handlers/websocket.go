package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"rollcall/events"
	"rollcall/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
)

const (
	liveSendBuffer   = 32
	liveWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveClient is one open connection; only its writer goroutine touches the socket
type liveClient struct {
	send chan []byte
}

// liveClients is needed as a user may be connected more than once
type liveClients []*liveClient

// LiveFeed pushes attendance events to connected HR dashboards. It implements events.Sink.
type LiveFeed struct {
	clients cmap.ConcurrentMap[string, liveClients]
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{clients: cmap.New[liveClients]()}
}

func (f *LiveFeed) addClient(id string, c *liveClient) {
	f.clients.Upsert(id, liveClients{c}, func(exist bool, valueInMap, newValue liveClients) liveClients {
		if exist {
			return append(valueInMap, c)
		}
		return newValue
	})
}

func (f *LiveFeed) removeClient(id string, c *liveClient) {
	f.clients.Upsert(id, liveClients{}, func(exist bool, valueInMap, newValue liveClients) liveClients {
		if !exist {
			return newValue
		}
		for _, oc := range valueInMap {
			if oc == c {
				continue
			}
			newValue = append(newValue, oc)
		}
		return newValue
	})
	f.clients.RemoveCb(id, func(key string, v liveClients, exists bool) bool {
		return exists && len(v) == 0
	})
}

// Clients returns the number of open connections
func (f *LiveFeed) Clients() (n int) {
	for item := range f.clients.IterBuffered() {
		n += len(item.Val)
	}
	return
}

// Publish never blocks: a client that does not keep up misses events
func (f *LiveFeed) Publish(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		zap.S().Errorf("Live feed: %v", err)
		return
	}
	for item := range f.clients.IterBuffered() {
		for _, client := range item.Val {
			select {
			case client.send <- data:
			default:
				zap.S().Debugf("Live feed: client of user %s is slow, event dropped", item.Key)
			}
		}
	}
}

func (f *LiveFeed) Serve(c *gin.Context, user *models.User) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Debugf("Live feed upgrade: %v", err)
		return
	}
	defer conn.Close()

	id := strconv.FormatUint(user.ID, 10)
	client := &liveClient{send: make(chan []byte, liveSendBuffer)}
	f.addClient(id, client)
	defer f.removeClient(id, client)

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case data := <-client.send:
				_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					zap.S().Debugf("Live feed write: %v", err)
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Main read cycle, the dashboard only sends keep-alives
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(message) == "ping" {
			select {
			case client.send <- []byte("pong"):
			default:
			}
		}
	}
}
