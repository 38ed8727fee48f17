package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GeoFlame/GeoChat/internal/chat"
	"github.com/GeoFlame/GeoChat/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 是一条 WebSocket 连接的传输侧，实现 chat.Session。
// 投递走缓冲 channel 的非阻塞发送，没有回压；慢接收方打满缓冲后
// 由核心强制断开。
type Client struct {
	svc  *chat.Service
	conn *websocket.Conn
	send chan protocol.Event
	done chan struct{}
	once sync.Once
}

// Deliver 尽力投递一条出站事件，入队失败返回 false。
func (c *Client) Deliver(e protocol.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- e:
		return true
	default:
		return false
	}
}

// Kill 发起强制断开。只关闭 done，由 writePump 把已入队的事件
// （踢出/封禁通知）冲刷完再关底层连接，保证目标在断开前能看到通知。
func (c *Client) Kill() {
	c.once.Do(func() { close(c.done) })
}

// Serve 升级 WebSocket 并把连接交给核心。
func Serve(svc *chat.Service) gin.HandlerFunc {
	return func(g *gin.Context) {
		conn, err := upgrader.Upgrade(g.Writer, g.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			svc:  svc,
			conn: conn,
			send: make(chan protocol.Event, 256),
			done: make(chan struct{}),
		}
		cc := svc.Connect(client)

		go client.writePump()
		client.readPump(cc)
	}
}

func (c *Client) readPump(cc *chat.Conn) {
	defer func() {
		c.svc.Disconnect(cc)
		c.Kill()
	}()
	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in protocol.Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		c.dispatch(cc, in)
	}
}

func (c *Client) dispatch(cc *chat.Conn, in protocol.Inbound) {
	switch in.Type {
	case protocol.EventJoinRoom:
		if _, err := c.svc.Join(cc, in.RoomCode, in.DisplayName, in.IsPublic); err != nil {
			c.Deliver(protocol.Event{Type: protocol.EventError, RoomCode: in.RoomCode, Reason: reasonOf(err)})
		}
	case protocol.EventLeaveRoom:
		c.svc.Leave(cc)
	case protocol.EventChatMessage:
		c.svc.PostMessage(cc, in.Content)
	case protocol.EventKickUser:
		if err := c.svc.Kick(cc, in.RoomCode, in.Target); err != nil {
			c.Deliver(protocol.SystemNotice(in.RoomCode, reasonOf(err)))
		}
	case protocol.EventBanUser:
		if err := c.svc.Ban(cc, in.RoomCode, in.Target); err != nil {
			c.Deliver(protocol.SystemNotice(in.RoomCode, reasonOf(err)))
		}
	case protocol.EventGlobalBanUser:
		if err := c.svc.GlobalBan(cc, in.Target); err != nil {
			c.Deliver(protocol.SystemNotice("", reasonOf(err)))
		}
	default:
		log.Debug().Str("type", in.Type).Msg("unknown inbound event")
	}
}

// reasonOf 把业务错误映射为稳定的 reason 字符串，供客户端判别。
func reasonOf(err error) string {
	switch {
	case errors.Is(err, chat.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, chat.ErrRoomBanned):
		return "room_banned"
	case errors.Is(err, chat.ErrGloballyBanned):
		return "globally_banned"
	case errors.Is(err, chat.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, chat.ErrTargetNotFound):
		return "not_in_room"
	case errors.Is(err, chat.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, chat.ErrInvalidJoin):
		return "invalid_join"
	}
	return "internal"
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case e := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			b, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			for {
				select {
				case e := <-c.send:
					if b, err := json.Marshal(e); err == nil {
						if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
							return
						}
					}
				default:
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
