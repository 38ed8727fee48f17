package chat

import (
	"sync"

	"github.com/google/uuid"

	"github.com/GeoFlame/GeoChat/internal/protocol"
)

// Session 是核心对传输层连接的唯一依赖：尽力投递与强制断开。
// 投递不提供回压，返回值仅表示本次是否入队成功。
type Session interface {
	Deliver(e protocol.Event) bool
	Kill()
}

// Conn 是一条活跃连接在核心里的记录。房间与展示名只保存引用
// （房间码 + 名字），不持有 Room 内部指针，房间销毁后由码重新解析。
type Conn struct {
	id   string
	sess Session

	mu     sync.Mutex
	name   string
	room   string
	kicked bool
	banned bool
}

// ID 返回核心分配的连接标识。
func (c *Conn) ID() string { return c.id }

// Name 返回入房成功后绑定的展示名，未入房时为空。
func (c *Conn) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Room 返回当前绑定的房间码，未入房时为空。
func (c *Conn) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Conn) bind(room, name string) {
	c.mu.Lock()
	c.room = room
	c.name = name
	c.kicked = false
	c.banned = false
	c.mu.Unlock()
}

func (c *Conn) clear() {
	c.mu.Lock()
	c.room = ""
	c.name = ""
	c.mu.Unlock()
}

func (c *Conn) markKicked() {
	c.mu.Lock()
	c.kicked = true
	c.mu.Unlock()
}

func (c *Conn) markBanned() {
	c.mu.Lock()
	c.banned = true
	c.mu.Unlock()
}

// silenced 在踢出/封禁标记落下之后、传输层尚未完成断开之前抑制广播。
func (c *Conn) silenced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kicked || c.banned
}

func (c *Conn) deliver(e protocol.Event) bool { return c.sess.Deliver(e) }

// Registry 持有全部活跃连接记录，按连接 ID 与展示名检索。
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewRegistry() *Registry { return &Registry{conns: make(map[string]*Conn)} }

// Add 为一条新传输会话分配连接记录。
func (r *Registry) Add(sess Session) *Conn {
	c := &Conn{id: uuid.NewString(), sess: sess}
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
	return c
}

// Remove 在传输断开后销毁连接记录。
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Get 按连接 ID 查找。
func (r *Registry) Get(id string) *Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

// ByName 返回所有正在使用该展示名的连接，跨房间检索，供全局封禁清扫。
func (r *Registry) ByName(name string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Conn
	for _, c := range r.conns {
		if c.Name() == name {
			out = append(out, c)
		}
	}
	return out
}

// Len 返回活跃连接数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
