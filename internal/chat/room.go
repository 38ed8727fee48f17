package chat

import (
	"sync"

	"github.com/GeoFlame/GeoChat/internal/metrics"
	"github.com/GeoFlame/GeoChat/internal/protocol"
)

// Room 由房间码标识，持有历史、占用名集合、封禁名单、创建者与可见性。
// 所有读写都在 mu 的临界区内进行，保证同房间的事件串行化。
type Room struct {
	Code    string
	Public  bool
	Creator string

	mu      sync.Mutex
	closed  bool
	history []protocol.Message
	limit   int
	members map[string]*Conn
	bans    map[string]struct{}
}

// 在已持有 r.mu 的前提下追加历史，超出上限时淘汰最旧的记录。
func (r *Room) appendHistory(m protocol.Message) {
	r.history = append(r.history, m)
	if r.limit > 0 && len(r.history) > r.limit {
		r.history = r.history[len(r.history)-r.limit:]
	}
}

// 在已持有 r.mu 的前提下拷贝历史快照，入房回放用。
func (r *Room) snapshotHistory() []protocol.Message {
	out := make([]protocol.Message, len(r.history))
	copy(out, r.history)
	return out
}

// 在已持有 r.mu 的前提下向成员广播，except 为 nil 时发给所有人。
func (r *Room) broadcast(e protocol.Event, except *Conn) {
	for _, m := range r.members {
		if m == except {
			continue
		}
		if !m.deliver(e) {
			// 接收方缓冲打满，强制断开，由断开路径走 Leave。
			m.sess.Kill()
		}
	}
}

// Online 返回房间当前成员数，供房间目录复用。
func (r *Room) Online() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Store 独占持有全部活跃房间，键为房间码。persistentBans 打开时，
// 被销毁房间的封禁名单会在 bans 里存续，重建同码房间时回灌。
type Store struct {
	mu             sync.RWMutex
	rooms          map[string]*Room
	historyLimit   int
	persistentBans bool
	bans           map[string]map[string]struct{}
}

func NewStore(historyLimit int, persistentBans bool) *Store {
	return &Store{
		rooms:          make(map[string]*Room),
		historyLimit:   historyLimit,
		persistentBans: persistentBans,
		bans:           make(map[string]map[string]struct{}),
	}
}

// GetOrCreate 懒创建房间：首个引用未知房间码的入房请求触发创建，
// 创建者与可见性只在创建时落定，之后的请求不覆盖。
func (s *Store) GetOrCreate(code string, public bool, creator string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[code]; ok {
		return r, false
	}
	r := &Room{
		Code:    code,
		Public:  public,
		Creator: creator,
		limit:   s.historyLimit,
		members: make(map[string]*Conn),
		bans:    make(map[string]struct{}),
	}
	if s.persistentBans {
		for name := range s.bans[code] {
			r.bans[name] = struct{}{}
		}
	}
	s.rooms[code] = r
	metrics.RoomsActive.Inc()
	return r, true
}

// Lookup 按房间码解析，不存在时返回 nil。
func (s *Store) Lookup(code string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// Remove 销毁房间。只在表项仍指向同一实例时删除，避免误删
// 同码重建的新房间。调用方必须已将 r 标记为 closed。
func (s *Store) Remove(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[r.Code] != r {
		return
	}
	delete(s.rooms, r.Code)
	if s.persistentBans && len(r.bans) > 0 {
		saved := make(map[string]struct{}, len(r.bans))
		for name := range r.bans {
			saved[name] = struct{}{}
		}
		s.bans[r.Code] = saved
	}
	metrics.RoomsActive.Dec()
}

// Public 返回公开房间目录。先快照再逐房取锁，不在持有
// store 锁时进入任何房间的临界区。
func (s *Store) Public() []protocol.RoomInfo {
	s.mu.RLock()
	snapshot := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		snapshot = append(snapshot, r)
	}
	s.mu.RUnlock()

	out := make([]protocol.RoomInfo, 0, len(snapshot))
	for _, r := range snapshot {
		r.mu.Lock()
		if r.Public && !r.closed {
			out = append(out, protocol.RoomInfo{Code: r.Code, Online: len(r.members)})
		}
		r.mu.Unlock()
	}
	return out
}

// All 返回当前全部房间的快照，供跨房间清扫逐个取锁处理。
func (s *Store) All() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Len 返回活跃房间数。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
