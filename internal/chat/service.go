package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GeoFlame/GeoChat/internal/metrics"
	"github.com/GeoFlame/GeoChat/internal/protocol"
)

// Options 收拢核心的全部运行时策略，均来自配置。
type Options struct {
	// AdminName 是特权身份的展示名，唯一可以全局封禁的角色。
	AdminName string
	// HistoryLimit 是单房间历史上限，0 表示不设上限。
	HistoryLimit int
	// Announce 控制入房/离房系统通知是否广播。
	Announce bool
	// PersistentBans 控制房间封禁名单是否在房间销毁后存续。
	PersistentBans bool
}

// Service 实现入房/离房/踢人/封禁状态机与消息广播。
// 同一房间的读改写序列全部收敛在该房间的互斥锁临界区内。
type Service struct {
	opts  Options
	store *Store
	reg   *Registry

	// 全局封禁名单有自己的锁，持有期间只碰名单本身，
	// 从不去拿任何房间锁，避免与入房检查互相等待。
	gmu        sync.Mutex
	globalBans map[string]struct{}
}

func NewService(opts Options) *Service {
	return &Service{
		opts:       opts,
		store:      NewStore(opts.HistoryLimit, opts.PersistentBans),
		reg:        NewRegistry(),
		globalBans: make(map[string]struct{}),
	}
}

// Registry 暴露连接注册表，供传输层与测试使用。
func (s *Service) Registry() *Registry { return s.reg }

func (s *Service) isGloballyBanned(name string) bool {
	s.gmu.Lock()
	defer s.gmu.Unlock()
	_, ok := s.globalBans[name]
	return ok
}

// Connect 在传输连接建立时分配连接记录。
func (s *Service) Connect(sess Session) *Conn {
	c := s.reg.Add(sess)
	metrics.WsConnections.Inc()
	log.Debug().Str("conn", c.ID()).Msg("connected")
	return c
}

// Disconnect 在传输断开时触发离房并销毁连接记录。
func (s *Service) Disconnect(c *Conn) {
	s.Leave(c)
	s.reg.Remove(c.ID())
	metrics.WsConnections.Dec()
	log.Debug().Str("conn", c.ID()).Msg("disconnected")
}

// Join 执行入房状态机：懒创建、全局封禁、房间封禁、名字占用四步
// 检查与名字绑定在同一房间临界区内原子完成，返回入房时刻的历史快照。
func (s *Service) Join(c *Conn, code, name string, public bool) ([]protocol.Message, error) {
	if code == "" || name == "" || name == protocol.SystemName {
		return nil, ErrInvalidJoin
	}
	// 已在别的房间时先离开，单连接同一时刻只属于一个房间。
	if c.Room() != "" {
		s.Leave(c)
	}

	for {
		r, created := s.store.GetOrCreate(code, public, name)
		r.mu.Lock()
		if r.closed {
			// 与最后一名成员的离房清理撞上了，房间实例已作废，重试。
			r.mu.Unlock()
			continue
		}

		var err error
		if s.isGloballyBanned(name) {
			err = ErrGloballyBanned
		} else if _, banned := r.bans[name]; banned {
			err = ErrRoomBanned
		} else if _, taken := r.members[name]; taken {
			err = ErrNameTaken
		}
		if err != nil {
			// 拒绝路径不能留下无人房间，否则违反“房间存在当且仅当有成员”。
			empty := len(r.members) == 0
			if empty {
				r.closed = true
			}
			r.mu.Unlock()
			if empty {
				s.store.Remove(r)
			}
			return nil, err
		}

		r.members[name] = c
		c.bind(code, name)
		snapshot := r.snapshotHistory()
		// 历史回放在临界区内入队，保证新成员先收到 chatHistory，
		// 再收到任何后续广播。
		c.deliver(protocol.Event{Type: protocol.EventJoined, RoomCode: code})
		c.deliver(protocol.Event{Type: protocol.EventChatHistory, RoomCode: code, History: snapshot})
		if s.opts.Announce {
			r.broadcast(protocol.SystemNotice(code, name+" has joined"), c)
		}
		r.mu.Unlock()

		log.Info().Str("room", code).Str("name", name).Bool("created", created).Msg("join")
		return snapshot, nil
	}
}

// Leave 把连接从其房间移除；最后一名成员离开即销毁房间，
// 空房判断只信核心自己的占用名集合。
func (s *Service) Leave(c *Conn) {
	code, name := c.Room(), c.Name()
	if code == "" {
		return
	}
	r := s.store.Lookup(code)
	if r == nil {
		c.clear()
		return
	}

	r.mu.Lock()
	if r.members[name] != c {
		// 名字已被移除（踢出路径）或被同名新连接顶替，无事可做。
		r.mu.Unlock()
		c.clear()
		return
	}
	delete(r.members, name)
	c.clear()
	empty := len(r.members) == 0
	if empty {
		r.closed = true
	} else if s.opts.Announce {
		r.broadcast(protocol.SystemNotice(code, name+" has left"), nil)
	}
	r.mu.Unlock()

	if empty {
		s.store.Remove(r)
		log.Info().Str("room", code).Msg("room torn down")
	}
	log.Info().Str("room", code).Str("name", name).Msg("leave")
}

// PostMessage 追加历史并向当前全部成员（含发送者）按到达顺序广播。
// 房间不存在或连接已被标记踢出/封禁时静默丢弃。
func (s *Service) PostMessage(c *Conn, text string) {
	if text == "" || c.silenced() {
		return
	}
	code, name := c.Room(), c.Name()
	if code == "" {
		return
	}
	r := s.store.Lookup(code)
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.closed || r.members[name] != c {
		r.mu.Unlock()
		return
	}
	msg := protocol.Message{Author: name, Content: text, CreatedAt: time.Now()}
	r.appendHistory(msg)
	r.broadcast(protocol.Event{Type: protocol.EventChatMessage, RoomCode: code, Message: &msg}, nil)
	r.mu.Unlock()

	metrics.WsMessagesTotal.Inc()
}

// GetHistory 返回房间历史快照，只在入房路径之外的调试/目录场景使用。
func (s *Service) GetHistory(code string) []protocol.Message {
	r := s.store.Lookup(code)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotHistory()
}

// 房间级管理权限：房间创建者或配置的特权身份。
func (s *Service) roomAuthority(actor *Conn, r *Room) bool {
	name := actor.Name()
	if name == "" {
		return false
	}
	return name == r.Creator || name == s.opts.AdminName
}

// Kick 把目标移出房间并强制断开。未授权或目标不在房间时不改动
// 任何状态，错误只回给操作者。
func (s *Service) Kick(actor *Conn, code, target string) error {
	return s.eject(actor, code, target, false)
}

// Ban 在 Kick 的效果之上把目标名字加入房间封禁名单，阻止其
// 在房间存续期内以同名再次入房。
func (s *Service) Ban(actor *Conn, code, target string) error {
	return s.eject(actor, code, target, true)
}

func (s *Service) eject(actor *Conn, code, target string, ban bool) error {
	r := s.store.Lookup(code)
	if r == nil {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomNotFound
	}
	if !s.roomAuthority(actor, r) {
		r.mu.Unlock()
		return ErrUnauthorized
	}
	tc := r.members[target]
	if tc == nil {
		r.mu.Unlock()
		return ErrTargetNotFound
	}

	action, event := "kicked", protocol.EventKicked
	if ban {
		action, event = "banned", protocol.EventBanned
		r.bans[target] = struct{}{}
		tc.markBanned()
	} else {
		tc.markKicked()
	}
	// 目标在名字移出集合之前先收到通知，不留可继续发言的幽灵成员。
	tc.deliver(protocol.Event{Type: event, RoomCode: code, Reason: action + " by " + actor.Name()})
	delete(r.members, target)
	tc.clear()
	empty := len(r.members) == 0
	if empty {
		r.closed = true
	} else {
		r.broadcast(protocol.SystemNotice(code, target+" was "+action), nil)
	}
	r.mu.Unlock()

	if empty {
		s.store.Remove(r)
	}
	tc.sess.Kill()

	metrics.ModerationTotal.WithLabelValues(action).Inc()
	log.Info().Str("room", code).Str("actor", actor.Name()).Str("target", target).Str("action", action).Msg("moderation")
	return nil
}

// GlobalBan 把名字加入进程级封禁名单并强制断开所有正在使用该名字
// 的连接。清扫逐房取锁，不在整个过程中占住任何一把房间锁。
func (s *Service) GlobalBan(actor *Conn, target string) error {
	if actor.Name() != s.opts.AdminName {
		return ErrUnauthorized
	}
	victims := s.reg.ByName(target)
	if len(victims) == 0 {
		return ErrTargetNotFound
	}

	s.gmu.Lock()
	s.globalBans[target] = struct{}{}
	s.gmu.Unlock()

	for _, tc := range victims {
		code := tc.Room()
		if code == "" {
			continue
		}
		r := s.store.Lookup(code)
		if r == nil {
			continue
		}
		r.mu.Lock()
		if r.closed || r.members[target] != tc {
			r.mu.Unlock()
			continue
		}
		tc.markBanned()
		tc.deliver(protocol.Event{Type: protocol.EventBanned, RoomCode: code, Reason: "globally banned"})
		delete(r.members, target)
		tc.clear()
		empty := len(r.members) == 0
		if empty {
			r.closed = true
		} else {
			r.broadcast(protocol.SystemNotice(code, target+" was banned"), nil)
		}
		r.mu.Unlock()
		if empty {
			s.store.Remove(r)
		}
		tc.sess.Kill()
	}

	metrics.ModerationTotal.WithLabelValues("global_ban").Inc()
	log.Info().Str("actor", actor.Name()).Str("target", target).Msg("global ban")
	return nil
}

// PublicRooms 返回公开房间目录，供外部目录协作方渲染。
func (s *Service) PublicRooms() []protocol.RoomInfo { return s.store.Public() }

// Online 返回房间当前成员数，房间不存在时为 0。
func (s *Service) Online(code string) int {
	r := s.store.Lookup(code)
	if r == nil {
		return 0
	}
	return r.Online()
}
