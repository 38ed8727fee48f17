package protocol

import "time"

// 入站事件类型，由客户端通过 WebSocket 发送。
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventChatMessage   = "chatMessage"
	EventKickUser      = "kickUser"
	EventBanUser       = "banUser"
	EventGlobalBanUser = "globalBanUser"
)

// 出站事件类型，由服务端推送给客户端。
const (
	EventJoined      = "joined"
	EventChatHistory = "chatHistory"
	EventSystem      = "system"
	EventKicked      = "kicked"
	EventBanned      = "banned"
	EventError       = "error"
	EventRoomList    = "roomList"
)

// SystemName 是系统通知的保留作者名，普通用户不可占用。
const SystemName = "system"

// Inbound 是客户端到服务端的统一事件载荷。
type Inbound struct {
	Type        string `json:"type"`
	RoomCode    string `json:"room_code,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsPublic    bool   `json:"is_public,omitempty"`
	Content     string `json:"content,omitempty"`
	Target      string `json:"target,omitempty"`
}

// Message 是一条已被接受的聊天记录，入房时整段历史会原样重放。
type Message struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Event 是服务端到客户端的统一事件载荷。
type Event struct {
	Type     string     `json:"type"`
	RoomCode string     `json:"room_code,omitempty"`
	Message  *Message   `json:"message,omitempty"`
	History  []Message  `json:"history,omitempty"`
	Reason   string     `json:"reason,omitempty"`
	Rooms    []RoomInfo `json:"rooms,omitempty"`
}

// RoomInfo 是房间目录里公开房间的条目。
type RoomInfo struct {
	Code   string `json:"code"`
	Online int    `json:"online"`
}

// SystemNotice 构造一条以保留身份为作者的系统通知。
func SystemNotice(roomCode, text string) Event {
	return Event{
		Type:     EventSystem,
		RoomCode: roomCode,
		Message:  &Message{Author: SystemName, Content: text, CreatedAt: time.Now()},
	}
}
