package chat

import "errors"

// 业务层通用错误，传输层可根据错误类型映射到对应的出站事件。
var (
	ErrNameTaken      = errors.New("name taken")
	ErrRoomBanned     = errors.New("banned from room")
	ErrGloballyBanned = errors.New("globally banned")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTargetNotFound = errors.New("target not in the room")
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidJoin    = errors.New("room code and display name required")
)
