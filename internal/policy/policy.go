// Package policy 是纯函数形式的授权决策：(身份, 动作, 资源) → 允许/拒绝。
// 调用方必须先确认资源存在，再询问策略，以区分 404 和 403。
package policy

import "roomchat/internal/auth"

type Action int

const (
	CreateRoom Action = iota + 1
	DeleteRoom
	CreateMessage
	DeleteMessage
	ReadRooms
	ReadMessages
)

func (a Action) String() string {
	switch a {
	case CreateRoom:
		return "create_room"
	case DeleteRoom:
		return "delete_room"
	case CreateMessage:
		return "create_message"
	case DeleteMessage:
		return "delete_message"
	case ReadRooms:
		return "read_rooms"
	case ReadMessages:
		return "read_messages"
	}
	return "unknown"
}

// Resource 描述被操作对象。
// Claimed 是客户端在请求体中自报的身份（user / sender 字段），Owner 是已存储资源的 createdBy / sender。
type Resource struct {
	Claimed string
	Owner   string
}

// Allowed 对每个动作按固定规则求值，未知动作一律拒绝。
func Allowed(id auth.Identity, act Action, res Resource) bool {
	if id.Username == "" {
		return false
	}
	switch act {
	case CreateRoom, CreateMessage:
		return res.Claimed == id.Username
	case DeleteRoom:
		return id.IsRoot || (res.Owner == id.Username && res.Claimed == id.Username)
	case DeleteMessage:
		return id.IsRoot || res.Owner == id.Username
	case ReadRooms, ReadMessages:
		return true
	}
	return false
}
