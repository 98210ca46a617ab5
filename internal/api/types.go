// Package api 定义 HTTP 接口的响应信封、请求体与返回数据结构，服务端与客户端共用。
package api

import (
	"strconv"
	"time"
)

// Envelope 是所有接口统一的响应格式，成功时 Code 为 0，失败时等于 HTTP 状态码。
type Envelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Data    any    `json:"data"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsRoot    bool      `json:"isRoot"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Time      int64  `json:"time"`
}

type RoomSummary struct {
	RoomID      string   `json:"roomId"`
	RoomName    string   `json:"roomName"`
	CreatedBy   string   `json:"createdBy"`
	LastMessage *Message `json:"lastMessage"`
}

type LoginData struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type RoomAddData struct {
	RoomID string `json:"roomId"`
}

type RoomListData struct {
	Rooms []RoomSummary `json:"rooms"`
}

type MessageListData struct {
	Messages []Message `json:"messages"`
}

// 请求体。字段缺失、类型错误或出现未知字段都按参数错误处理。

type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RoomAddRequest struct {
	User     string `json:"user" binding:"required"`
	RoomName string `json:"roomName" binding:"required"`
}

type RoomDeleteRequest struct {
	User   string `json:"user" binding:"required"`
	RoomID string `json:"roomId" binding:"required"`
}

type MessageAddRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
	Sender  string `json:"sender" binding:"required"`
}

type MessageDeleteRequest struct {
	MessageID string `json:"messageId" binding:"required"`
}

// FormatID 把数据库 id 编码为线上使用的十进制字符串。
func FormatID(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// ParseID 解析十进制字符串 id，必须为正整数。
func ParseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 || uint64(uint(v)) != v {
		return 0, false
	}
	return uint(v), true
}
