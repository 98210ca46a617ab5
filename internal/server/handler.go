package server

import (
	"strings"
	"unicode/utf8"

	"roomchat/internal/api"
	"roomchat/internal/auth"
	"roomchat/internal/metrics"
	"roomchat/internal/policy"
	"roomchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// 字段长度限制。
const (
	minUsernameLen   = 2
	maxUsernameLen   = 64
	minPasswordLen   = 6
	maxRoomNameLen   = 128
	maxContentLength = 4000
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	users        *service.UserService
	rooms        *service.RoomService
	msgs         *service.MessageService
	secureCookie bool
}

func NewHandler(users *service.UserService, rooms *service.RoomService, msgs *service.MessageService, secureCookie bool) *Handler {
	return &Handler{users: users, rooms: rooms, msgs: msgs, secureCookie: secureCookie}
}

// identity 读取 RequireSession 解析出的身份；路由未挂载中间件时按未认证处理。
func identity(c *gin.Context) (auth.Identity, bool) {
	id, found := auth.IdentityFrom(c)
	if !found {
		fail(c, service.Unauthenticated("Authentication required"))
	}
	return id, found
}

// authorize 询问策略，拒绝时记录日志与指标并返回 403。
func authorize(c *gin.Context, id auth.Identity, act policy.Action, res policy.Resource, denyMsg string) bool {
	if policy.Allowed(id, act, res) {
		return true
	}
	metrics.PolicyDenialsTotal.WithLabelValues(act.String()).Inc()
	log.Warn().
		Str("action", act.String()).
		Str("username", id.Username).
		Str("claimed", res.Claimed).
		Str("owner", res.Owner).
		Msg("policy denied")
	fail(c, service.Forbidden(denyMsg))
	return false
}

// Register 处理用户注册请求。
func (h *Handler) Register(c *gin.Context) {
	var req api.CredentialsRequest
	if err := bindStrict(c, &req, "Username and password are required"); err != nil {
		fail(c, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		fail(c, service.Validation("Username must be between 2 and 64 characters"))
		return
	}
	if len(req.Password) < minPasswordLen {
		fail(c, service.Validation("Password must be at least 6 characters long"))
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		fail(c, service.Validation("Password must be at most 72 bytes long"))
		return
	}
	user, err := h.users.Register(c.Request.Context(), username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Bool("root", user.IsRoot).Msg("user registered")
	ok(c, "User created successfully", toUser(user))
}

// Login 校验凭据，成功后签发会话 token 并写入 cookie。
func (h *Handler) Login(c *gin.Context) {
	var req api.CredentialsRequest
	if err := bindStrict(c, &req, "Username and password are required"); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.users.Login(c.Request.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if service.KindOf(err) == service.KindUnauthenticated {
			metrics.AuthFailure("credentials")
		}
		fail(c, err)
		return
	}
	auth.SetSessionCookie(c, token, h.secureCookie)
	ok(c, "Login successful", api.LoginData{User: toUser(user), Token: token})
}

// Logout 清除会话 cookie。token 本身无状态，不做服务端吊销。
func (h *Handler) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c, h.secureCookie)
	ok(c, "Logged out successfully", nil)
}

// Me 返回当前会话对应的最新用户信息。
func (h *Handler) Me(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	user, err := h.users.FindByID(c.Request.Context(), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User retrieved successfully", toUser(user))
}

// ListRooms 返回全部房间及各自最新的一条消息。
func (h *Handler) ListRooms(c *gin.Context) {
	id, authed := identity(c)
	if !authed || !authorize(c, id, policy.ReadRooms, policy.Resource{}, "Access denied") {
		return
	}
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Rooms retrieved successfully", api.RoomListData{Rooms: toRoomSummaries(rooms)})
}

// CreateRoom 创建房间，请求体中的 user 必须是调用者本人。
func (h *Handler) CreateRoom(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	var req api.RoomAddRequest
	if err := bindStrict(c, &req, "User and room name are required"); err != nil {
		fail(c, err)
		return
	}
	name := strings.TrimSpace(req.RoomName)
	if name == "" {
		fail(c, service.Validation("User and room name are required"))
		return
	}
	if utf8.RuneCountInString(name) > maxRoomNameLen {
		fail(c, service.Validation("Room name must be at most 128 characters"))
		return
	}
	if !authorize(c, id, policy.CreateRoom, policy.Resource{Claimed: req.User}, "You can only create rooms for yourself") {
		return
	}
	room, err := h.rooms.Create(c.Request.Context(), name, id.Username)
	if err != nil {
		fail(c, err)
		return
	}
	log.Info().Uint("room_id", room.ID).Str("name", room.Name).Str("created_by", room.CreatedBy).Msg("room created")
	ok(c, "Room created successfully", api.RoomAddData{RoomID: api.FormatID(room.ID)})
}

// DeleteRoom 删除房间及其全部消息。先确认房间存在，再做权限判断。
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	var req api.RoomDeleteRequest
	if err := bindStrict(c, &req, "User and room ID are required"); err != nil {
		fail(c, err)
		return
	}
	roomID, valid := api.ParseID(req.RoomID)
	if !valid {
		fail(c, service.Validation("Invalid room ID"))
		return
	}
	ctx := c.Request.Context()
	room, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		fail(c, err)
		return
	}
	res := policy.Resource{Claimed: req.User, Owner: room.CreatedBy}
	if !authorize(c, id, policy.DeleteRoom, res, "You can only delete rooms you created") {
		return
	}
	if err := h.rooms.Delete(ctx, roomID); err != nil {
		fail(c, err)
		return
	}
	metrics.RoomsDeletedTotal.Inc()
	log.Info().Uint("room_id", roomID).Str("deleted_by", id.Username).Msg("room deleted")
	ok(c, "Room deleted successfully", nil)
}

// ListMessages 按时间升序返回房间内的全部消息。
func (h *Handler) ListMessages(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	raw := c.Query("roomId")
	if raw == "" {
		fail(c, service.Validation("Room ID is required"))
		return
	}
	roomID, valid := api.ParseID(raw)
	if !valid {
		fail(c, service.Validation("Invalid room ID"))
		return
	}
	if !authorize(c, id, policy.ReadMessages, policy.Resource{}, "Access denied") {
		return
	}
	msgs, err := h.msgs.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Messages retrieved successfully", api.MessageListData{Messages: toMessages(msgs)})
}

// SendMessage 追加消息，sender 必须是调用者本人，内容原样保存。
func (h *Handler) SendMessage(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	var req api.MessageAddRequest
	if err := bindStrict(c, &req, "Room ID, content, and sender are required"); err != nil {
		fail(c, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, service.Validation("Room ID, content, and sender are required"))
		return
	}
	if utf8.RuneCountInString(req.Content) > maxContentLength {
		fail(c, service.Validation("Message content must be at most 4000 characters"))
		return
	}
	roomID, valid := api.ParseID(req.RoomID)
	if !valid {
		fail(c, service.Validation("Invalid room ID"))
		return
	}
	ctx := c.Request.Context()
	if _, err := h.rooms.Get(ctx, roomID); err != nil {
		fail(c, err)
		return
	}
	if !authorize(c, id, policy.CreateMessage, policy.Resource{Claimed: req.Sender}, "You can only send messages as yourself") {
		return
	}
	if _, err := h.msgs.Append(ctx, roomID, id.Username, req.Content); err != nil {
		fail(c, err)
		return
	}
	metrics.MessagesAppendedTotal.Inc()
	ok(c, "Message sent successfully", nil)
}

// DeleteMessage 删除消息：root 可删任意消息，其他人只能删自己发的。
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, authed := identity(c)
	if !authed {
		return
	}
	var req api.MessageDeleteRequest
	if err := bindStrict(c, &req, "Message ID is required"); err != nil {
		fail(c, err)
		return
	}
	msgID, valid := api.ParseID(req.MessageID)
	if !valid {
		fail(c, service.Validation("Invalid message ID"))
		return
	}
	ctx := c.Request.Context()
	msg, err := h.msgs.Get(ctx, msgID)
	if err != nil {
		fail(c, err)
		return
	}
	if !authorize(c, id, policy.DeleteMessage, policy.Resource{Owner: msg.Sender}, "You can only delete your own messages") {
		return
	}
	if err := h.msgs.Delete(ctx, msgID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Message deleted successfully", nil)
}
