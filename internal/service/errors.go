package service

import (
	"errors"
	"net/http"
)

// Kind 是业务错误的分类，handler 根据 Kind 映射 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error 的 Msg 会原样返回给客户端，不能包含内部细节。
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// 业务层通用错误。
var (
	ErrUsernameTaken      = &Error{Kind: KindConflict, Msg: "Username already exists"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Msg: "Invalid username or password"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Msg: "User not found"}
	ErrRoomNotFound       = &Error{Kind: KindNotFound, Msg: "Room not found"}
	ErrRoomNameTaken      = &Error{Kind: KindConflict, Msg: "Room name already exists"}
	ErrMessageNotFound    = &Error{Kind: KindNotFound, Msg: "Message not found"}
)

func Validation(msg string) error      { return &Error{Kind: KindValidation, Msg: msg} }
func Forbidden(msg string) error       { return &Error{Kind: KindForbidden, Msg: msg} }
func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Msg: msg} }

// KindOf 对非 *Error 的错误一律视为内部错误。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
