// Package client 是 /api 接口的 Go 客户端，供命令行工具与轮询器使用。
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"roomchat/internal/api"
	"roomchat/internal/poller"

	"github.com/goccy/go-json"
)

var _ poller.Source = (*Client)(nil)

// APIError 是服务端返回的非成功响应，Error() 原样给出服务端消息。
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type envelope struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
}

// Client 通过 cookie jar 自动携带会话 cookie；登录后同时保存 token 作为 Bearer 头。
type Client struct {
	base string
	hc   *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}, nil
}

// SetToken 直接设置会话 token，例如从环境变量读取。
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if env.Code != 0 || resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) Register(ctx context.Context, username, password string) (*api.User, error) {
	var u api.User
	req := api.CredentialsRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login 成功后服务端写入会话 cookie，token 也会被保存下来。
func (c *Client) Login(ctx context.Context, username, password string) (*api.LoginData, error) {
	var data api.LoginData
	req := api.CredentialsRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &data); err != nil {
		return nil, err
	}
	c.SetToken(data.Token)
	return &data, nil
}

func (c *Client) Logout(ctx context.Context) error {
	c.SetToken("")
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*api.User, error) {
	var u api.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]api.RoomSummary, error) {
	var data api.RoomListData
	if err := c.do(ctx, http.MethodGet, "/api/room/list", nil, &data); err != nil {
		return nil, err
	}
	return data.Rooms, nil
}

// CreateRoom 返回新房间的 id。
func (c *Client) CreateRoom(ctx context.Context, user, name string) (string, error) {
	var data api.RoomAddData
	req := api.RoomAddRequest{User: user, RoomName: name}
	if err := c.do(ctx, http.MethodPost, "/api/room/add", req, &data); err != nil {
		return "", err
	}
	return data.RoomID, nil
}

func (c *Client) DeleteRoom(ctx context.Context, user, roomID string) error {
	return c.do(ctx, http.MethodPost, "/api/room/delete", api.RoomDeleteRequest{User: user, RoomID: roomID}, nil)
}

func (c *Client) ListMessages(ctx context.Context, roomID string) ([]api.Message, error) {
	var data api.MessageListData
	path := "/api/room/message/list?" + url.Values{"roomId": {roomID}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

func (c *Client) SendMessage(ctx context.Context, roomID, sender, content string) error {
	req := api.MessageAddRequest{RoomID: roomID, Content: content, Sender: sender}
	return c.do(ctx, http.MethodPost, "/api/message/add", req, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodPost, "/api/message/delete", api.MessageDeleteRequest{MessageID: messageID}, nil)
}
