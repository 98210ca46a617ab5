package poller

import (
	"context"
	"sync"
	"time"

	"roomchat/internal/api"
)

// DefaultInterval 是两个轮询循环的默认间隔。
const DefaultInterval = time.Second

// Feed 标识出错的轮询循环。
type Feed string

const (
	FeedRooms    Feed = "rooms"
	FeedMessages Feed = "messages"
)

// Source 是服务端读取接口，client.Client 实现了它。
type Source interface {
	ListRooms(ctx context.Context) ([]api.RoomSummary, error)
	ListMessages(ctx context.Context, roomID string) ([]api.Message, error)
}

// View 接收快照更新。回调在 Sync 的内部锁内执行，不能再调用 Sync 的方法。
type View interface {
	RoomsUpdated(rooms []api.RoomSummary)
	MessagesUpdated(roomID string, msgs []api.Message)
	SelectionCleared(roomID string)
	FetchFailed(feed Feed, err error)
}

// Sync 维护两个独立的轮询循环：
// 房间列表在已登录时运行；消息列表在已登录且选中房间时运行。
type Sync struct {
	src      Source
	view     View
	interval time.Duration

	mu        sync.Mutex
	ctx       context.Context
	authed    bool
	selected  string
	roomsGen  uint64
	msgsGen   uint64
	selGen    uint64
	rooms     []api.RoomSummary
	msgs      []api.Message
	roomsTask *Task
	msgsTask  *Task
}

func New(src Source, view View, interval time.Duration) *Sync {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if view == nil {
		view = nopView{}
	}
	return &Sync{src: src, view: view, interval: interval, ctx: context.Background()}
}

// SetAuthenticated 登录后启动房间轮询，登出后停止全部轮询并清空本地快照。
func (s *Sync) SetAuthenticated(ctx context.Context, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on == s.authed {
		return
	}
	if on {
		s.ctx = ctx
		s.authed = true
		s.startRoomsLocked()
		if s.selected != "" {
			s.startMessagesLocked()
		}
		return
	}
	s.authed = false
	s.stopRoomsLocked()
	s.stopMessagesLocked()
	s.selected = ""
	s.selGen++
	s.rooms = nil
	s.msgs = nil
}

// Select 切换当前房间。旧的消息循环被取消，其仍在途的响应会因代数不匹配而丢弃。
// 传入空串表示取消选中。
func (s *Sync) Select(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roomID == s.selected {
		return
	}
	s.stopMessagesLocked()
	s.selected = roomID
	s.selGen++
	s.msgs = nil
	if s.authed && roomID != "" {
		s.startMessagesLocked()
	}
}

// Refresh 在一次修改操作之后立即重新拉取两个列表。
func (s *Sync) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomsTask != nil {
		s.roomsTask.Trigger()
	}
	if s.msgsTask != nil {
		s.msgsTask.Trigger()
	}
}

func (s *Sync) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Rooms 返回当前房间快照的副本。
func (s *Sync) Rooms() []api.RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.RoomSummary(nil), s.rooms...)
}

// Messages 返回当前选中房间消息快照的副本。
func (s *Sync) Messages() []api.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Message(nil), s.msgs...)
}

// Close 停止全部循环并等待其退出，可重复调用。
func (s *Sync) Close() {
	s.mu.Lock()
	s.authed = false
	tasks := []*Task{s.roomsTask, s.msgsTask}
	s.stopRoomsLocked()
	s.stopMessagesLocked()
	s.mu.Unlock()
	for _, t := range tasks {
		if t != nil {
			t.Wait()
		}
	}
}

func (s *Sync) startRoomsLocked() {
	s.roomsGen++
	gen := s.roomsGen
	s.roomsTask = Start(s.ctx, s.interval, func(ctx context.Context) error {
		sel := s.selectionEpoch()
		rooms, err := s.src.ListRooms(ctx)
		if err != nil {
			return err
		}
		s.applyRooms(gen, sel, rooms)
		return nil
	}, func(err error) { s.fetchFailed(FeedRooms, gen, err) })
}

func (s *Sync) stopRoomsLocked() {
	s.roomsGen++
	if s.roomsTask != nil {
		s.roomsTask.Stop()
		s.roomsTask = nil
	}
}

func (s *Sync) startMessagesLocked() {
	s.msgsGen++
	gen, room := s.msgsGen, s.selected
	s.msgsTask = Start(s.ctx, s.interval, func(ctx context.Context) error {
		msgs, err := s.src.ListMessages(ctx, room)
		if err != nil {
			return err
		}
		s.applyMessages(gen, room, msgs)
		return nil
	}, func(err error) { s.fetchFailed(FeedMessages, gen, err) })
}

func (s *Sync) stopMessagesLocked() {
	s.msgsGen++
	if s.msgsTask != nil {
		s.msgsTask.Stop()
		s.msgsTask = nil
	}
}

func (s *Sync) selectionEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selGen
}

// applyRooms 总是替换房间快照；只有在拉取期间选中项没有变化时，
// 才会因为选中的房间不在列表中而清除选中。
func (s *Sync) applyRooms(gen, sel uint64, rooms []api.RoomSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.roomsGen || !s.authed {
		return
	}
	s.rooms = rooms
	s.view.RoomsUpdated(rooms)
	if s.selected == "" || sel != s.selGen || containsRoom(rooms, s.selected) {
		return
	}
	// 选中的房间已被删除。
	gone := s.selected
	s.stopMessagesLocked()
	s.selected = ""
	s.selGen++
	s.msgs = nil
	s.view.SelectionCleared(gone)
}

func (s *Sync) applyMessages(gen uint64, room string, msgs []api.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.msgsGen || room != s.selected || !s.authed {
		return
	}
	s.msgs = msgs
	s.view.MessagesUpdated(room, msgs)
}

func (s *Sync) fetchFailed(feed Feed, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.roomsGen
	if feed == FeedMessages {
		current = s.msgsGen
	}
	if gen != current || !s.authed {
		return
	}
	s.view.FetchFailed(feed, err)
}

func containsRoom(rooms []api.RoomSummary, id string) bool {
	for _, r := range rooms {
		if r.RoomID == id {
			return true
		}
	}
	return false
}

type nopView struct{}

func (nopView) RoomsUpdated([]api.RoomSummary)        {}
func (nopView) MessagesUpdated(string, []api.Message) {}
func (nopView) SelectionCleared(string)               {}
func (nopView) FetchFailed(Feed, error)               {}
