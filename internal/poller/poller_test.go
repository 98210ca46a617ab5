package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roomchat/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tick    = 5 * time.Millisecond
	waitFor = 2 * time.Second
)

func TestTask_RunsImmediatelyThenTicks(t *testing.T) {
	var calls atomic.Int32
	task := Start(context.Background(), tick, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	defer func() { task.Stop(); task.Wait() }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, waitFor, time.Millisecond)
}

func TestTask_FirstRunIsImmediate(t *testing.T) {
	ran := make(chan struct{}, 1)
	task := Start(context.Background(), time.Hour, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	defer func() { task.Stop(); task.Wait() }()

	select {
	case <-ran:
	case <-time.After(waitFor):
		t.Fatal("fn was not run before the first tick")
	}
}

func TestTask_ErrorsDoNotStopTheLoop(t *testing.T) {
	boom := errors.New("boom")
	var errs atomic.Int32
	task := Start(context.Background(), tick, func(context.Context) error {
		return boom
	}, func(err error) {
		if errors.Is(err, boom) {
			errs.Add(1)
		}
	})
	defer func() { task.Stop(); task.Wait() }()

	require.Eventually(t, func() bool { return errs.Load() >= 3 }, waitFor, time.Millisecond)
}

func TestTask_StopIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	task := Start(context.Background(), tick, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, time.Millisecond)

	task.Stop()
	task.Stop()
	task.Wait()
	after := calls.Load()
	time.Sleep(5 * tick)
	assert.Equal(t, after, calls.Load())

	task.Stop()
	select {
	case <-task.Done():
	default:
		t.Fatal("Done not closed after Wait")
	}
}

func TestTask_StopFromInsideFn(t *testing.T) {
	var task *Task
	ready := make(chan struct{})
	task = Start(context.Background(), tick, func(context.Context) error {
		<-ready
		task.Stop()
		return nil
	}, nil)
	close(ready)

	select {
	case <-task.Done():
	case <-time.After(waitFor):
		t.Fatal("task did not exit after stopping itself")
	}
}

func TestTask_Trigger(t *testing.T) {
	var calls atomic.Int32
	task := Start(context.Background(), time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	defer func() { task.Stop(); task.Wait() }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
	task.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, time.Millisecond)
}

func TestTask_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Start(ctx, tick, func(context.Context) error { return nil }, nil)
	cancel()
	select {
	case <-task.Done():
	case <-time.After(waitFor):
		t.Fatal("task ignored parent cancellation")
	}
}

// fakeSource 返回可由测试修改的快照。gates 中存在的房间会阻塞到 gate 关闭为止，
// 并且无视 ctx，模拟取消之后仍然到达的在途响应。
type fakeSource struct {
	mu        sync.Mutex
	rooms     []api.RoomSummary
	msgs      map[string][]api.Message
	roomsErr  error
	gates     map[string]chan struct{}
	started   map[string]int
	roomCalls int
	// 第 holdCall 次 ListRooms 先取快照，再阻塞到 hold 关闭。
	holdCall int
	hold     chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		msgs:    map[string][]api.Message{},
		gates:   map[string]chan struct{}{},
		started: map[string]int{},
	}
}

func (f *fakeSource) ListRooms(context.Context) ([]api.RoomSummary, error) {
	f.mu.Lock()
	f.roomCalls++
	if f.roomsErr != nil {
		f.mu.Unlock()
		return nil, f.roomsErr
	}
	rooms := append([]api.RoomSummary(nil), f.rooms...)
	var hold chan struct{}
	if f.roomCalls == f.holdCall {
		hold = f.hold
	}
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	return rooms, nil
}

func (f *fakeSource) ListMessages(_ context.Context, roomID string) ([]api.Message, error) {
	f.mu.Lock()
	f.started[roomID]++
	gate := f.gates[roomID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Message(nil), f.msgs[roomID]...), nil
}

func (f *fakeSource) setRooms(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = nil
	for _, id := range ids {
		f.rooms = append(f.rooms, api.RoomSummary{RoomID: id, RoomName: "room " + id})
	}
}

func (f *fakeSource) calls(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[roomID]
}

func (f *fakeSource) roomListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roomCalls
}

type msgUpdate struct {
	room string
	msgs []api.Message
}

type recordingView struct {
	mu        sync.Mutex
	roomSnaps int
	updates   []msgUpdate
	cleared   []string
	failures  map[Feed]int
}

func newRecordingView() *recordingView {
	return &recordingView{failures: map[Feed]int{}}
}

func (v *recordingView) RoomsUpdated([]api.RoomSummary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roomSnaps++
}

func (v *recordingView) MessagesUpdated(roomID string, msgs []api.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.updates = append(v.updates, msgUpdate{room: roomID, msgs: msgs})
}

func (v *recordingView) SelectionCleared(roomID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared = append(v.cleared, roomID)
}

func (v *recordingView) FetchFailed(feed Feed, _ error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures[feed]++
}

func (v *recordingView) snapshot() (int, []msgUpdate, []string, map[Feed]int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	failures := make(map[Feed]int, len(v.failures))
	for k, n := range v.failures {
		failures[k] = n
	}
	return v.roomSnaps, append([]msgUpdate(nil), v.updates...), append([]string(nil), v.cleared...), failures
}

func TestSync_PollsOnlyWhileAuthenticated(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1")
	s := New(src, newRecordingView(), tick)
	defer s.Close()

	time.Sleep(5 * tick)
	assert.Zero(t, src.roomListCalls())

	s.SetAuthenticated(context.Background(), true)
	require.Eventually(t, func() bool { return len(s.Rooms()) == 1 }, waitFor, time.Millisecond)

	s.SetAuthenticated(context.Background(), false)
	assert.Empty(t, s.Rooms())
	time.Sleep(2 * tick)
	calls := src.roomListCalls()
	time.Sleep(5 * tick)
	assert.Equal(t, calls, src.roomListCalls())
}

func TestSync_MessagesPollOnlyWhileSelected(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1")
	src.msgs["1"] = []api.Message{{MessageID: "10", RoomID: "1", Sender: "alice", Content: "hi"}}
	s := New(src, newRecordingView(), tick)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	time.Sleep(5 * tick)
	assert.Zero(t, src.calls("1"))

	s.Select("1")
	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, "1", s.Selected())

	s.Select("")
	assert.Empty(t, s.Messages())
	time.Sleep(2 * tick)
	calls := src.calls("1")
	time.Sleep(5 * tick)
	assert.Equal(t, calls, src.calls("1"))
}

func TestSync_SnapshotReplacedEachTick(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1")
	s := New(src, nil, tick)
	defer s.Close()
	s.SetAuthenticated(context.Background(), true)
	require.Eventually(t, func() bool { return len(s.Rooms()) == 1 }, waitFor, time.Millisecond)

	src.setRooms("1", "2", "3")
	require.Eventually(t, func() bool { return len(s.Rooms()) == 3 }, waitFor, time.Millisecond)

	src.setRooms("3")
	require.Eventually(t, func() bool {
		rooms := s.Rooms()
		return len(rooms) == 1 && rooms[0].RoomID == "3"
	}, waitFor, time.Millisecond)
}

func TestSync_DiscardsStaleMessagesAfterSwitch(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1", "2")
	src.msgs["1"] = []api.Message{{MessageID: "10", RoomID: "1", Content: "old room"}}
	src.msgs["2"] = []api.Message{{MessageID: "20", RoomID: "2", Content: "new room"}}
	gate := make(chan struct{})
	src.gates["1"] = gate
	view := newRecordingView()
	s := New(src, view, tick)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	s.Select("1")
	require.Eventually(t, func() bool { return src.calls("1") == 1 }, waitFor, time.Millisecond)

	s.Select("2")
	require.Eventually(t, func() bool {
		msgs := s.Messages()
		return len(msgs) == 1 && msgs[0].RoomID == "2"
	}, waitFor, time.Millisecond)

	// 旧房间的在途响应现在才到达。
	close(gate)
	time.Sleep(10 * tick)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].RoomID)
	_, updates, _, _ := view.snapshot()
	for _, u := range updates {
		assert.Equal(t, "2", u.room, "update for a room that is no longer selected")
	}
}

func TestSync_SelectedRoomDeletedClearsSelection(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1", "2")
	src.msgs["2"] = []api.Message{{MessageID: "20", RoomID: "2"}}
	view := newRecordingView()
	s := New(src, view, tick)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	s.Select("2")
	require.Eventually(t, func() bool { return len(s.Messages()) == 1 }, waitFor, time.Millisecond)

	src.setRooms("1")
	require.Eventually(t, func() bool { return s.Selected() == "" }, waitFor, time.Millisecond)
	assert.Empty(t, s.Messages())
	_, _, cleared, _ := view.snapshot()
	assert.Equal(t, []string{"2"}, cleared)
}

func TestSync_RoomsFetchedBeforeSelectionDoNotClearIt(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1")
	view := newRecordingView()
	s := New(src, view, time.Hour)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	require.Eventually(t, func() bool { return len(s.Rooms()) == 1 }, waitFor, time.Millisecond)

	// 第二次拉取在房间 2 创建之前取到快照，并在选中房间 2 之后才返回。
	hold := make(chan struct{})
	src.mu.Lock()
	src.holdCall = 2
	src.hold = hold
	src.mu.Unlock()
	s.Refresh()
	require.Eventually(t, func() bool { return src.roomListCalls() == 2 }, waitFor, time.Millisecond)

	src.setRooms("1", "2")
	s.Select("2")
	s.Refresh()
	close(hold)

	require.Eventually(t, func() bool { return len(s.Rooms()) == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, "2", s.Selected())
	_, _, cleared, _ := view.snapshot()
	assert.Empty(t, cleared)
}

func TestSync_FetchErrorsAreReportedAndPollingContinues(t *testing.T) {
	src := newFakeSource()
	src.roomsErr = errors.New("503")
	view := newRecordingView()
	s := New(src, view, tick)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	require.Eventually(t, func() bool {
		_, _, _, failures := view.snapshot()
		return failures[FeedRooms] >= 3
	}, waitFor, time.Millisecond)

	src.mu.Lock()
	src.roomsErr = nil
	src.mu.Unlock()
	src.setRooms("1")
	require.Eventually(t, func() bool { return len(s.Rooms()) == 1 }, waitFor, time.Millisecond)
}

func TestSync_RefreshFetchesImmediately(t *testing.T) {
	src := newFakeSource()
	src.setRooms("1")
	s := New(src, nil, time.Hour)
	defer s.Close()

	s.SetAuthenticated(context.Background(), true)
	require.Eventually(t, func() bool { return len(s.Rooms()) == 1 }, waitFor, time.Millisecond)

	src.setRooms("1", "2")
	s.Refresh()
	require.Eventually(t, func() bool { return len(s.Rooms()) == 2 }, waitFor, time.Millisecond)
}

func TestSync_CloseIsIdempotent(t *testing.T) {
	src := newFakeSource()
	s := New(src, nil, tick)
	s.SetAuthenticated(context.Background(), true)
	s.Select("1")
	s.Close()
	s.Close()
}
