package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

const waitFor = 2 * time.Second

// viewers grants view rights per project
type viewers struct {
	mu    sync.Mutex
	grant map[string]map[string]bool
}

func newViewers() *viewers {
	return &viewers{grant: make(map[string]map[string]bool)}
}

func (v *viewers) allow(projectID string, userIDs ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grant[projectID] == nil {
		v.grant[projectID] = make(map[string]bool)
	}
	for _, id := range userIDs {
		v.grant[projectID][id] = true
	}
}

func (v *viewers) revoke(projectID, userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.grant[projectID], userID)
}

func (v *viewers) drop(projectID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.grant, projectID)
}

func (v *viewers) AuthorizeView(_ context.Context, projectID, userID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.grant[projectID]; !ok {
		return domain.ErrProjectNotFound
	}
	if !v.grant[projectID][userID] {
		return domain.ErrForbidden
	}
	return nil
}

func newTestHub(t *testing.T, v *viewers, opts Options) (*Hub, *Metrics) {
	t.Helper()

	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(v, metrics, nil, opts)
	t.Cleanup(hub.Close)
	return hub, metrics
}

func event(projectID, title string) domain.TaskEvent {
	return domain.NewTaskEvent(domain.TaskStatusChanged, &domain.Task{ID: title, ProjectID: projectID, Title: title})
}

func recv(t *testing.T, c *Conn) Message {
	t.Helper()
	select {
	case msg := <-c.Messages():
		return msg
	case <-time.After(waitFor):
		t.Fatalf("connection %s received nothing", c.ID())
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case msg := <-c.Messages():
		t.Fatalf("connection %s unexpectedly received %+v", c.ID(), msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertDone(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(waitFor):
		t.Fatalf("connection %s was not disconnected", c.ID())
	}
}

func TestHub_JoinAndAnnounce(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bob := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, bob, "p1"))

	hub.Announce("p1", event("p1", "t1"))

	for _, c := range []*Conn{alice, bob} {
		msg := recv(t, c)
		assert.Equal(t, MessageTaskEvent, msg.Type)
		assert.Equal(t, "p1", msg.ProjectID)
		assert.Equal(t, "t1", msg.Event.Task.ID)
	}
}

func TestHub_RoomsAreIsolated(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice")
	v.allow("p2", "bob")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bob := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, bob, "p2"))

	hub.Announce("p1", event("p1", "t1"))

	assert.Equal(t, "p1", recv(t, alice).ProjectID)
	assertSilent(t, bob)
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice")
	hub, _ := newTestHub(t, v, Options{SendBuffer: 128})

	alice := hub.Register("alice")
	require.NoError(t, hub.Join(context.Background(), alice, "p1"))

	const n = 100
	for i := 0; i < n; i++ {
		hub.Announce("p1", event("p1", fmt.Sprintf("t%03d", i)))
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("t%03d", i), recv(t, alice).Event.Task.ID)
	}
}

func TestHub_DeniedJoinSubscribesNothing(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	mallory := hub.Register("mallory")
	assert.ErrorIs(t, hub.Join(ctx, mallory, "p1"), domain.ErrForbidden)
	assert.ErrorIs(t, hub.Join(ctx, mallory, "ghost"), domain.ErrProjectNotFound)
	assert.ErrorIs(t, hub.Join(ctx, mallory, ""), domain.ErrValidation)
	assert.Empty(t, hub.RoomsOf(mallory))
	assert.Zero(t, hub.RoomCount())

	hub.Announce("p1", event("p1", "t1"))
	assertSilent(t, mallory)
}

func TestHub_AnnounceWithoutSubscribersIsNoop(t *testing.T) {
	hub, metrics := newTestHub(t, newViewers(), Options{})

	hub.Announce("empty", event("empty", "t1"))

	assert.Zero(t, hub.RoomCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Published))
	assert.Zero(t, testutil.ToFloat64(metrics.Delivered))
}

func TestHub_ConnectionInManyRooms(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice")
	v.allow("p2", "alice")
	hub, metrics := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, alice, "p2"))
	require.NoError(t, hub.Join(ctx, alice, "p2"))

	assert.Equal(t, []string{"p1", "p2"}, hub.RoomsOf(alice))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Rooms))

	hub.Announce("p2", event("p2", "t2"))
	msg := recv(t, alice)
	assert.Equal(t, "p2", msg.ProjectID)
	assertSilent(t, alice)

	hub.Leave(alice, "p1")
	assert.Equal(t, []string{"p2"}, hub.RoomsOf(alice))
	assert.Equal(t, 1, hub.RoomCount())

	hub.Announce("p1", event("p1", "t1"))
	assertSilent(t, alice)
}

func TestHub_LastLeaveDestroysRoom(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	hub, metrics := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bob := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, bob, "p1"))

	hub.Leave(alice, "p1")
	assert.Equal(t, 1, hub.RoomCount())

	hub.Leave(bob, "p1")
	hub.Leave(bob, "p1")
	assert.Zero(t, hub.RoomCount())
	assert.Zero(t, testutil.ToFloat64(metrics.Rooms))

	// A fresh join recreates the room
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	hub.Announce("p1", event("p1", "t1"))
	assert.Equal(t, "t1", recv(t, alice).Event.Task.ID)
	assertSilent(t, bob)
}

func TestHub_Disconnect(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	v.allow("p2", "alice")
	hub, metrics := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bob := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, alice, "p2"))
	require.NoError(t, hub.Join(ctx, bob, "p1"))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Connections))

	hub.Disconnect(alice)
	hub.Disconnect(alice)

	assertDone(t, alice)
	assert.Empty(t, hub.RoomsOf(alice))
	assert.Equal(t, 1, hub.RoomCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Connections))
	assert.ErrorIs(t, hub.Join(ctx, alice, "p1"), ErrConnClosed)

	hub.Announce("p1", event("p1", "t1"))
	assert.Equal(t, "t1", recv(t, bob).Event.Task.ID)
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	v := newViewers()
	v.allow("p1", "slow", "fast")
	hub, metrics := newTestHub(t, v, Options{SendBuffer: 1})
	ctx := context.Background()

	slow := hub.Register("slow")
	fast := hub.Register("fast")
	require.NoError(t, hub.Join(ctx, slow, "p1"))
	require.NoError(t, hub.Join(ctx, fast, "p1"))

	hub.Announce("p1", event("p1", "t1"))
	assert.Equal(t, "t1", recv(t, fast).Event.Task.ID)

	// slow still holds t1, so t2 overflows its queue
	hub.Announce("p1", event("p1", "t2"))
	assert.Equal(t, "t2", recv(t, fast).Event.Task.ID)
	assertDone(t, slow)

	hub.Announce("p1", event("p1", "t3"))
	assert.Equal(t, "t3", recv(t, fast).Event.Task.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dropped))
	assert.Eventually(t, func() bool { return len(hub.RoomsOf(slow)) == 0 }, waitFor, 10*time.Millisecond)
}

func TestHub_Evict(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	v.allow("p2", "bob")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bobPhone := hub.Register("bob")
	bobLaptop := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, bobPhone, "p1"))
	require.NoError(t, hub.Join(ctx, bobLaptop, "p1"))
	require.NoError(t, hub.Join(ctx, bobLaptop, "p2"))

	hub.Evict("p1", "bob")

	assert.Empty(t, hub.RoomsOf(bobPhone))
	assert.Equal(t, []string{"p2"}, hub.RoomsOf(bobLaptop))

	hub.Announce("p1", event("p1", "t1"))
	assert.Equal(t, "t1", recv(t, alice).Event.Task.ID)
	assertSilent(t, bobPhone)
	assertSilent(t, bobLaptop)

	// Evicted connections stay open for their other rooms
	hub.Announce("p2", event("p2", "t2"))
	assert.Equal(t, "t2", recv(t, bobLaptop).Event.Task.ID)
}

func TestHub_CloseRoom(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	bob := hub.Register("bob")
	require.NoError(t, hub.Join(ctx, alice, "p1"))
	require.NoError(t, hub.Join(ctx, bob, "p1"))

	hub.CloseRoom("p1")
	hub.CloseRoom("p1")

	assert.Zero(t, hub.RoomCount())
	hub.Announce("p1", event("p1", "t1"))
	assertSilent(t, alice)
	assertSilent(t, bob)
}

func TestHub_Close(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice")
	hub, _ := newTestHub(t, v, Options{})
	ctx := context.Background()

	alice := hub.Register("alice")
	require.NoError(t, hub.Join(ctx, alice, "p1"))

	hub.Close()

	assertDone(t, alice)
	assert.Zero(t, hub.RoomCount())

	late := hub.Register("alice")
	assertDone(t, late)
	assert.ErrorIs(t, hub.Join(ctx, late, "p1"), ErrHubClosed)
}

func TestHub_ConcurrentJoinLeavePublish(t *testing.T) {
	const events = 200

	v := newViewers()
	users := make([]string, 8)
	for i := range users {
		users[i] = fmt.Sprintf("u%d", i)
	}
	v.allow("p1", append(users, "watcher")...)
	hub, _ := newTestHub(t, v, Options{SendBuffer: 1024})
	ctx := context.Background()

	watcher := hub.Register("watcher")
	require.NoError(t, hub.Join(ctx, watcher, "p1"))

	churners := make([]*Conn, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		churners[i] = hub.Register(user)
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = hub.Join(ctx, c, "p1")
				hub.Leave(c, "p1")
			}
		}(churners[i])
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for seq := 0; seq < events; seq++ {
			hub.Announce("p1", event("p1", fmt.Sprintf("%04d", seq)))
		}
	}()
	wg.Wait()

	// The steady subscriber sees every event once, in publish order
	for seq := 0; seq < events; seq++ {
		assert.Equal(t, fmt.Sprintf("%04d", seq), recv(t, watcher).Event.Task.ID)
	}
	assertSilent(t, watcher)

	// Churners see a strictly increasing subsequence without duplicates
	for _, c := range churners {
		last := ""
		for drained := false; !drained; {
			select {
			case msg := <-c.Messages():
				assert.Greater(t, msg.Event.Task.ID, last, "connection %s got %s after %s", c.ID(), msg.Event.Task.ID, last)
				last = msg.Event.Task.ID
			default:
				drained = true
			}
		}
		hub.Disconnect(c)
	}

	hub.Leave(watcher, "p1")
	assert.Zero(t, hub.RoomCount())
}

// stalledViewers holds one user's view check open after it has been decided
type stalledViewers struct {
	*viewers
	user    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStalledViewers(v *viewers, user string) *stalledViewers {
	return &stalledViewers{
		viewers: v,
		user:    user,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stalledViewers) AuthorizeView(ctx context.Context, projectID, userID string) error {
	err := s.viewers.AuthorizeView(ctx, projectID, userID)
	if userID == s.user {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return err
}

func TestHub_EvictDuringJoinCheck(t *testing.T) {
	v := newViewers()
	v.allow("p1", "alice", "bob")
	stalled := newStalledViewers(v, "bob")
	hub := NewHub(stalled, NewMetrics(prometheus.NewRegistry()), nil, Options{})
	t.Cleanup(hub.Close)
	ctx := context.Background()

	alice := hub.Register("alice")
	require.NoError(t, hub.Join(ctx, alice, "p1"))

	bob := hub.Register("bob")
	joined := make(chan error, 1)
	go func() { joined <- hub.Join(ctx, bob, "p1") }()

	<-stalled.entered
	v.revoke("p1", "bob")
	hub.Evict("p1", "bob")
	close(stalled.release)

	require.ErrorIs(t, <-joined, domain.ErrForbidden)
	assert.Empty(t, hub.RoomsOf(bob))

	hub.Announce("p1", event("p1", "after-removal"))
	assert.Equal(t, "after-removal", recv(t, alice).Event.Task.ID)
	assertSilent(t, bob)
}

func TestHub_CloseRoomDuringJoinCheck(t *testing.T) {
	v := newViewers()
	v.allow("p1", "carol")
	stalled := newStalledViewers(v, "carol")
	hub := NewHub(stalled, NewMetrics(prometheus.NewRegistry()), nil, Options{})
	t.Cleanup(hub.Close)

	carol := hub.Register("carol")
	joined := make(chan error, 1)
	go func() { joined <- hub.Join(context.Background(), carol, "p1") }()

	<-stalled.entered
	v.drop("p1")
	hub.CloseRoom("p1")
	close(stalled.release)

	require.ErrorIs(t, <-joined, domain.ErrProjectNotFound)
	assert.Zero(t, hub.RoomCount())
	assert.Empty(t, hub.RoomsOf(carol))
}
