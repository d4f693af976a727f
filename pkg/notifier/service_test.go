package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/notify/pkg/email"
)

type sentEvent struct {
	userID  string
	event   string
	payload any
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentEvent
	online    map[string]bool
	sendErr   error
	onlineErr error
}

func newFakeTransport(onlineUsers ...string) *fakeTransport {
	online := make(map[string]bool, len(onlineUsers))
	for _, u := range onlineUsers {
		online[u] = true
	}
	return &fakeTransport{online: online}
}

func (t *fakeTransport) SendToUser(ctx context.Context, userID, event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, sentEvent{userID: userID, event: event, payload: payload})
	return nil
}

func (t *fakeTransport) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onlineErr != nil {
		return false, t.onlineErr
	}
	return t.online[userID], nil
}

func (t *fakeTransport) sentTo(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, s := range t.sent {
		if s.userID == userID {
			count++
		}
	}
	return count
}

type fakeSender struct {
	mu   sync.Mutex
	sent []email.SendParams
	err  error
}

func (s *fakeSender) SendEmail(ctx context.Context, params email.SendParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type staticDirectory struct {
	recipients map[string]Recipient
	err        error
}

func (d *staticDirectory) Recipient(ctx context.Context, userID string) (*Recipient, error) {
	if d.err != nil {
		return nil, d.err
	}
	if rcpt, ok := d.recipients[userID]; ok {
		return &rcpt, nil
	}
	return nil, errors.New("unknown user")
}

type serviceFixture struct {
	service   *Service
	manager   *Manager
	storage   *MemoryStorage
	settings  *MemorySettingsStore
	transport *fakeTransport
	sender    *fakeSender
	logs      *bytes.Buffer
}

func newServiceFixture(t *testing.T, transport *fakeTransport) *serviceFixture {
	t.Helper()

	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))

	storage := NewMemoryStorage()
	manager := NewManager(storage, WithManagerLogger(log))
	settings := NewMemorySettingsStore()
	sender := &fakeSender{}
	directory := &staticDirectory{recipients: map[string]Recipient{
		"user-1": {Email: "user1@example.com", Name: "User One"},
		"user-2": {Email: "user2@example.com", Name: "User Two"},
		"user-3": {Email: "user3@example.com", Name: "User Three"},
	}}

	service := NewService(manager, settings,
		WithRealtime(NewRealtimeDispatcher(transport, manager, WithRealtimeLogger(log))),
		WithEmailer(NewEmailDispatcher(sender, directory, WithEmailLogger(log))),
		WithServiceLogger(log),
	)

	return &serviceFixture{
		service:   service,
		manager:   manager,
		storage:   storage,
		settings:  settings,
		transport: transport,
		sender:    sender,
		logs:      logs,
	}
}

func TestService_CreateOnlineRecipient(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport("user-1"))

	// Stored settings put course_approved in the always-email set even
	// though the email toggle is off.
	optedOut := DefaultSettings("user-1")
	optedOut.Email = false
	require.NoError(t, fx.settings.Upsert(context.Background(), optedOut))

	notif, err := fx.service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeCourseApproved,
		Title:   "Course approved",
		Message: "Your course is now live.",
	}, Options{})
	require.NoError(t, err)

	assert.True(t, notif.Delivered, "a live session marks the record delivered")
	assert.NotNil(t, notif.DeliveredAt)
	assert.False(t, notif.Read)

	stored, err := fx.manager.Get(context.Background(), "user-1", notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.Delivered)

	assert.Equal(t, 1, fx.transport.sentTo("user-1"))
	assert.Equal(t, 1, fx.sender.sentCount(), "course_approved emails regardless of settings")
}

func TestService_CreateOfflineRecipient(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport())

	notif, err := fx.service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeSecurityAlert,
		Title:   "New login",
		Message: "A new device signed in to your account.",
	}, Options{})
	require.NoError(t, err)

	assert.False(t, notif.Delivered, "no live session, nothing delivered")
	assert.Nil(t, notif.DeliveredAt)

	// The email still goes out: security alerts bypass presence and settings.
	assert.Equal(t, 1, fx.sender.sentCount())

	count, err := fx.service.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_CreateConditionalTypeRespectsSettings(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport())

	optedIn := DefaultSettings("user-1")
	require.NoError(t, fx.settings.Upsert(context.Background(), optedIn))

	optedOut := DefaultSettings("user-2")
	optedOut.Email = false
	require.NoError(t, fx.settings.Upsert(context.Background(), optedOut))

	in := CreateInput{
		Type:    TypeNewStudentEnrolled,
		Title:   "New student",
		Message: "Someone enrolled in your course.",
	}

	in.UserID = "user-1"
	_, err := fx.service.Create(context.Background(), in, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.sender.sentCount())

	in.UserID = "user-2"
	_, err = fx.service.Create(context.Background(), in, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.sender.sentCount(), "opted-out user gets no email")

	// No stored settings means no opt-in for conditional types.
	in.UserID = "user-3"
	_, err = fx.service.Create(context.Background(), in, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.sender.sentCount())
}

func TestService_CreateExplicitEmailOverride(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	t.Run("force on", func(t *testing.T) {
		fx := newServiceFixture(t, newFakeTransport())

		// discussion_reply is in-app only; the explicit flag forces the
		// attempt, but without a template no email is produced.
		_, err := fx.service.Create(context.Background(), CreateInput{
			UserID:  "user-1",
			Type:    TypeDiscussionReply,
			Title:   "New reply",
			Message: "Someone replied to your thread.",
		}, Options{SendEmail: boolPtr(true)})
		require.NoError(t, err)
		assert.Zero(t, fx.sender.sentCount())
	})

	t.Run("force off", func(t *testing.T) {
		fx := newServiceFixture(t, newFakeTransport())

		_, err := fx.service.Create(context.Background(), CreateInput{
			UserID:  "user-1",
			Type:    TypePaymentConfirmed,
			Title:   "Payment received",
			Message: "Your payment went through.",
		}, Options{SendEmail: boolPtr(false)})
		require.NoError(t, err)
		assert.Zero(t, fx.sender.sentCount(), "explicit opt-out beats the always policy")
	})
}

func TestService_CreateSocketDisabled(t *testing.T) {
	off := false
	fx := newServiceFixture(t, newFakeTransport("user-1"))

	notif, err := fx.service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeNewAnnouncement,
		Title:   "Maintenance window",
		Message: "Scheduled maintenance tonight.",
	}, Options{SendSocket: &off})
	require.NoError(t, err)

	assert.Zero(t, fx.transport.sentTo("user-1"))
	assert.False(t, notif.Delivered)
}

func TestService_CreateSideChannelFailureDoesNotFail(t *testing.T) {
	transport := newFakeTransport("user-1")
	transport.sendErr = errors.New("socket hub unavailable")
	fx := newServiceFixture(t, transport)

	notif, err := fx.service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeCourseUpdated,
		Title:   "Course updated",
		Message: "New lesson added.",
	}, Options{})
	require.NoError(t, err, "side-channel failure never surfaces to the caller")
	require.NotNil(t, notif)

	// The record still exists and the failure left a trace in the logs.
	_, err = fx.manager.Get(context.Background(), "user-1", notif.ID)
	require.NoError(t, err)
	assert.Contains(t, fx.logs.String(), "realtime push failed")
	assert.Contains(t, fx.logs.String(), "socket hub unavailable")
}

func TestService_CreatePresenceFailureMeansUndelivered(t *testing.T) {
	transport := newFakeTransport("user-1")
	transport.onlineErr = errors.New("presence backend down")
	fx := newServiceFixture(t, transport)

	notif, err := fx.service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeNewAnnouncement,
		Title:   "Hello",
		Message: "World.",
	}, Options{})
	require.NoError(t, err)
	assert.False(t, notif.Delivered, "unknown presence counts as offline")
}

// stalledTransport holds every push until release is closed, simulating a
// hub that answers slower than the side-channel deadline.
type stalledTransport struct {
	fakeTransport
	release chan struct{}
}

func (t *stalledTransport) SendToUser(ctx context.Context, userID, event string, payload any) error {
	<-t.release
	return t.fakeTransport.SendToUser(ctx, userID, event, payload)
}

func TestService_CreateSlowPushLeavesReturnedRecordUntouched(t *testing.T) {
	transport := &stalledTransport{release: make(chan struct{})}
	transport.online = map[string]bool{"user-1": true}

	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))
	manager := NewManager(NewMemoryStorage(), WithManagerLogger(log))
	service := NewService(manager, NewMemorySettingsStore(),
		WithRealtime(NewRealtimeDispatcher(transport, manager, WithRealtimeLogger(log))),
		WithServiceLogger(log),
		WithSideChannelTimeout(10*time.Millisecond),
	)

	notif, err := service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeNewAnnouncement,
		Title:   "Slow pipe",
		Message: "The hub is having a day.",
	}, Options{})
	require.NoError(t, err)

	assert.False(t, notif.Delivered, "a push that missed the deadline must not flip the returned record")
	assert.Nil(t, notif.DeliveredAt)
	assert.Contains(t, logs.String(), "realtime push timed out")

	// Let the stalled push finish. It may still mark the stored row, but the
	// record already handed back to the caller stays exactly as returned.
	close(transport.release)
	require.Eventually(t, func() bool {
		stored, err := manager.Get(context.Background(), "user-1", notif.ID)
		return err == nil && stored.Delivered
	}, time.Second, 5*time.Millisecond)

	assert.False(t, notif.Delivered)
	assert.Nil(t, notif.DeliveredAt)
}

func TestService_CreateBulkPartialFailure(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport("user-1", "user-3"))

	userIDs := []string{"user-1", "user-2", "", "user-3", "user-4"}
	result, err := fx.service.CreateBulk(context.Background(), userIDs, CreateInput{
		Type:    TypeNewAnnouncement,
		Title:   "Platform update",
		Message: "We shipped something new.",
	}, Options{})
	require.NoError(t, err, "bulk never fails as a whole")

	require.Len(t, result.Created, 4)
	require.Len(t, result.Failed, 1)
	assert.Empty(t, result.Failed[0].UserID)
	assert.ErrorIs(t, result.Failed[0].Err, ErrValidation)

	// Every surviving recipient got their own record.
	for _, userID := range []string{"user-1", "user-2", "user-3", "user-4"} {
		count, err := fx.service.UnreadCount(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "user %s should have one notification", userID)
	}

	// Only the online recipients were marked delivered.
	delivered := 0
	for _, n := range result.Created {
		stored, err := fx.manager.Get(context.Background(), n.UserID, n.ID)
		require.NoError(t, err)
		if stored.Delivered {
			delivered++
		}
	}
	assert.Equal(t, 2, delivered)
}

// rejectingStorage fails Create for a single recipient and behaves normally
// for everyone else.
type rejectingStorage struct {
	*MemoryStorage
	rejectUserID string
}

func (s *rejectingStorage) Create(ctx context.Context, notif Notification) error {
	if notif.UserID == s.rejectUserID {
		return errors.New("insert failed: connection reset")
	}
	return s.MemoryStorage.Create(ctx, notif)
}

func TestService_CreateBulkIsolatesPersistenceFailure(t *testing.T) {
	storage := &rejectingStorage{MemoryStorage: NewMemoryStorage(), rejectUserID: "user-3"}
	manager := NewManager(storage)
	service := NewService(manager, NewMemorySettingsStore())

	userIDs := []string{"user-1", "user-2", "user-3", "user-4", "user-5"}
	result, err := service.CreateBulk(context.Background(), userIDs, CreateInput{
		Type:    TypeNewAnnouncement,
		Title:   "Platform update",
		Message: "We shipped something new.",
	}, Options{})
	require.NoError(t, err, "one recipient's storage failure never fails the batch")

	require.Len(t, result.Created, 4)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "user-3", result.Failed[0].UserID)
	assert.ErrorIs(t, result.Failed[0].Err, ErrPersistence)

	// The failed recipient got no record; the rest each got theirs.
	count, err := service.UnreadCount(context.Background(), "user-3")
	require.NoError(t, err)
	assert.Zero(t, count)
	for _, userID := range []string{"user-1", "user-2", "user-4", "user-5"} {
		count, err := service.UnreadCount(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "user %s should have one notification", userID)
	}
}

func TestService_CreateBulkIsolatesSideChannelFailures(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport("user-1", "user-2"))
	fx.transport.sendErr = errors.New("hub flapping")

	result, err := fx.service.CreateBulk(context.Background(), []string{"user-1", "user-2"}, CreateInput{
		Type:    TypeNewAnnouncement,
		Title:   "Heads up",
		Message: "Something broke, something shipped.",
	}, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Failed, "push failures are not creation failures")
}

func TestService_CreateBulkManyRecipients(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport())

	userIDs := make([]string, 50)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("student-%d", i)
	}

	result, err := fx.service.CreateBulk(context.Background(), userIDs, CreateInput{
		Type:    TypeNewAnnouncement,
		Title:   "Course announcement",
		Message: "Lecture moved to Friday.",
	}, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Created, 50)
	assert.Empty(t, result.Failed)
}

func TestService_CreateWithoutDispatchers(t *testing.T) {
	// A service with no realtime or email wiring still persists records.
	manager := NewManager(NewMemoryStorage())
	service := NewService(manager, NewMemorySettingsStore())

	notif, err := service.Create(context.Background(), CreateInput{
		UserID:  "user-1",
		Type:    TypeSecurityAlert,
		Title:   "New login",
		Message: "A new device signed in.",
	}, Options{})
	require.NoError(t, err)
	assert.False(t, notif.Delivered)
}

func TestService_Settings(t *testing.T) {
	fx := newServiceFixture(t, newFakeTransport())

	t.Run("defaults when unset", func(t *testing.T) {
		settings, err := fx.service.GetSettings(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, settings.Email)
		assert.True(t, settings.CourseUpdates)
	})

	t.Run("round trip", func(t *testing.T) {
		updated := DefaultSettings("user-1")
		updated.DiscussionUpdates = false
		require.NoError(t, fx.service.UpdateSettings(context.Background(), updated))

		settings, err := fx.service.GetSettings(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, settings.DiscussionUpdates)
	})

	t.Run("rejects missing user id", func(t *testing.T) {
		err := fx.service.UpdateSettings(context.Background(), Settings{})
		assert.ErrorIs(t, err, ErrValidation)
	})
}
