// Package notifier is the notification delivery engine of the course
// marketplace: it turns a domain event ("course approved", "payment
// failed", "content removed") into a persisted, trackable notification
// delivered across two independent channels, a real-time push to active
// sessions and a transactional email, while respecting per-user
// preferences, priority classes and bulk fan-out semantics.
//
// # Architecture
//
// The package is layered around the persisted record as the source of truth:
//
//   - Storage / SettingsStore: persistence boundaries with Postgres, Mongo
//     and in-memory implementations
//   - Manager: creates records and applies the forward-only delivery/read
//     transitions
//   - RealtimeDispatcher: best-effort push to live sessions plus the
//     presence-based delivered heuristic
//   - EmailDispatcher: per-type template rendering and best-effort handoff
//     to the email transport
//   - PreferenceResolver + Classify: the email decision (critical types
//     always email, optional types follow user settings, fail-closed)
//   - Service: the caller-facing API orchestrating the full lifecycle,
//     including concurrent bulk fan-out with isolated failures
//   - Sweeper: the retention background task deleting old read records
//
// # Delivery contract
//
// A Create call either fully succeeds (record persisted, side channels
// attempted) or fully fails (no record, clear error). Once the record
// exists, push and email failures are logged and swallowed: they affect how
// fast the user learns about the event, never whether the event is
// recorded. The engine does not guarantee exactly-once delivery and the
// delivered flag means "a session was live at push time", not "the client
// rendered it".
//
// # Basic usage
//
//	storage := notifier.NewMemoryStorage()
//	settings := notifier.NewMemorySettingsStore()
//	manager := notifier.NewManager(storage)
//
//	svc := notifier.NewService(manager, settings,
//	    notifier.WithRealtime(notifier.NewRealtimeDispatcher(hub, manager)),
//	    notifier.WithEmailer(notifier.NewEmailDispatcher(sender, directory)),
//	)
//
//	notif, err := svc.Create(ctx, notifier.CreateInput{
//	    UserID:  "user-123",
//	    Type:    notifier.TypeCourseApproved,
//	    Title:   "Course approved",
//	    Message: "Your course is now live.",
//	    Data:    map[string]any{"course_name": "Intro to Go"},
//	}, notifier.Options{})
//
// The retention sweeper is owned by process initialization:
//
//	sweeper := notifier.NewSweeper(storage)
//	go sweeper.Start(ctx) // stopped by cancelling ctx
package notifier
