package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekit/notify/pkg/pg"
)

// PostgresStorage is the production Storage implementation over a pgx pool.
// Each mutation is a single UPDATE, relying on per-row atomicity; the
// forward-only flag transitions are enforced in the WHERE clauses so
// repeated marks are no-ops at the storage layer too.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const notificationColumns = `id, user_id, type, title, message, priority, data, action_url,
	is_delivered, delivered_at, is_read, read_at, created_at`

func (s *PostgresStorage) Create(ctx context.Context, notif Notification) error {
	data, err := marshalData(notif.Data)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, priority, data, action_url,
			is_delivered, delivered_at, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		notif.ID, notif.UserID, string(notif.Type), notif.Title, notif.Message,
		string(notif.Priority), data, nullableString(notif.ActionURL),
		notif.Delivered, notif.DeliveredAt, notif.Read, notif.ReadAt, notif.CreatedAt,
	)
	return err
}

func (s *PostgresStorage) Get(ctx context.Context, userID, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	notif, err := scanNotification(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return notif, nil
}

func (s *PostgresStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, int, error) {
	opts = opts.Normalize()

	where := `user_id = $1`
	args := []any{userID}
	if opts.Read != nil {
		args = append(args, *opts.Read)
		where += fmt.Sprintf(` AND is_read = $%d`, len(args))
	}
	if opts.Type != "" {
		args = append(args, string(opts.Type))
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if opts.Priority != "" {
		args = append(args, string(opts.Priority))
		where += fmt.Sprintf(` AND priority = $%d`, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, opts.Limit, opts.Offset())
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifs := []Notification{}
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifs = append(notifs, *notif)
	}
	return notifs, total, rows.Err()
}

func (s *PostgresStorage) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_delivered = TRUE, delivered_at = now()
		WHERE id = $1 AND is_delivered = FALSE`,
		id,
	)
	return err
}

func (s *PostgresStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND id = ANY($2) AND is_read = FALSE`,
		userID, ids,
	)
	return err
}

func (s *PostgresStorage) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	return err
}

func (s *PostgresStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE user_id = $1 AND id = ANY($2)`,
		userID, ids,
	)
	return err
}

func (s *PostgresStorage) DeleteAllRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE user_id = $1 AND is_read = TRUE`,
		userID,
	)
	return err
}

func (s *PostgresStorage) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE is_read = TRUE AND read_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStorage) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats := &Stats{ByPriority: make(map[Priority]int)}

	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE is_read = FALSE),
			count(*) FILTER (WHERE is_delivered = TRUE)
		FROM notifications
		WHERE user_id = $1`,
		userID,
	).Scan(&stats.Total, &stats.Unread, &stats.Delivered)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT priority, count(*)
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
		GROUP BY priority`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		stats.ByPriority[Priority(priority)] = count
	}
	return stats, rows.Err()
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		notif     Notification
		typ       string
		priority  string
		data      []byte
		actionURL *string
	)
	err := row.Scan(&notif.ID, &notif.UserID, &typ, &notif.Title, &notif.Message,
		&priority, &data, &actionURL,
		&notif.Delivered, &notif.DeliveredAt, &notif.Read, &notif.ReadAt, &notif.CreatedAt)
	if err != nil {
		return nil, err
	}
	notif.Type = Type(typ)
	notif.Priority = Priority(priority)
	if actionURL != nil {
		notif.ActionURL = *actionURL
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &notif.Data); err != nil {
			return nil, err
		}
	}
	return &notif, nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Join(ErrValidation, err)
	}
	return b, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PostgresSettingsStore persists per-user notification settings in Postgres.
type PostgresSettingsStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSettingsStore creates a Postgres-backed settings store.
func NewPostgresSettingsStore(pool *pgxpool.Pool) *PostgresSettingsStore {
	return &PostgresSettingsStore{pool: pool}
}

func (s *PostgresSettingsStore) Get(ctx context.Context, userID string) (*Settings, error) {
	var settings Settings
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, email, in_app, course_updates, assignment_updates,
			discussion_updates, payment_updates, account_updates
		FROM notification_settings
		WHERE user_id = $1`,
		userID,
	).Scan(&settings.UserID, &settings.Email, &settings.InApp, &settings.CourseUpdates,
		&settings.AssignmentUpdates, &settings.DiscussionUpdates,
		&settings.PaymentUpdates, &settings.AccountUpdates)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &settings, nil
}

func (s *PostgresSettingsStore) Upsert(ctx context.Context, settings Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_settings (user_id, email, in_app, course_updates,
			assignment_updates, discussion_updates, payment_updates, account_updates)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			in_app = EXCLUDED.in_app,
			course_updates = EXCLUDED.course_updates,
			assignment_updates = EXCLUDED.assignment_updates,
			discussion_updates = EXCLUDED.discussion_updates,
			payment_updates = EXCLUDED.payment_updates,
			account_updates = EXCLUDED.account_updates`,
		settings.UserID, settings.Email, settings.InApp, settings.CourseUpdates,
		settings.AssignmentUpdates, settings.DiscussionUpdates,
		settings.PaymentUpdates, settings.AccountUpdates,
	)
	return err
}
