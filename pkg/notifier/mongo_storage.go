package notifier

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage is a document-store Storage implementation for deployments
// already running MongoDB. Semantics match PostgresStorage: single-document
// atomic updates with forward-only flags enforced in the filters.
type MongoStorage struct {
	collection *mongo.Collection
}

// NewMongoStorage creates a Mongo-backed notification storage using the
// "notifications" collection of the given database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection("notifications")}
}

// notificationDoc is the BSON shape of a stored notification.
type notificationDoc struct {
	ID          string         `bson:"_id"`
	UserID      string         `bson:"user_id"`
	Type        string         `bson:"type"`
	Title       string         `bson:"title"`
	Message     string         `bson:"message"`
	Priority    string         `bson:"priority"`
	Data        map[string]any `bson:"data,omitempty"`
	ActionURL   string         `bson:"action_url,omitempty"`
	Delivered   bool           `bson:"is_delivered"`
	DeliveredAt *time.Time     `bson:"delivered_at,omitempty"`
	Read        bool           `bson:"is_read"`
	ReadAt      *time.Time     `bson:"read_at,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
}

func toDoc(n Notification) notificationDoc {
	return notificationDoc{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		Priority:    string(n.Priority),
		Data:        n.Data,
		ActionURL:   n.ActionURL,
		Delivered:   n.Delivered,
		DeliveredAt: n.DeliveredAt,
		Read:        n.Read,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}

func (d notificationDoc) toNotification() Notification {
	return Notification{
		ID:          d.ID,
		UserID:      d.UserID,
		Type:        Type(d.Type),
		Title:       d.Title,
		Message:     d.Message,
		Priority:    Priority(d.Priority),
		Data:        d.Data,
		ActionURL:   d.ActionURL,
		Delivered:   d.Delivered,
		DeliveredAt: d.DeliveredAt,
		Read:        d.Read,
		ReadAt:      d.ReadAt,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *MongoStorage) Create(ctx context.Context, notif Notification) error {
	_, err := s.collection.InsertOne(ctx, toDoc(notif))
	return err
}

func (s *MongoStorage) Get(ctx context.Context, userID, id string) (*Notification, error) {
	var doc notificationDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	notif := doc.toNotification()
	return &notif, nil
}

func (s *MongoStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, int, error) {
	opts = opts.Normalize()

	filter := bson.M{"user_id": userID}
	if opts.Read != nil {
		filter["is_read"] = *opts.Read
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.Priority != "" {
		filter["priority"] = string(opts.Priority)
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit)))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifs := []Notification{}
	for cursor.Next(ctx) {
		var doc notificationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		notifs = append(notifs, doc.toNotification())
	}
	return notifs, int(total), cursor.Err()
}

func (s *MongoStorage) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "is_delivered": false},
		bson.M{"$set": bson.M{"is_delivered": true, "delivered_at": time.Now()}},
	)
	return err
}

func (s *MongoStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	_, err := s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now()}},
	)
	return err
}

func (s *MongoStorage) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now()}},
	)
	return err
}

func (s *MongoStorage) Delete(ctx context.Context, userID string, ids ...string) error {
	_, err := s.collection.DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "user_id": userID},
	)
	return err
}

func (s *MongoStorage) DeleteAllRead(ctx context.Context, userID string) error {
	_, err := s.collection.DeleteMany(ctx,
		bson.M{"user_id": userID, "is_read": true},
	)
	return err
}

func (s *MongoStorage) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.collection.DeleteMany(ctx,
		bson.M{"is_read": true, "read_at": bson.M{"$lt": cutoff}},
	)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
	return int(count), err
}

func (s *MongoStorage) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats := &Stats{ByPriority: make(map[Priority]int)}

	total, err := s.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	stats.Total = int(total)

	delivered, err := s.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_delivered": true})
	if err != nil {
		return nil, err
	}
	stats.Delivered = int(delivered)

	cursor, err := s.collection.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user_id": userID, "is_read": false}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$priority", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var group struct {
			Priority string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&group); err != nil {
			return nil, err
		}
		stats.ByPriority[Priority(group.Priority)] = group.Count
		stats.Unread += group.Count
	}
	return stats, cursor.Err()
}

// MongoSettingsStore persists per-user notification settings in the
// "notification_settings" collection.
type MongoSettingsStore struct {
	collection *mongo.Collection
}

// NewMongoSettingsStore creates a Mongo-backed settings store.
func NewMongoSettingsStore(db *mongo.Database) *MongoSettingsStore {
	return &MongoSettingsStore{collection: db.Collection("notification_settings")}
}

type settingsDoc struct {
	UserID            string `bson:"_id"`
	Email             bool   `bson:"email"`
	InApp             bool   `bson:"in_app"`
	CourseUpdates     bool   `bson:"course_updates"`
	AssignmentUpdates bool   `bson:"assignment_updates"`
	DiscussionUpdates bool   `bson:"discussion_updates"`
	PaymentUpdates    bool   `bson:"payment_updates"`
	AccountUpdates    bool   `bson:"account_updates"`
}

func (s *MongoSettingsStore) Get(ctx context.Context, userID string) (*Settings, error) {
	var doc settingsDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &Settings{
		UserID:            doc.UserID,
		Email:             doc.Email,
		InApp:             doc.InApp,
		CourseUpdates:     doc.CourseUpdates,
		AssignmentUpdates: doc.AssignmentUpdates,
		DiscussionUpdates: doc.DiscussionUpdates,
		PaymentUpdates:    doc.PaymentUpdates,
		AccountUpdates:    doc.AccountUpdates,
	}, nil
}

func (s *MongoSettingsStore) Upsert(ctx context.Context, settings Settings) error {
	doc := settingsDoc{
		UserID:            settings.UserID,
		Email:             settings.Email,
		InApp:             settings.InApp,
		CourseUpdates:     settings.CourseUpdates,
		AssignmentUpdates: settings.AssignmentUpdates,
		DiscussionUpdates: settings.DiscussionUpdates,
		PaymentUpdates:    settings.PaymentUpdates,
		AccountUpdates:    settings.AccountUpdates,
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": settings.UserID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}
