// Package mongostore implements query.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/query"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	indexed bool
}

var _ query.Store = (*Store)(nil)

// Open configures a client for uri and selects database name. It does not
// wait for the server: the driver connects lazily and reconnects on its
// own. Indexes are created by the first successful Ping or CreateUser.
func Open(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, xerrors.Errorf("connect mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(name)}, nil
}

// EnsureIndexes creates the collection indexes once. A failure is
// returned and the next call tries again.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	indexes := map[string][]mongo.IndexModel{
		query.CollectionUsers: {{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		query.CollectionActivities: {{
			Keys: bson.D{{Key: "date", Value: 1}},
		}},
		query.CollectionUserIdle: {{
			Keys:    bson.D{{Key: "user_name", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		query.CollectionAFK: {{
			Keys: bson.D{
				{Key: "timestamp", Value: 1},
				{Key: "username", Value: 1},
				{Key: "date", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("activity_tracking_index"),
		}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return xerrors.Errorf("create %s indexes: %w", coll, err)
		}
	}
	s.indexed = true
	return nil
}

func (s *Store) InsertActivity(ctx context.Context, a entity.ActivityRecord) error {
	a.ID = ""
	if _, err := s.db.Collection(query.CollectionActivities).InsertOne(ctx, a); err != nil {
		return xerrors.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *Store) ActivitiesBetween(ctx context.Context, startDate, endDate string) ([]entity.ActivityRecord, error) {
	filter := bson.M{"date": bson.M{"$gte": startDate, "$lte": endDate}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(query.CollectionActivities).Find(ctx, filter, opts)
	if err != nil {
		return nil, xerrors.Errorf("find activities: %w", err)
	}
	items := []entity.ActivityRecord{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, xerrors.Errorf("decode activities: %w", err)
	}
	return items, nil
}

func (s *Store) DeleteActivitiesBefore(ctx context.Context, date string) (int64, error) {
	return s.deleteBefore(ctx, query.CollectionActivities, date)
}

func (s *Store) UserIdle(ctx context.Context, user, date string) (entity.UserIdleRecord, error) {
	var rec entity.UserIdleRecord
	err := s.db.Collection(query.CollectionUserIdle).
		FindOne(ctx, bson.M{"user_name": user, "date": date}).
		Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.UserIdleRecord{}, query.ErrNotFound
	}
	if err != nil {
		return entity.UserIdleRecord{}, xerrors.Errorf("find idle time: %w", err)
	}
	return rec, nil
}

func (s *Store) UpsertUserIdle(ctx context.Context, rec entity.UserIdleRecord) error {
	_, err := s.db.Collection(query.CollectionUserIdle).UpdateOne(ctx,
		bson.M{"user_name": rec.UserName, "date": rec.Date},
		bson.M{"$set": bson.M{"idle_time": rec.IdleTime, "last_updated": rec.LastUpdated}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return xerrors.Errorf("upsert idle time: %w", err)
	}
	return nil
}

func (s *Store) DeleteUserIdleBefore(ctx context.Context, date string) (int64, error) {
	return s.deleteBefore(ctx, query.CollectionUserIdle, date)
}

func (s *Store) InsertAFK(ctx context.Context, rec entity.AFKSessionRecord) error {
	rec.ID = ""
	if _, err := s.db.Collection(query.CollectionAFK).InsertOne(ctx, rec); err != nil {
		return xerrors.Errorf("insert afk: %w", err)
	}
	return nil
}

func (s *Store) AFKRecords(ctx context.Context, filter query.AFKFilter) ([]entity.AFKSessionRecord, error) {
	q := bson.M{"date": bson.M{"$gte": filter.Since}}
	if filter.Username != "" {
		q["username"] = filter.Username
	}
	if filter.ExcludeHeartbeats {
		q["is_heartbeat"] = bson.M{"$ne": true}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "username", Value: 1},
		{Key: "date", Value: 1},
		{Key: "start_time", Value: 1},
	})
	cur, err := s.db.Collection(query.CollectionAFK).Find(ctx, q, opts)
	if err != nil {
		return nil, xerrors.Errorf("find afk: %w", err)
	}
	items := []entity.AFKSessionRecord{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, xerrors.Errorf("decode afk: %w", err)
	}
	return items, nil
}

func (s *Store) CreateUser(ctx context.Context, u entity.User) error {
	// Duplicate detection relies on the unique username index.
	if err := s.EnsureIndexes(ctx); err != nil {
		return err
	}
	_, err := s.db.Collection(query.CollectionUsers).InsertOne(ctx, bson.M{
		"_id":           u.ID,
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return query.ErrDuplicateUser
	}
	if err != nil {
		return xerrors.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByName(ctx context.Context, username string) (entity.User, error) {
	var u entity.User
	err := s.db.Collection(query.CollectionUsers).FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.User{}, query.ErrNotFound
	}
	if err != nil {
		return entity.User{}, xerrors.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return xerrors.Errorf("ping mongo: %w", err)
	}
	return s.EnsureIndexes(ctx)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) deleteBefore(ctx context.Context, coll, date string) (int64, error) {
	res, err := s.db.Collection(coll).DeleteMany(ctx, bson.M{"date": bson.M{"$lt": date}})
	if err != nil {
		return 0, xerrors.Errorf("delete %s before %s: %w", coll, date, err)
	}
	return res.DeletedCount, nil
}
