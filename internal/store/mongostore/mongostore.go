// Package mongostore implements the record store on MongoDB, one collection
// per record kind.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

// Store talks to the collections of one MongoDB database.
type Store struct {
	db          *mongo.Database
	collections map[records.Kind]*mongo.Collection
	timeout     time.Duration
	logger      *slog.Logger
	closed      atomic.Bool
}

var _ store.Store = (*Store)(nil)

// New wraps db. timeout bounds calls whose context has no deadline.
func New(db *mongo.Database, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	collections := make(map[records.Kind]*mongo.Collection)
	for _, kind := range records.Kinds() {
		collections[kind] = db.Collection(kind.Collection())
	}
	return &Store{
		db:          db,
		collections: collections,
		timeout:     timeout,
		logger:      logger.With("backend", "mongo", "database", db.Name()),
	}
}

func (s *Store) collection(kind records.Kind) (*mongo.Collection, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	coll, ok := s.collections[kind]
	if !ok {
		return nil, store.CheckKind(kind)
	}
	return coll, nil
}

func (s *Store) Add(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	coll, err := s.collection(kind)
	if err != nil {
		return err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := coll.InsertOne(ctx, rec); err != nil {
		return wrap("insert "+kind.String(), err)
	}
	s.logger.Debug("record_added", "kind", kind)
	return nil
}

func (s *Store) Get(ctx context.Context, kind records.Kind, key records.Key) (records.Record, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	filter, err := kind.Filter(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, _ := kind.New()
	err = coll.FindOne(ctx, bson.M(filter)).Decode(rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, wrap("get "+kind.String(), err)
	}
	return rec, nil
}

func (s *Store) GetAll(ctx context.Context, kind records.Kind) ([]records.Record, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, wrap("list "+kind.String(), err)
	}
	defer cursor.Close(ctx)

	out := make([]records.Record, 0)
	for cursor.Next(ctx) {
		rec, _ := kind.New()
		if err := cursor.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, wrap("list "+kind.String(), err)
	}
	return out, nil
}

func (s *Store) Erase(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	coll, err := s.collection(kind)
	if err != nil {
		return err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := coll.DeleteOne(ctx, bson.M(rec.Fields()))
	if err != nil {
		return wrap("erase "+kind.String(), err)
	}
	s.logger.Debug("record_erased", "kind", kind, "deleted", res.DeletedCount)
	return nil
}

func (s *Store) GetChapterFileByID(ctx context.Context, id string) (*records.ChapterFile, error) {
	coll, err := s.collection(records.KindChapterFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"file_unique_id": id},
		bson.M{"cbz_unique_id": id},
	}}

	var file records.ChapterFile
	err = coll.FindOne(ctx, filter).Decode(&file)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get chapter file by id", err)
	}
	return &file, nil
}

func (s *Store) GetSubs(ctx context.Context, userID string, filters ...string) ([]records.MangaName, error) {
	subsColl, err := s.collection(records.KindSubscription)
	if err != nil {
		return nil, err
	}
	namesColl := s.collections[records.KindMangaName]

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := subsColl.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, wrap("list subscriptions", err)
	}
	var subs []records.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, wrap("list subscriptions", err)
	}

	nameMatch := nameFilter(store.NameFilters(filters))
	names := make([]records.MangaName, 0, len(subs))
	for _, sub := range subs {
		query := bson.M{"url": sub.URL}
		if nameMatch != nil {
			query["$or"] = nameMatch
		}

		var name records.MangaName
		err := namesColl.FindOne(ctx, query).Decode(&name)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, wrap("get manga name", err)
		}
		names = append(names, name)
	}
	return names, nil
}

// nameFilter matches a name containing any of filters, case-insensitively.
// Filters are literal text.
func nameFilter(filters []string) bson.A {
	if len(filters) == 0 {
		return nil
	}
	clauses := make(bson.A, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, bson.M{"name": bson.M{
			"$regex":   regexp.QuoteMeta(f),
			"$options": "i",
		}})
	}
	return clauses
}

func (s *Store) EraseSubs(ctx context.Context, userID string) (int64, error) {
	coll, err := s.collection(records.KindSubscription)
	if err != nil {
		return 0, err
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := coll.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, wrap("erase subscriptions", err)
	}
	s.logger.Debug("subscriptions_erased", "user_id", userID, "deleted", res.DeletedCount)
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Close disconnects the underlying client. Later calls fail with store.ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.db.Client().Disconnect(ctx); err != nil {
		s.logger.Error("mongo_disconnect_failed", "error", err)
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
