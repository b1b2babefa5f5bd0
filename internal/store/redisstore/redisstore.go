// Package redisstore implements the record store on Redis.
//
// Each record is a hash at <prefix>:<collection>:<id>. A sorted set at
// <prefix>:<collection> indexes the ids of a kind, scored by insertion order,
// so scans see records oldest first like the other backends.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ store.Store = (*Store)(nil)

// stored is a record together with the id of the hash holding it.
type stored struct {
	id     string
	fields map[string]string
}

func New(client *redis.Client, prefix string, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger.With("backend", "redis", "prefix", prefix),
	}
}

func (s *Store) indexKey(kind records.Kind) string {
	return fmt.Sprintf("%s:%s", s.prefix, kind.Collection())
}

func (s *Store) recordKey(kind records.Kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind.Collection(), id)
}

func (s *Store) seqKey() string {
	return s.prefix + ":seq"
}

func (s *Store) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if s.closed.Load() {
		return nil, nil, store.ErrClosed
	}
	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	return ctx, cancel, nil
}

func (s *Store) Add(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return wrap("insert "+kind.String(), err)
	}

	id := uuid.NewString()
	fields := make(map[string]any)
	for name, value := range records.Strings(rec) {
		fields[name] = value
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, s.recordKey(kind, id), fields)
		}
		pipe.ZAdd(ctx, s.indexKey(kind), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return wrap("insert "+kind.String(), err)
	}
	s.logger.Debug("record_added", "kind", kind, "id", id)
	return nil
}

// scan loads every record of kind, oldest first.
func (s *Store) scan(ctx context.Context, kind records.Kind) ([]stored, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(kind, id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]stored, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// erased between the index read and the hash read
			continue
		}
		out = append(out, stored{id: ids[i], fields: fields})
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, kind records.Kind, key records.Key) (records.Record, error) {
	if err := store.CheckKind(kind); err != nil {
		return nil, err
	}
	filter, err := kind.Filter(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	all, err := s.scan(ctx, kind)
	if err != nil {
		return nil, wrap("get "+kind.String(), err)
	}
	for _, st := range all {
		if matches(st.fields, filter) {
			return kind.Decode(st.fields)
		}
	}
	return nil, nil // Not found
}

func (s *Store) GetAll(ctx context.Context, kind records.Kind) ([]records.Record, error) {
	if err := store.CheckKind(kind); err != nil {
		return nil, err
	}
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	all, err := s.scan(ctx, kind)
	if err != nil {
		return nil, wrap("list "+kind.String(), err)
	}
	out := make([]records.Record, 0, len(all))
	for _, st := range all {
		rec, err := kind.Decode(st.fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", kind, st.id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Erase(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	all, err := s.scan(ctx, kind)
	if err != nil {
		return wrap("erase "+kind.String(), err)
	}
	want := rec.Fields()
	for _, st := range all {
		if !exact(st.fields, want) {
			continue
		}
		if err := s.delete(ctx, kind, st.id); err != nil {
			return wrap("erase "+kind.String(), err)
		}
		s.logger.Debug("record_erased", "kind", kind, "id", st.id)
		return nil
	}
	return nil
}

func (s *Store) delete(ctx context.Context, kind records.Kind, ids ...string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, len(ids))
		members := make([]any, len(ids))
		for i, id := range ids {
			keys[i] = s.recordKey(kind, id)
			members[i] = id
		}
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.indexKey(kind), members...)
		return nil
	})
	return err
}

func (s *Store) GetChapterFileByID(ctx context.Context, id string) (*records.ChapterFile, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	all, err := s.scan(ctx, records.KindChapterFile)
	if err != nil {
		return nil, wrap("get chapter file by id", err)
	}
	for _, st := range all {
		if hasValue(st.fields, "file_unique_id", id) || hasValue(st.fields, "cbz_unique_id", id) {
			rec, err := records.KindChapterFile.Decode(st.fields)
			if err != nil {
				return nil, fmt.Errorf("decode chapter file %s: %w", st.id, err)
			}
			return rec.(*records.ChapterFile), nil
		}
	}
	return nil, nil
}

func (s *Store) GetSubs(ctx context.Context, userID string, filters ...string) ([]records.MangaName, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	subs, err := s.scan(ctx, records.KindSubscription)
	if err != nil {
		return nil, wrap("list subscriptions", err)
	}
	names, err := s.scan(ctx, records.KindMangaName)
	if err != nil {
		return nil, wrap("list manga names", err)
	}

	filters = store.NameFilters(filters)
	out := make([]records.MangaName, 0)
	for _, sub := range subs {
		if !hasValue(sub.fields, "user_id", userID) {
			continue
		}
		url := sub.fields["url"]
		for _, name := range names {
			if hasValue(name.fields, "url", url) && store.MatchesAny(name.fields["name"], filters) {
				out = append(out, records.MangaName{URL: url, Name: name.fields["name"]})
				break
			}
		}
	}
	return out, nil
}

func (s *Store) EraseSubs(ctx context.Context, userID string) (int64, error) {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	subs, err := s.scan(ctx, records.KindSubscription)
	if err != nil {
		return 0, wrap("erase subscriptions", err)
	}
	var ids []string
	for _, sub := range subs {
		if hasValue(sub.fields, "user_id", userID) {
			ids = append(ids, sub.id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.delete(ctx, records.KindSubscription, ids...); err != nil {
		return 0, wrap("erase subscriptions", err)
	}
	s.logger.Debug("subscriptions_erased", "user_id", userID, "deleted", len(ids))
	return int64(len(ids)), nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return wrap("ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	if err := s.client.Close(); err != nil {
		s.logger.Error("redis_close_failed", "error", err)
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// matches reports whether the stored fields satisfy every entry of filter.
// A nil filter value matches an absent field.
func matches(fields map[string]string, filter records.Filter) bool {
	for name, want := range filter {
		got, ok := fields[name]
		if want == nil {
			if ok {
				return false
			}
			continue
		}
		if !ok || got != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// exact is matches plus no stored field beyond those in want.
func exact(fields map[string]string, want records.Filter) bool {
	for name := range fields {
		if _, ok := want[name]; !ok {
			return false
		}
	}
	return matches(fields, want)
}

func hasValue(fields map[string]string, name, value string) bool {
	got, ok := fields[name]
	return ok && got == value
}

func wrap(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
