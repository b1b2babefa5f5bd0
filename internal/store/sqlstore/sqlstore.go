// Package sqlstore implements the record store on PostgreSQL through gorm,
// one table per record kind.
package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

type Store struct {
	db      *gorm.DB
	timeout time.Duration
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ store.Store = (*Store)(nil)

// New wraps an open gorm connection. timeout bounds calls whose context has
// no deadline.
func New(db *gorm.DB, timeout time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		timeout: timeout,
		logger:  logger.With("backend", "postgres"),
	}
}

// EnsureSchema creates the record tables and their indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return wrap("create tables", err)
	}
	return nil
}

func (s *Store) session(ctx context.Context) (*gorm.DB, context.CancelFunc, error) {
	if s.closed.Load() {
		return nil, nil, store.ErrClosed
	}
	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel, nil
}

func (s *Store) Add(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := tx.Create(toRow(rec)).Error; err != nil {
		return wrap("insert "+kind.String(), err)
	}
	s.logger.Debug("record_added", "kind", kind)
	return nil
}

func (s *Store) Get(ctx context.Context, kind records.Kind, key records.Key) (records.Record, error) {
	if err := store.CheckKind(kind); err != nil {
		return nil, err
	}
	filter, err := kind.Filter(key)
	if err != nil {
		return nil, err
	}
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	found, err := findKind(tx, kind, filter, 1)
	if err != nil {
		return nil, wrap("get "+kind.String(), err)
	}
	if len(found) == 0 {
		return nil, nil // Not found
	}
	return found[0], nil
}

func (s *Store) GetAll(ctx context.Context, kind records.Kind) ([]records.Record, error) {
	if err := store.CheckKind(kind); err != nil {
		return nil, err
	}
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	all, err := findKind(tx, kind, nil, 0)
	if err != nil {
		return nil, wrap("list "+kind.String(), err)
	}
	return all, nil
}

// Erase deletes the oldest row equal to rec in a single statement.
func (s *Store) Erase(ctx context.Context, rec records.Record) error {
	kind, err := records.KindOf(rec)
	if err != nil {
		return err
	}
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	first := tx.Model(model(kind)).
		Select("id").
		Where(map[string]any(rec.Fields())).
		Order("id").
		Limit(1)

	result := tx.Where("id = (?)", first).Delete(model(kind))
	if result.Error != nil {
		return wrap("erase "+kind.String(), result.Error)
	}
	s.logger.Debug("record_erased", "kind", kind, "deleted", result.RowsAffected)
	return nil
}

func (s *Store) GetChapterFileByID(ctx context.Context, id string) (*records.ChapterFile, error) {
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var rows []chapterFileRow
	if err := tx.Where("file_unique_id = ? OR cbz_unique_id = ?", id, id).
		Order("id").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, wrap("get chapter file by id", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].record().(*records.ChapterFile), nil
}

func (s *Store) GetSubs(ctx context.Context, userID string, filters ...string) ([]records.MangaName, error) {
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var subs []subscriptionRow
	if err := tx.Where("user_id = ?", userID).Order("id").Find(&subs).Error; err != nil {
		return nil, wrap("list subscriptions", err)
	}

	nameMatch := s.nameCondition(store.NameFilters(filters))
	names := make([]records.MangaName, 0, len(subs))
	for _, sub := range subs {
		query := tx.Where("url = ?", sub.URL)
		if nameMatch != nil {
			query = query.Where(nameMatch)
		}

		var rows []mangaNameRow
		if err := query.Order("id").Limit(1).Find(&rows).Error; err != nil {
			return nil, wrap("get manga name", err)
		}
		if len(rows) == 0 {
			continue
		}
		names = append(names, records.MangaName{URL: rows[0].URL, Name: rows[0].Name})
	}
	return names, nil
}

// nameCondition groups one case-insensitive substring test per filter.
// strpos keeps the filters literal.
func (s *Store) nameCondition(filters []string) *gorm.DB {
	if len(filters) == 0 {
		return nil
	}
	const contains = "strpos(lower(name), lower(?)) > 0"
	cond := s.db.Where(contains, filters[0])
	for _, f := range filters[1:] {
		cond = cond.Or(contains, f)
	}
	return cond
}

func (s *Store) EraseSubs(ctx context.Context, userID string) (int64, error) {
	tx, cancel, err := s.session(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	result := tx.Where("user_id = ?", userID).Delete(&subscriptionRow{})
	if result.Error != nil {
		return 0, wrap("erase subscriptions", result.Error)
	}
	s.logger.Debug("subscriptions_erased", "user_id", userID, "deleted", result.RowsAffected)
	return result.RowsAffected, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}

	ctx, cancel := store.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Close closes the connection pool. Later calls fail with store.ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		s.logger.Error("postgres_close_failed", "error", err)
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

func findKind(tx *gorm.DB, kind records.Kind, filter records.Filter, limit int) ([]records.Record, error) {
	switch kind {
	case records.KindChapterFile:
		return find[chapterFileRow](tx, filter, limit)
	case records.KindMangaOutput:
		return find[mangaOutputRow](tx, filter, limit)
	case records.KindSubscription:
		return find[subscriptionRow](tx, filter, limit)
	case records.KindLastChapter:
		return find[lastChapterRow](tx, filter, limit)
	case records.KindMangaName:
		return find[mangaNameRow](tx, filter, limit)
	}
	return nil, store.CheckKind(kind)
}

// find loads rows of R in insertion order. A limit of 0 means all rows.
func find[R any, P interface {
	*R
	row
}](tx *gorm.DB, filter records.Filter, limit int) ([]records.Record, error) {
	query := tx
	if len(filter) > 0 {
		query = query.Where(map[string]any(filter))
	}
	query = query.Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []R
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]records.Record, 0, len(rows))
	for i := range rows {
		out = append(out, P(&rows[i]).record())
	}
	return out, nil
}

func wrap(op string, err error) error {
	if unavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// unavailable reports whether err means the server could not be reached,
// as opposed to a statement the server rejected.
func unavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception, 57P: operator intervention
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
