// Package storetest holds the behaviour every store.Store backend must share,
// as a testify suite the backend packages run against a live engine.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

// Suite runs against the empty store returned by NewStore before each test.
type Suite struct {
	suite.Suite

	NewStore func(t *testing.T) store.Store

	store store.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	var cancel context.CancelFunc
	s.ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	s.T().Cleanup(cancel)
	s.store = s.NewStore(s.T())
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.store.Close(context.Background())
	}
}

func (s *Suite) add(recs ...records.Record) {
	for _, rec := range recs {
		s.Require().NoError(s.store.Add(s.ctx, rec))
	}
}

func (s *Suite) TestAddThenGetByNaturalKey() {
	file := &records.ChapterFile{URL: "https://m/op/1100", FileID: records.Ptr("fid"), FileUniqueID: records.Ptr("fuid")}
	output := &records.MangaOutput{UserID: "u1", Output: 2}
	last := &records.LastChapter{URL: "https://m/op", ChapterURL: "https://m/op/1100"}
	name := &records.MangaName{URL: "https://m/op", Name: "One Piece"}
	s.add(file, output, last, name)

	tests := []struct {
		kind records.Kind
		key  string
		want records.Record
	}{
		{records.KindChapterFile, file.URL, file},
		{records.KindMangaOutput, output.UserID, output},
		{records.KindLastChapter, last.URL, last},
		{records.KindMangaName, name.URL, name},
	}
	for _, tt := range tests {
		got, err := s.store.Get(s.ctx, tt.kind, records.Scalar(tt.key))
		s.Require().NoError(err, tt.kind)
		s.Equal(tt.want, got, tt.kind)
	}
}

func (s *Suite) TestGetSubscriptionByFilter() {
	a := &records.Subscription{URL: "https://m/op", UserID: "u1"}
	b := &records.Subscription{URL: "https://m/db", UserID: "u2"}
	s.add(a, b)

	got, err := s.store.Get(s.ctx, records.KindSubscription, records.Filter{"url": "https://m/db", "user_id": "u2"})
	s.Require().NoError(err)
	s.Equal(b, got)

	got, err = s.store.Get(s.ctx, records.KindSubscription, records.Filter{"user_id": "u1"})
	s.Require().NoError(err)
	s.Equal(a, got)
}

func (s *Suite) TestGetMissingIsNotAnError() {
	for _, kind := range []records.Kind{records.KindChapterFile, records.KindMangaOutput, records.KindLastChapter, records.KindMangaName} {
		got, err := s.store.Get(s.ctx, kind, records.Scalar("never-inserted"))
		s.NoError(err, kind)
		s.Nil(got, kind)
	}

	got, err := s.store.Get(s.ctx, records.KindSubscription, records.Filter{"user_id": "nobody"})
	s.NoError(err)
	s.Nil(got)
}

func (s *Suite) TestChapterFileOptionalFieldsRoundTrip() {
	bare := &records.ChapterFile{URL: "https://m/bare"}
	full := &records.ChapterFile{
		URL:          "https://m/full",
		FileID:       records.Ptr("f"),
		FileUniqueID: records.Ptr("fu"),
		CbzID:        records.Ptr("c"),
		CbzUniqueID:  records.Ptr("cu"),
	}
	s.add(bare, full)

	got, err := s.store.Get(s.ctx, records.KindChapterFile, records.Scalar(bare.URL))
	s.Require().NoError(err)
	s.Equal(bare, got)

	got, err = s.store.Get(s.ctx, records.KindChapterFile, records.Scalar(full.URL))
	s.Require().NoError(err)
	s.Equal(full, got)
}

func (s *Suite) TestGetAll() {
	all, err := s.store.GetAll(s.ctx, records.KindMangaName)
	s.Require().NoError(err)
	s.NotNil(all)
	s.Empty(all)

	want := []records.Record{
		&records.MangaName{URL: "https://m/3", Name: "Naruto"},
		&records.MangaName{URL: "https://m/1", Name: "One Piece"},
		&records.MangaName{URL: "https://m/2", Name: "Dragon Ball"},
	}
	s.add(want...)
	s.add(&records.LastChapter{URL: "https://m/1", ChapterURL: "https://m/1/c1"})

	all, err = s.store.GetAll(s.ctx, records.KindMangaName)
	s.Require().NoError(err)
	s.ElementsMatch(want, all)
}

func (s *Suite) TestEraseDeletesAtMostOneExactMatch() {
	first := &records.MangaName{URL: "https://m/1", Name: "One Piece"}
	other := &records.MangaName{URL: "https://m/1", Name: "One Piece (colour)"}
	s.add(first, first, other)

	s.Require().NoError(s.store.Erase(s.ctx, first))

	all, err := s.store.GetAll(s.ctx, records.KindMangaName)
	s.Require().NoError(err)
	s.ElementsMatch([]records.Record{first, other}, all)

	s.Require().NoError(s.store.Erase(s.ctx, first))
	s.Require().NoError(s.store.Erase(s.ctx, first), "erasing a record that is gone")

	all, err = s.store.GetAll(s.ctx, records.KindMangaName)
	s.Require().NoError(err)
	s.ElementsMatch([]records.Record{other}, all)
}

func (s *Suite) TestEraseMatchesNullOptionalFields() {
	bare := &records.ChapterFile{URL: "https://m/1"}
	withFile := &records.ChapterFile{URL: "https://m/1", FileID: records.Ptr("f")}
	s.add(bare, withFile)

	s.Require().NoError(s.store.Erase(s.ctx, bare))

	all, err := s.store.GetAll(s.ctx, records.KindChapterFile)
	s.Require().NoError(err)
	s.ElementsMatch([]records.Record{withFile}, all)
}

func (s *Suite) TestGetChapterFileByID() {
	byFile := &records.ChapterFile{URL: "https://m/1", FileUniqueID: records.Ptr("file-1")}
	byCbz := &records.ChapterFile{URL: "https://m/2", CbzUniqueID: records.Ptr("cbz-2")}
	neither := &records.ChapterFile{URL: "https://m/3", FileID: records.Ptr("file-1"), CbzID: records.Ptr("cbz-2")}
	s.add(neither, byFile, byCbz)

	got, err := s.store.GetChapterFileByID(s.ctx, "file-1")
	s.Require().NoError(err)
	s.Equal(byFile, got)

	got, err = s.store.GetChapterFileByID(s.ctx, "cbz-2")
	s.Require().NoError(err)
	s.Equal(byCbz, got)

	got, err = s.store.GetChapterFileByID(s.ctx, "missing")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *Suite) TestEraseSubs() {
	s.add(
		&records.Subscription{URL: "https://m/1", UserID: "u1"},
		&records.Subscription{URL: "https://m/2", UserID: "u1"},
		&records.Subscription{URL: "https://m/3", UserID: "u1"},
		&records.Subscription{URL: "https://m/1", UserID: "u2"},
		&records.MangaName{URL: "https://m/1", Name: "One Piece"},
	)

	n, err := s.store.EraseSubs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	subs, err := s.store.GetSubs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(subs)

	subs, err = s.store.GetSubs(s.ctx, "u2")
	s.Require().NoError(err)
	s.Equal([]records.MangaName{{URL: "https://m/1", Name: "One Piece"}}, subs)

	n, err = s.store.EraseSubs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *Suite) TestGetSubsFiltersNamesCaseInsensitively() {
	s.add(
		&records.MangaName{URL: "https://m/db", Name: "Dragon Ball"},
		&records.MangaName{URL: "https://m/op", Name: "One Piece"},
		&records.MangaName{URL: "https://m/dq", Name: "Dragon Quest"},
		&records.Subscription{URL: "https://m/db", UserID: "u1"},
		&records.Subscription{URL: "https://m/op", UserID: "u1"},
		&records.Subscription{URL: "https://m/dq", UserID: "u2"},
	)

	subs, err := s.store.GetSubs(s.ctx, "u1", "drag")
	s.Require().NoError(err)
	s.Equal([]records.MangaName{{URL: "https://m/db", Name: "Dragon Ball"}}, subs)

	subs, err = s.store.GetSubs(s.ctx, "u1", "PIECE", "ball")
	s.Require().NoError(err)
	s.ElementsMatch([]records.MangaName{
		{URL: "https://m/db", Name: "Dragon Ball"},
		{URL: "https://m/op", Name: "One Piece"},
	}, subs)

	subs, err = s.store.GetSubs(s.ctx, "u1", ".*")
	s.Require().NoError(err)
	s.Empty(subs, "filters are literal text")
}

func (s *Suite) TestGetSubsSkipsMissingNames() {
	s.add(
		&records.MangaName{URL: "https://m/op", Name: "One Piece"},
		&records.Subscription{URL: "https://m/op", UserID: "u1"},
		&records.Subscription{URL: "https://m/unnamed", UserID: "u1"},
	)

	subs, err := s.store.GetSubs(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal([]records.MangaName{{URL: "https://m/op", Name: "One Piece"}}, subs)
}

func (s *Suite) TestUnsupportedType() {
	_, err := s.store.Get(s.ctx, records.Kind("volume"), records.Scalar("x"))
	s.ErrorIs(err, records.ErrUnsupportedType)

	_, err = s.store.GetAll(s.ctx, records.Kind("volume"))
	s.ErrorIs(err, records.ErrUnsupportedType)

	s.ErrorIs(s.store.Add(s.ctx, nil), records.ErrUnsupportedType)
	s.ErrorIs(s.store.Erase(s.ctx, nil), records.ErrUnsupportedType)

	var typedNil *records.MangaName
	s.ErrorIs(s.store.Add(s.ctx, typedNil), records.ErrUnsupportedType)
}

func (s *Suite) TestInvalidKey() {
	_, err := s.store.Get(s.ctx, records.KindSubscription, records.Scalar("u1"))
	s.ErrorIs(err, records.ErrInvalidKey)

	_, err = s.store.Get(s.ctx, records.KindSubscription, records.Filter{"name": "x"})
	s.ErrorIs(err, records.ErrInvalidKey)
}

func (s *Suite) TestPingAndClose() {
	s.Require().NoError(s.store.Ping(s.ctx))
	s.Require().NoError(s.store.Close(s.ctx))

	s.ErrorIs(s.store.Ping(s.ctx), store.ErrClosed)
	_, err := s.store.GetAll(s.ctx, records.KindMangaName)
	s.ErrorIs(err, store.ErrClosed)
	s.ErrorIs(s.store.Add(s.ctx, &records.MangaName{URL: "u", Name: "n"}), store.ErrClosed)

	s.NoError(s.store.Close(s.ctx), "second close")
}
