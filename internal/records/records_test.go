package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"chapter_file", KindChapterFile},
		{"chapter_files", KindChapterFile},
		{"manga_outputs", KindMangaOutput},
		{"subscription", KindSubscription},
		{"last_chapters", KindLastChapter},
		{"manga_name", KindMangaName},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("volume")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestKindCollections(t *testing.T) {
	want := map[Kind]string{
		KindChapterFile:  "chapter_files",
		KindMangaOutput:  "manga_outputs",
		KindSubscription: "subscriptions",
		KindLastChapter:  "last_chapters",
		KindMangaName:    "manga_names",
	}
	for _, k := range Kinds() {
		assert.Equal(t, want[k], k.Collection(), k)
		assert.True(t, k.Valid())
	}
	assert.False(t, Kind("volume").Valid())
}

func TestFilter_ScalarKinds(t *testing.T) {
	f, err := KindChapterFile.Filter(Scalar("https://m/1"))
	require.NoError(t, err)
	assert.Equal(t, Filter{"url": "https://m/1"}, f)

	f, err = KindMangaOutput.Filter(Scalar("u1"))
	require.NoError(t, err)
	assert.Equal(t, Filter{"user_id": "u1"}, f)

	f, err = KindLastChapter.Filter(Scalar("https://m/2"))
	require.NoError(t, err)
	assert.Equal(t, Filter{"url": "https://m/2"}, f)

	f, err = KindMangaName.Filter(Scalar("https://m/3"))
	require.NoError(t, err)
	assert.Equal(t, Filter{"url": "https://m/3"}, f)
}

func TestFilter_Subscription(t *testing.T) {
	f, err := KindSubscription.Filter(Filter{"user_id": "u1", "url": "https://m/1"})
	require.NoError(t, err)
	assert.Equal(t, Filter{"user_id": "u1", "url": "https://m/1"}, f)

	_, err = KindSubscription.Filter(Scalar("u1"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = KindSubscription.Filter(Filter{"name": "x"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = KindSubscription.Filter(Filter{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestFilter_Errors(t *testing.T) {
	_, err := Kind("volume").Filter(Scalar("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = KindMangaName.Filter(Filter{"url": "x"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = KindMangaName.Filter(nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestKindOf(t *testing.T) {
	k, err := KindOf(&MangaName{URL: "u", Name: "n"})
	require.NoError(t, err)
	assert.Equal(t, KindMangaName, k)

	_, err = KindOf(nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	var typedNil *Subscription
	_, err = KindOf(typedNil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestChapterFileFields(t *testing.T) {
	cf := &ChapterFile{URL: "https://m/1", FileUniqueID: Ptr("f1")}
	fields := cf.Fields()

	assert.Len(t, fields, 5)
	assert.Equal(t, "https://m/1", fields["url"])
	assert.Equal(t, "f1", fields["file_unique_id"])
	assert.Nil(t, fields["file_id"])
	assert.Nil(t, fields["cbz_unique_id"])
}

func TestDecode(t *testing.T) {
	rec, err := KindChapterFile.Decode(map[string]string{"url": "https://m/1", "cbz_id": "c"})
	require.NoError(t, err)
	assert.Equal(t, &ChapterFile{URL: "https://m/1", CbzID: Ptr("c")}, rec)

	rec, err = KindMangaOutput.Decode(map[string]string{"user_id": "u1", "output": "2"})
	require.NoError(t, err)
	assert.Equal(t, &MangaOutput{UserID: "u1", Output: 2}, rec)

	_, err = KindMangaOutput.Decode(map[string]string{"user_id": "u1", "output": "two"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = KindMangaName.Decode(map[string]string{"title": "x"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Kind("volume").Decode(nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestStringsRoundTripsThroughDecode(t *testing.T) {
	for _, rec := range []Record{
		&ChapterFile{URL: "https://m/1", FileID: Ptr("a"), CbzUniqueID: Ptr("")},
		&MangaOutput{UserID: "u1", Output: 1},
		&Subscription{URL: "https://m/1", UserID: "u1"},
		&LastChapter{URL: "https://m/1", ChapterURL: "https://m/1/c/9"},
		&MangaName{URL: "https://m/1", Name: "Dragon Ball"},
	} {
		back, err := rec.Kind().Decode(Strings(rec))
		require.NoError(t, err)
		assert.Equal(t, rec, back)
	}
}

func TestFieldNamesIsACopy(t *testing.T) {
	names := KindMangaName.FieldNames()
	names[0] = "mutated"
	assert.Equal(t, []string{"url", "name"}, KindMangaName.FieldNames())
}
