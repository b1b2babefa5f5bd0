// Package records defines the five record kinds persisted by the store and
// the rules for looking them up.
package records

import "fmt"

// Record is one of ChapterFile, MangaOutput, Subscription, LastChapter or MangaName.
// The set is closed: only this package can add implementations.
type Record interface {
	Kind() Kind
	// Fields returns every stored field by name. Absent optional fields map to nil.
	Fields() Filter
	record()
}

// ChapterFile points at the uploaded files for one chapter.
type ChapterFile struct {
	URL          string  `json:"url" yaml:"url" bson:"url"`
	FileID       *string `json:"file_id,omitempty" yaml:"file_id,omitempty" bson:"file_id"`
	FileUniqueID *string `json:"file_unique_id,omitempty" yaml:"file_unique_id,omitempty" bson:"file_unique_id"`
	CbzID        *string `json:"cbz_id,omitempty" yaml:"cbz_id,omitempty" bson:"cbz_id"`
	CbzUniqueID  *string `json:"cbz_unique_id,omitempty" yaml:"cbz_unique_id,omitempty" bson:"cbz_unique_id"`
}

// MangaOutput is the output channel a user receives chapters in.
type MangaOutput struct {
	UserID string `json:"user_id" yaml:"user_id" bson:"user_id"`
	Output int    `json:"output" yaml:"output" bson:"output"`
}

// Subscription links a user to a manga url.
type Subscription struct {
	URL    string `json:"url" yaml:"url" bson:"url"`
	UserID string `json:"user_id" yaml:"user_id" bson:"user_id"`
}

// LastChapter is the most recent chapter seen for a manga.
type LastChapter struct {
	URL        string `json:"url" yaml:"url" bson:"url"`
	ChapterURL string `json:"chapter_url" yaml:"chapter_url" bson:"chapter_url"`
}

// MangaName caches the display name of a manga url.
type MangaName struct {
	URL  string `json:"url" yaml:"url" bson:"url"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

func (*ChapterFile) Kind() Kind  { return KindChapterFile }
func (*MangaOutput) Kind() Kind  { return KindMangaOutput }
func (*Subscription) Kind() Kind { return KindSubscription }
func (*LastChapter) Kind() Kind  { return KindLastChapter }
func (*MangaName) Kind() Kind    { return KindMangaName }

func (*ChapterFile) record()  {}
func (*MangaOutput) record()  {}
func (*Subscription) record() {}
func (*LastChapter) record()  {}
func (*MangaName) record()    {}

func (c *ChapterFile) Fields() Filter {
	return Filter{
		"url":            c.URL,
		"file_id":        deref(c.FileID),
		"file_unique_id": deref(c.FileUniqueID),
		"cbz_id":         deref(c.CbzID),
		"cbz_unique_id":  deref(c.CbzUniqueID),
	}
}

func (m *MangaOutput) Fields() Filter {
	return Filter{"user_id": m.UserID, "output": m.Output}
}

func (s *Subscription) Fields() Filter {
	return Filter{"url": s.URL, "user_id": s.UserID}
}

func (l *LastChapter) Fields() Filter {
	return Filter{"url": l.URL, "chapter_url": l.ChapterURL}
}

func (m *MangaName) Fields() Filter {
	return Filter{"url": m.URL, "name": m.Name}
}

// KindOf returns the kind of rec. Nil records, including typed nil pointers,
// are ErrUnsupportedType.
func KindOf(rec Record) (Kind, error) {
	switch r := rec.(type) {
	case *ChapterFile:
		if r != nil {
			return KindChapterFile, nil
		}
	case *MangaOutput:
		if r != nil {
			return KindMangaOutput, nil
		}
	case *Subscription:
		if r != nil {
			return KindSubscription, nil
		}
	case *LastChapter:
		if r != nil {
			return KindLastChapter, nil
		}
	case *MangaName:
		if r != nil {
			return KindMangaName, nil
		}
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedType, rec)
}

// Strings renders the fields of rec as strings, leaving out nil optionals.
func Strings(rec Record) map[string]string {
	out := make(map[string]string)
	for name, value := range rec.Fields() {
		switch v := value.(type) {
		case nil:
		case string:
			out[name] = v
		default:
			out[name] = fmt.Sprint(v)
		}
	}
	return out
}

// Ptr returns a pointer to s, for the optional ChapterFile fields.
func Ptr(s string) *string {
	return &s
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
