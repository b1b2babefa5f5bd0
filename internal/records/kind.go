package records

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnsupportedType is returned for a kind or record outside the five known kinds.
	ErrUnsupportedType = errors.New("unsupported record type")
	// ErrInvalidKey is returned when a lookup key does not fit the kind it is used with.
	ErrInvalidKey = errors.New("invalid lookup key")
)

// Kind names one of the record kinds the store knows about.
type Kind string

const (
	KindChapterFile  Kind = "chapter_file"
	KindMangaOutput  Kind = "manga_output"
	KindSubscription Kind = "subscription"
	KindLastChapter  Kind = "last_chapter"
	KindMangaName    Kind = "manga_name"
)

type kindDef struct {
	collection string
	keyField   string // empty when lookups take a full Filter
	fields     []string
}

var kindDefs = map[Kind]kindDef{
	KindChapterFile: {
		collection: "chapter_files",
		keyField:   "url",
		fields:     []string{"url", "file_id", "file_unique_id", "cbz_id", "cbz_unique_id"},
	},
	KindMangaOutput: {
		collection: "manga_outputs",
		keyField:   "user_id",
		fields:     []string{"user_id", "output"},
	},
	KindSubscription: {
		collection: "subscriptions",
		fields:     []string{"url", "user_id"},
	},
	KindLastChapter: {
		collection: "last_chapters",
		keyField:   "url",
		fields:     []string{"url", "chapter_url"},
	},
	KindMangaName: {
		collection: "manga_names",
		keyField:   "url",
		fields:     []string{"url", "name"},
	},
}

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindChapterFile, KindMangaOutput, KindSubscription, KindLastChapter, KindMangaName}
}

// ParseKind accepts either a kind name ("manga_name") or its collection name ("manga_names").
func ParseKind(s string) (Kind, error) {
	if _, ok := kindDefs[Kind(s)]; ok {
		return Kind(s), nil
	}
	for k, def := range kindDefs {
		if def.collection == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindDefs[k]
	return ok
}

// Collection returns the collection (or table) name records of this kind live in.
func (k Kind) Collection() string {
	return kindDefs[k].collection
}

// KeyField returns the natural key field, or "" for Subscription.
func (k Kind) KeyField() string {
	return kindDefs[k].keyField
}

// FieldNames returns the stored fields of the kind in declaration order.
func (k Kind) FieldNames() []string {
	fields := kindDefs[k].fields
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// HasField reports whether name is a stored field of the kind.
func (k Kind) HasField(name string) bool {
	for _, f := range kindDefs[k].fields {
		if f == name {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// New returns a zero record of the kind, usable as a decode target.
func (k Kind) New() (Record, error) {
	switch k {
	case KindChapterFile:
		return &ChapterFile{}, nil
	case KindMangaOutput:
		return &MangaOutput{}, nil
	case KindSubscription:
		return &Subscription{}, nil
	case KindLastChapter:
		return &LastChapter{}, nil
	case KindMangaName:
		return &MangaName{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, string(k))
}

// Filter builds the lookup filter for key. Kinds with a natural key take a
// Scalar; Subscription takes a Filter naming its own fields.
func (k Kind) Filter(key Key) (Filter, error) {
	def, ok := kindDefs[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, string(k))
	}

	switch v := key.(type) {
	case Scalar:
		if def.keyField == "" {
			return nil, fmt.Errorf("%w: %s lookups need a field filter", ErrInvalidKey, k)
		}
		return Filter{def.keyField: string(v)}, nil
	case Filter:
		if def.keyField != "" {
			return nil, fmt.Errorf("%w: %s lookups take a %s value", ErrInvalidKey, k, def.keyField)
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty filter", ErrInvalidKey)
		}
		out := make(Filter, len(v))
		for name, value := range v {
			if !k.HasField(name) {
				return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidKey, k, name)
			}
			out[name] = value
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: missing key", ErrInvalidKey)
}

// Decode builds a record of the kind from string-valued fields, as they come
// from hashes, flags or query strings. Optional fields that are absent stay nil.
func (k Kind) Decode(fields map[string]string) (Record, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, string(k))
	}
	for name := range fields {
		if !k.HasField(name) {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidKey, k, name)
		}
	}

	switch k {
	case KindChapterFile:
		return &ChapterFile{
			URL:          fields["url"],
			FileID:       optional(fields, "file_id"),
			FileUniqueID: optional(fields, "file_unique_id"),
			CbzID:        optional(fields, "cbz_id"),
			CbzUniqueID:  optional(fields, "cbz_unique_id"),
		}, nil
	case KindMangaOutput:
		out := &MangaOutput{UserID: fields["user_id"]}
		if raw, ok := fields["output"]; ok && raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: output must be an integer: %v", ErrInvalidKey, err)
			}
			out.Output = n
		}
		return out, nil
	case KindSubscription:
		return &Subscription{URL: fields["url"], UserID: fields["user_id"]}, nil
	case KindLastChapter:
		return &LastChapter{URL: fields["url"], ChapterURL: fields["chapter_url"]}, nil
	default:
		return &MangaName{URL: fields["url"], Name: fields["name"]}, nil
	}
}

func optional(fields map[string]string, name string) *string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	return &v
}
