package sqlstore

import "mangatrack/internal/records"

// Rows carry a serial id that orders inserts. It never leaves this package.

type chapterFileRow struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	URL          string  `gorm:"column:url;not null;index"`
	FileID       *string `gorm:"column:file_id"`
	FileUniqueID *string `gorm:"column:file_unique_id;index"`
	CbzID        *string `gorm:"column:cbz_id"`
	CbzUniqueID  *string `gorm:"column:cbz_unique_id;index"`
}

func (chapterFileRow) TableName() string { return records.KindChapterFile.Collection() }

func (r *chapterFileRow) record() records.Record {
	return &records.ChapterFile{
		URL:          r.URL,
		FileID:       r.FileID,
		FileUniqueID: r.FileUniqueID,
		CbzID:        r.CbzID,
		CbzUniqueID:  r.CbzUniqueID,
	}
}

type mangaOutputRow struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"column:user_id;not null;index"`
	Output int    `gorm:"column:output;not null"`
}

func (mangaOutputRow) TableName() string { return records.KindMangaOutput.Collection() }

func (r *mangaOutputRow) record() records.Record {
	return &records.MangaOutput{UserID: r.UserID, Output: r.Output}
}

type subscriptionRow struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	URL    string `gorm:"column:url;not null;index"`
	UserID string `gorm:"column:user_id;not null;index"`
}

func (subscriptionRow) TableName() string { return records.KindSubscription.Collection() }

func (r *subscriptionRow) record() records.Record {
	return &records.Subscription{URL: r.URL, UserID: r.UserID}
}

type lastChapterRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	URL        string `gorm:"column:url;not null;index"`
	ChapterURL string `gorm:"column:chapter_url;not null"`
}

func (lastChapterRow) TableName() string { return records.KindLastChapter.Collection() }

func (r *lastChapterRow) record() records.Record {
	return &records.LastChapter{URL: r.URL, ChapterURL: r.ChapterURL}
}

type mangaNameRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	URL  string `gorm:"column:url;not null;index"`
	Name string `gorm:"column:name;not null"`
}

func (mangaNameRow) TableName() string { return records.KindMangaName.Collection() }

func (r *mangaNameRow) record() records.Record {
	return &records.MangaName{URL: r.URL, Name: r.Name}
}

type row interface {
	TableName() string
	record() records.Record
}

// toRow copies rec into a new row of its table.
func toRow(rec records.Record) row {
	switch r := rec.(type) {
	case *records.ChapterFile:
		return &chapterFileRow{URL: r.URL, FileID: r.FileID, FileUniqueID: r.FileUniqueID, CbzID: r.CbzID, CbzUniqueID: r.CbzUniqueID}
	case *records.MangaOutput:
		return &mangaOutputRow{UserID: r.UserID, Output: r.Output}
	case *records.Subscription:
		return &subscriptionRow{URL: r.URL, UserID: r.UserID}
	case *records.LastChapter:
		return &lastChapterRow{URL: r.URL, ChapterURL: r.ChapterURL}
	case *records.MangaName:
		return &mangaNameRow{URL: r.URL, Name: r.Name}
	}
	return nil
}

// model returns an empty row for kind, used to address its table.
func model(kind records.Kind) row {
	switch kind {
	case records.KindChapterFile:
		return &chapterFileRow{}
	case records.KindMangaOutput:
		return &mangaOutputRow{}
	case records.KindSubscription:
		return &subscriptionRow{}
	case records.KindLastChapter:
		return &lastChapterRow{}
	case records.KindMangaName:
		return &mangaNameRow{}
	}
	return nil
}

func allModels() []any {
	out := make([]any, 0, len(records.Kinds()))
	for _, kind := range records.Kinds() {
		out = append(out, model(kind))
	}
	return out
}
