package docstore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const FileTypePDF = "pdf"

// Field paths used in filters and updates.
const (
	FieldID          = "_id"
	FieldContentText   = "content.text"
	FieldContentImages = "content.images"
	FieldTags          = "tags"
	FieldArchiveKey    = "metadata.archive_key"
)

// CourseDocument is the stored record of one course PDF. The external search id is the _id,
// so the collection's primary key doubles as the duplicate check.
// Catalog records leave Content and Tags unset.
type CourseDocument struct {
	ID         string    `bson:"_id" json:"id"`
	FileName   string    `bson:"file_name" json:"file_name"`
	FileType   string    `bson:"file_type" json:"file_type"`
	Metadata   Metadata  `bson:"metadata" json:"metadata"`
	Content    *Content  `bson:"content,omitempty" json:"content,omitempty"`
	Tags       []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	UploadDate time.Time `bson:"upload_date" json:"upload_date"`
}

type Metadata struct {
	Title      string `bson:"title" json:"title"`
	Source     string `bson:"source" json:"source"`
	Pages      int    `bson:"pages" json:"pages"`
	Views      int64  `bson:"views" json:"views"`
	SearchTerm string `bson:"search_term" json:"search_term"`
	ArchiveKey string `bson:"archive_key,omitempty" json:"archive_key,omitempty"`
}

type Content struct {
	Text   string   `bson:"text" json:"text"`
	Images [][]byte `bson:"images,omitempty" json:"-"`
}

// MissingTextFilter matches records that were catalogued but never had their text extracted.
func MissingTextFilter() bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{FieldContentText: bson.M{"$exists": false}},
			bson.M{FieldContentText: ""},
		},
	}
}

func DecodeCourseDocument(raw bson.M) (*CourseDocument, error) {
	data, err := bson.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("could not encode stored document: %w", err)
	}
	var doc CourseDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not decode stored document: %w", err)
	}
	return &doc, nil
}
