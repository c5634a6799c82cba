package database

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// indexFields maps unique index names created in indexes.go back to the
// field a violation should be reported against.
var indexFields = map[string]string{
	"email_unique":        "email",
	"phone_unique":        "phone",
	"name_unique":         "name",
	"code_unique":         "code",
	"user_product_unique": "review",
}

// DuplicateKeyField reports which field a duplicate-key write violated.
// The second return is false when err is not a duplicate-key error or the
// index is not one of ours.
func DuplicateKeyField(err error) (string, bool) {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return "", false
	}

	name := violatedIndexName(err)
	if field, ok := indexFields[name]; ok {
		return field, true
	}
	return "", false
}

// violatedIndexName digs the index name out of the server message, which has
// the form "E11000 duplicate key error collection: db.users index: email_unique dup key: ...".
func violatedIndexName(err error) string {
	message := err.Error()

	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		message = we.WriteErrors[0].Message
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		message = bwe.WriteErrors[0].Message
	}

	marker := "index: "
	idx := strings.Index(message, marker)
	if idx < 0 {
		return ""
	}
	rest := message[idx+len(marker):]
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
