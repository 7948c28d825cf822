package kong

import (
	"fmt"

	"github.com/edpaget/kongfig/pkg/common"
)

// Record is one entity as returned by the admin API. Its shape depends on the
// gateway version, so it is kept untyped until normalization.
type Record map[string]interface{}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value of key formatted as a string, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ID returns the server assigned id of the record.
func (r Record) ID() string {
	return r.String(common.FieldID)
}

// RefID returns the id of a foreign reference such as {"service": {"id": "..."}}.
// A legacy flat "<key>_id" field is used when no nested reference exists.
func (r Record) RefID(key string) string {
	switch ref := r[key].(type) {
	case map[string]interface{}:
		return Record(ref).ID()
	case Record:
		return ref.ID()
	}
	return r.String(key + "_id")
}
