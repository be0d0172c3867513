package vectorstore

// ReadHitField resiliently pulls a typed value out of a Hit's raw field
// map. Missing keys and type mismatches both return the zero value and
// ok=false rather than panicking — rows come back from LanceDB as
// map[string]interface{} and any one field can be absent on an older
// schema version.
func ReadHitField[T any](hit Hit, field string) (T, bool) {
	var zero T
	raw, ok := hit.Fields[field]
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// ReadHitStringField is a convenience wrapper for the common string-field case.
func ReadHitStringField(hit Hit, field string) string {
	v, _ := ReadHitField[string](hit, field)
	return v
}
