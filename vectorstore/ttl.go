package vectorstore

import (
	"strconv"
	"time"
)

// FilterNotExpired drops hits whose expireAtField, parsed as a Unix
// timestamp (seconds), is at or before now. Hits missing the field or
// carrying an unparsable value are kept — absence of a TTL means no TTL.
func FilterNotExpired(hits []Hit, expireAtField string, now time.Time) []Hit {
	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		expireAt, ok := ReadHitField[int64](h, expireAtField)
		if !ok {
			if s, isStr := ReadHitField[string](h, expireAtField); isStr {
				if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
					expireAt, ok = parsed, true
				}
			}
		}
		if !ok || expireAt == 0 {
			kept = append(kept, h)
			continue
		}
		if time.Unix(expireAt, 0).After(now) {
			kept = append(kept, h)
		}
	}
	return kept
}
