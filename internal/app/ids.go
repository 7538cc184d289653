package app

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// canonicalID returns id in lower-case hyphenated form. uuid.Parse accepts
// upper-case, braced, urn-prefixed and unhyphenated spellings; only the
// canonical one may reach guards, stores and cache keys.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
