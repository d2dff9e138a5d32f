package auth

import "strings"

// AllowList is the set of emails allowed into the admin panel.
// An empty list allows every signed-in account.
type AllowList []string

// ParseAllowList splits a comma separated list, trimming entries and dropping empty ones.
func ParseAllowList(raw string) AllowList {
	list := AllowList{}
	for _, entry := range strings.Split(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			list = append(list, entry)
		}
	}
	return list
}

// Permits reports whether email may use the admin panel. Matching is exact.
func (a AllowList) Permits(email string) bool {
	if len(a) == 0 {
		return true
	}
	for _, allowed := range a {
		if allowed == email {
			return true
		}
	}
	return false
}
