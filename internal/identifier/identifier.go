// Package identifier recovers canonical UUIDs from opaque external
// references. Links shared through some channels come back with a tracking
// suffix appended to the id (e.g. "…e588e8-mix72c7d"); the extractor strips
// it and reports the event so the offending channel can be found.
package identifier

import (
	"regexp"

	"batiflow/internal/logger"
)

const uuidLen = 36

var (
	uuidExact  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	uuidSearch = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// Extractor pulls canonical UUIDs out of raw identifier strings.
type Extractor struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract returns the canonical UUID contained in raw, or ok=false when none
// is found. It never panics, for any input including the empty string.
// A stripped suffix is logged at warning level: it means the identifier
// passed through a channel that appended data unexpectedly.
func (e *Extractor) Extract(raw string) (string, bool) {
	id, ok := extract(raw)
	if ok && len(raw) > uuidLen {
		e.log.Warnw("identifier carried unexpected suffix",
			"raw", raw,
			"extracted", id)
	}
	return id, ok
}

// extract is the pure matching pass. First match wins:
// prefix of 36 chars, then first UUID-shaped substring anywhere, then the
// whole string when it is itself exactly UUID-shaped.
func extract(raw string) (string, bool) {
	if len(raw) >= uuidLen {
		if head := raw[:uuidLen]; uuidExact.MatchString(head) {
			return head, true
		}
	}

	if m := uuidSearch.FindString(raw); m != "" {
		return m, true
	}

	if len(raw) == uuidLen && uuidExact.MatchString(raw) {
		return raw, true
	}

	return "", false
}
