package service

import (
	"context"
	"fmt"
	"time"

	"batiflow/internal/docnum"
	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// NumberAllocator computes the next human-readable document number for a
// (tenant, type, year). The scan below is only a hint: read-then-insert is
// not race-free, so uniqueness is enforced by the storage constraint on
// (tenant_id, number) and document creation retries on conflict.
type NumberAllocator interface {
	Next(ctx context.Context, tenantID string, t model.DocType, year int) (string, error)
}

type numberAllocator struct {
	docs repository.DocumentRepository
	log  *logger.Logger
}

func NewNumberAllocator(docs repository.DocumentRepository, log *logger.Logger) NumberAllocator {
	return &numberAllocator{docs: docs, log: log}
}

// Next scans the most recently created matching number and increments its
// sequence; the first document of a year starts at 1.
//
// A prior number that no longer parses means the sequence has been
// compromised (manual edits, imported data). The allocator then falls back
// to a timestamp-derived number rather than crashing or silently reusing a
// sequence, and flags the event for manual review.
func (a *numberAllocator) Next(ctx context.Context, tenantID string, t model.DocType, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", t, year)

	latest, err := a.docs.LatestNumber(ctx, tenantID, t, prefix)
	if err != nil {
		return "", fmt.Errorf("latest number: %w", err)
	}
	if latest == "" {
		return docnum.Format(t, year, 1), nil
	}

	parsed, ok := docnum.Parse(latest)
	if !ok {
		fallback := fmt.Sprintf("%s-%d-%d", t, year, time.Now().UnixMilli())
		a.log.Warnw("document number sequence compromised, using timestamp fallback",
			"tenant_id", tenantID,
			"doc_type", t,
			"latest", latest,
			"fallback", fallback)
		return fallback, nil
	}

	return docnum.Format(t, year, parsed.Sequence+1), nil
}
