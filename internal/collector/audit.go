package collector

import (
	"slices"
	"strings"
	"time"

	"bybit-ticker-bot/internal/types"

	"go.uber.org/zap"
)

// RequestAudit keeps the latest request per requester and writes every
// request to the audit logger.
type RequestAudit struct {
	st  *State
	log *zap.Logger
	now func() time.Time
}

// NewRequestAudit writes to log, or nowhere when log is nil.
func NewRequestAudit(st *State, log *zap.Logger) *RequestAudit {
	if log == nil {
		log = zap.NewNop()
	}
	return &RequestAudit{st: st, log: log, now: time.Now}
}

// Record replaces the previous entry for rec.RequesterID. Records without a
// requester id are ignored.
func (a *RequestAudit) Record(rec types.RequestRecord) {
	if rec.RequesterID == "" {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = a.now()
	}
	if rec.Name == "" {
		rec.Name = rec.RequesterID
	}

	a.st.mu.Lock()
	a.st.requests[rec.RequesterID] = rec
	a.st.mu.Unlock()

	a.log.Info("request",
		zap.String("origin", rec.Origin),
		zap.String("requester_id", rec.RequesterID),
		zap.String("name", rec.Name),
		zap.String("text", rec.Text),
		zap.Time("at", rec.Timestamp),
	)
}

// Recent returns one record per requester, newest first.
func (a *RequestAudit) Recent() []types.RequestRecord {
	a.st.mu.Lock()
	out := make([]types.RequestRecord, 0, len(a.st.requests))
	for _, rec := range a.st.requests {
		out = append(out, rec)
	}
	a.st.mu.Unlock()

	slices.SortFunc(out, func(x, y types.RequestRecord) int {
		if c := y.Timestamp.Compare(x.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(x.RequesterID, y.RequesterID)
	})
	return out
}
