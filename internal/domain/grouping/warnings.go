package grouping

import (
	"fmt"
	"strings"
)

// Warning kinds, also used as metric label values.
const (
	KindInconsistentMetadata = "inconsistent_metadata"
	KindEmptySession         = "empty_session"
)

// Warning is a non-fatal data quality anomaly tied to one session.
type Warning interface {
	Kind() string
	SessionID() int64
	String() string
}

// InconsistentMetadataWarning reports a session whose track, difficulty or
// kart type varies across its records. The first record's values are kept.
type InconsistentMetadataWarning struct {
	Session int64
	Fields  []string
}

func (w InconsistentMetadataWarning) Kind() string     { return KindInconsistentMetadata }
func (w InconsistentMetadataWarning) SessionID() int64 { return w.Session }

func (w InconsistentMetadataWarning) String() string {
	return fmt.Sprintf("session %d: inconsistent %s; using first record", w.Session, strings.Join(w.Fields, ", "))
}

// EmptySessionWarning reports a session without records. It is skipped.
type EmptySessionWarning struct {
	Session int64
}

func (w EmptySessionWarning) Kind() string     { return KindEmptySession }
func (w EmptySessionWarning) SessionID() int64 { return w.Session }

func (w EmptySessionWarning) String() string {
	return fmt.Sprintf("session %d: no records; skipped", w.Session)
}
