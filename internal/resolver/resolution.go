// Package resolver maps a speaker-name string to a person, queueing the
// cases it cannot decide for human review.
package resolver

// Resolution is one of Resolved, PendingReview or NewPerson.
type Resolution interface {
	// AttachTo is the person the quote should be stored under. Zero means
	// the quote is held unattached until review.
	AttachTo() int64
	isResolution()
}

// Resolved is a confident match to an existing person.
type Resolved struct {
	PersonID   int64
	Confidence float64
	Via        string
	// AliasAdded is set when the surface form became a new alias.
	AliasAdded bool
}

// PendingReview is an ambiguous match waiting in the disambiguation queue.
type PendingReview struct {
	CandidateID         *int64
	QueueItemID         int64
	ProvisionalPersonID int64
	Confidence          float64
}

// NewPerson means no known person matched and one was created.
type NewPerson struct {
	PersonID int64
}

func (r Resolved) AttachTo() int64      { return r.PersonID }
func (r PendingReview) AttachTo() int64 { return r.ProvisionalPersonID }
func (r NewPerson) AttachTo() int64     { return r.PersonID }

func (Resolved) isResolution()      {}
func (PendingReview) isResolution() {}
func (NewPerson) isResolution()     {}

// Kind names the resolution for logs and API payloads.
func Kind(r Resolution) string {
	switch r.(type) {
	case Resolved:
		return "resolved"
	case PendingReview:
		return "pending_review"
	case NewPerson:
		return "new_person"
	default:
		return "unknown"
	}
}
