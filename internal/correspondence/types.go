// Package correspondence triages an inbox against a contact spreadsheet:
// it classifies senders, assembles per-status guidance and produces reply
// drafts for a human to review. Nothing here sends mail.
package correspondence

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ContactType is the kind of correspondent.
type ContactType string

const (
	TypeSchool   ContactType = "school"
	TypeCompany  ContactType = "company"
	TypePersonal ContactType = "personal"
	TypeOther    ContactType = "other"
)

// Status is a contact's position in its relationship lifecycle.
type Status string

const (
	StatusNew        Status = "new"
	StatusMeeting    Status = "meeting"
	StatusInterested Status = "interested"
	StatusEnrolled   Status = "enrolled"

	StatusLead   Status = "lead"
	StatusActive Status = "active"
	StatusClosed Status = "closed"

	StatusPending Status = "pending"
)

// Priority ranks a draft for review.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParseContactType accepts any casing and surrounding whitespace.
func ParseContactType(s string) (ContactType, bool) {
	switch t := ContactType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSchool, TypeCompany, TypePersonal, TypeOther:
		return t, true
	default:
		return "", false
	}
}

// InitialStatus is the status a newly classified contact starts in.
func (t ContactType) InitialStatus() Status {
	switch t {
	case TypeSchool:
		return StatusNew
	case TypeCompany:
		return StatusLead
	case TypePersonal:
		return StatusActive
	default:
		return StatusPending
	}
}

// contextDir is the directory holding this type's guidance files.
func (t ContactType) contextDir() string {
	switch t {
	case TypeSchool:
		return "schools"
	case TypeCompany:
		return "companies"
	default:
		return string(t)
	}
}

// transitions lists the forward moves allowed for each type. Types without
// an entry keep their initial status.
var transitions = map[ContactType]map[Status][]Status{
	TypeSchool: {
		StatusNew:        {StatusMeeting},
		StatusMeeting:    {StatusInterested},
		StatusInterested: {StatusEnrolled},
	},
	TypeCompany: {
		StatusLead:   {StatusActive},
		StatusActive: {StatusClosed},
	},
}

// NextStatuses returns the statuses a contact may move to from current.
func NextStatuses(t ContactType, current Status) []Status {
	return slices.Clone(transitions[t][current])
}

// CanTransition reports whether from -> to is a legal move for type t.
// Staying put is always legal.
func CanTransition(t ContactType, from, to Status) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[t][from], to)
}

// Contact is one CRM row.
type Contact struct {
	Row          int // 1-based sheet row, 0 when not yet stored
	Email        string
	Type         ContactType
	Status       Status
	ThreadID     string
	Notes        string
	FollowUpDate string
	LastUpdated  time.Time
}

// Message is one inbound email.
type Message struct {
	ID       string
	ThreadID string
	From     string // bare address
	Subject  string
	Body     string
	Received time.Time
}

// Draft is a reply awaiting human review.
type Draft struct {
	Text            string   `json:"draft_text"`
	SuggestedStatus Status   `json:"suggested_status"`
	FollowUpDate    string   `json:"follow_up_date"`
	Priority        Priority `json:"priority"`
}

// TransitionError reports a suggested status the contact's type does not allow.
type TransitionError struct {
	Type     ContactType
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s contact cannot move from %q to %q", e.Type, e.From, e.To)
}
