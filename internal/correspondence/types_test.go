package correspondence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		typ  ContactType
		want Status
	}{
		{TypeSchool, StatusNew},
		{TypeCompany, StatusLead},
		{TypePersonal, StatusActive},
		{TypeOther, StatusPending},
		{ContactType("unknown"), StatusPending},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.InitialStatus())
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		typ      ContactType
		from, to Status
		want     bool
	}{
		{"school new to meeting", TypeSchool, StatusNew, StatusMeeting, true},
		{"school meeting to interested", TypeSchool, StatusMeeting, StatusInterested, true},
		{"school interested to enrolled", TypeSchool, StatusInterested, StatusEnrolled, true},
		{"school cannot skip", TypeSchool, StatusNew, StatusEnrolled, false},
		{"school cannot go back", TypeSchool, StatusInterested, StatusNew, false},
		{"company lead to active", TypeCompany, StatusLead, StatusActive, true},
		{"company active to closed", TypeCompany, StatusActive, StatusClosed, true},
		{"company closed is final", TypeCompany, StatusClosed, StatusLead, false},
		{"company cannot use school status", TypeCompany, StatusLead, StatusMeeting, false},
		{"personal stays active", TypePersonal, StatusActive, StatusActive, true},
		{"personal has no moves", TypePersonal, StatusActive, StatusClosed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.typ, tt.from, tt.to))
		})
	}
}

func TestNextStatuses_ReturnsCopy(t *testing.T) {
	next := NextStatuses(TypeSchool, StatusNew)
	assert.Equal(t, []Status{StatusMeeting}, next)
	next[0] = StatusClosed
	assert.Equal(t, []Status{StatusMeeting}, NextStatuses(TypeSchool, StatusNew))
	assert.Empty(t, NextStatuses(TypeOther, StatusPending))
}

func TestParseContactType(t *testing.T) {
	typ, ok := ParseContactType("  School ")
	assert.True(t, ok)
	assert.Equal(t, TypeSchool, typ)

	_, ok = ParseContactType("vendor")
	assert.False(t, ok)
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{Type: TypeCompany, From: StatusLead, To: StatusEnrolled}
	assert.Equal(t, `company contact cannot move from "lead" to "enrolled"`, err.Error())
}
