package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "aip/pkg/domain-errors"
)

// Typed identifiers keep a request ID from being passed where a project ID is
// expected. All of them are UUIDs on the wire; the numeric primary keys stay
// inside the database.
type (
	UserID    uuid.UUID
	OrgID     uuid.UUID
	ProjectID uuid.UUID
	RequestID uuid.UUID
	CheckID   uuid.UUID
	EventID   uuid.UUID
	RecordID  uuid.UUID
)

const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" || strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID("organization id", s)
	return OrgID(u), err
}

func ParseProjectID(s string) (ProjectID, error) {
	u, err := parseUUID("project id", s)
	return ProjectID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID("verification request id", s)
	return RequestID(u), err
}

func ParseCheckID(s string) (CheckID, error) {
	u, err := parseUUID("check id", s)
	return CheckID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID("record id", s)
	return RecordID(u), err
}

func NewProjectID() ProjectID { return ProjectID(uuid.New()) }
func NewRequestID() RequestID { return RequestID(uuid.New()) }
func NewCheckID() CheckID     { return CheckID(uuid.New()) }
func NewEventID() EventID     { return EventID(uuid.New()) }
func NewRecordID() RecordID   { return RecordID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id OrgID) String() string     { return uuid.UUID(id).String() }
func (id ProjectID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }
func (id CheckID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ProjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CheckID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id OrgID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ProjectID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RequestID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id CheckID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrgID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ProjectID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequestID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CheckID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
