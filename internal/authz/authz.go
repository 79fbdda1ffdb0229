package authz

import (
	"slices"
	"strconv"
	"strings"
)

type EntityType int

const (
	EntityDefault EntityType = iota
	EntityUser
	EntityGroup
	EntityOrganization
)

func (t EntityType) String() string {
	switch t {
	case EntityUser:
		return "User"
	case EntityGroup:
		return "Group"
	case EntityOrganization:
		return "Organization"
	default:
		return "Default"
	}
}

// ParseEntityType accepts the enum name in any case. Default is never returned as valid.
func ParseEntityType(value string) (EntityType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "user":
		return EntityUser, true
	case "group":
		return EntityGroup, true
	case "organization":
		return EntityOrganization, true
	default:
		return EntityDefault, false
	}
}

// Subject is one (entity type, entity id) pair granted visibility on a work item.
type Subject struct {
	Type EntityType
	ID   int64
}

func (s Subject) Key() string {
	return strings.ToLower(s.Type.String()) + ":" + strconv.FormatInt(s.ID, 10)
}

// Membership describes the caller of a request. It is built per request and never stored.
type Membership struct {
	UserID          int64
	GroupIDs        []int64
	OrganizationIDs []int64
}

// Subjects expands the membership into every subject it can match, user first.
func (m Membership) Subjects() []Subject {
	subjects := make([]Subject, 0, 1+len(m.GroupIDs)+len(m.OrganizationIDs))
	if m.UserID > 0 {
		subjects = append(subjects, Subject{Type: EntityUser, ID: m.UserID})
	}
	for _, id := range m.GroupIDs {
		subjects = append(subjects, Subject{Type: EntityGroup, ID: id})
	}
	for _, id := range m.OrganizationIDs {
		subjects = append(subjects, Subject{Type: EntityOrganization, ID: id})
	}
	return subjects
}

func (m Membership) SubjectKeys() []string {
	subjects := m.Subjects()
	keys := make([]string, len(subjects))
	for i, subject := range subjects {
		keys[i] = subject.Key()
	}
	return keys
}

func (m Membership) Matches(subject Subject) bool {
	switch subject.Type {
	case EntityUser:
		return m.UserID > 0 && subject.ID == m.UserID
	case EntityGroup:
		return slices.Contains(m.GroupIDs, subject.ID)
	case EntityOrganization:
		return slices.Contains(m.OrganizationIDs, subject.ID)
	default:
		return false
	}
}

// IsOwner reports whether the caller created the resource.
func IsOwner(ownerID int64, m Membership) bool {
	return ownerID > 0 && ownerID == m.UserID
}

// IsVisibleParticipant reports whether any participant record matches the caller's
// user id, one of its group ids or one of its organization ids.
func IsVisibleParticipant(participants []Subject, m Membership) bool {
	for _, participant := range participants {
		if m.Matches(participant) {
			return true
		}
	}
	return false
}

type Rule int

const (
	RuleParticipant Rule = iota + 1
	RuleOwner
)

func (r Rule) String() string {
	switch r {
	case RuleParticipant:
		return "participant"
	case RuleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Resource is what a rule is evaluated against: who owns it and who participates in
// the work item it belongs to.
type Resource struct {
	OwnerID      int64
	Participants []Subject
}

func Allows(rule Rule, resource Resource, m Membership) bool {
	switch rule {
	case RuleOwner:
		return IsOwner(resource.OwnerID, m)
	case RuleParticipant:
		return IsVisibleParticipant(resource.Participants, m)
	default:
		return false
	}
}
