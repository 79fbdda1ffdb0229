package store

import (
	"strings"
	"time"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
)

type WorkItemType int

const (
	WorkItemTypeDefault WorkItemType = iota
	WorkItemTypeDiscussion
	WorkItemTypeDocument
	WorkItemTypeEvent
)

func (t WorkItemType) String() string {
	switch t {
	case WorkItemTypeDiscussion:
		return "Discussion"
	case WorkItemTypeDocument:
		return "Document"
	case WorkItemTypeEvent:
		return "Event"
	default:
		return "Default"
	}
}

// ParseWorkItemType accepts the name in any case. Default is reported as not ok.
func ParseWorkItemType(value string) (WorkItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "discussion":
		return WorkItemTypeDiscussion, true
	case "document":
		return WorkItemTypeDocument, true
	case "event":
		return WorkItemTypeEvent, true
	default:
		return WorkItemTypeDefault, false
	}
}

type RelationType int

const (
	RelationTypeDefault RelationType = iota
	RelationTypeRelated
	RelationTypeBlocks
	RelationTypeDuplicates
	RelationTypeParent
)

func (t RelationType) String() string {
	switch t {
	case RelationTypeRelated:
		return "Related"
	case RelationTypeBlocks:
		return "Blocks"
	case RelationTypeDuplicates:
		return "Duplicates"
	case RelationTypeParent:
		return "Parent"
	default:
		return "Default"
	}
}

func ParseRelationType(value string) (RelationType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "related":
		return RelationTypeRelated, true
	case "blocks":
		return RelationTypeBlocks, true
	case "duplicates":
		return RelationTypeDuplicates, true
	case "parent":
		return RelationTypeParent, true
	default:
		return RelationTypeDefault, false
	}
}

type WorkItem struct {
	ID        int64
	Type      WorkItemType
	Title     string
	Summary   string
	Body      string
	OwnerID   int64
	Status    lifecycle.Status
	CreatedAt time.Time
	UpdatedAt *time.Time
	ClosedAt  *time.Time
}

type Participant struct {
	ID         int64
	WorkItemID int64
	EntityType authz.EntityType
	EntityID   int64
	Status     lifecycle.Status
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

func (p Participant) Subject() authz.Subject {
	return authz.Subject{Type: p.EntityType, ID: p.EntityID}
}

type Comment struct {
	ID         int64
	WorkItemID int64
	AuthorID   int64
	Text       string
	Status     lifecycle.Status
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

type Attachment struct {
	ID         int64
	WorkItemID int64
	ExternalID string
	Name       string
	URL        string
	OwnerID    int64
	Status     lifecycle.Status
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

type Relation struct {
	ID             int64
	FromWorkItemID int64
	ToWorkItemID   int64
	Type           RelationType
	OwnerID        int64
	Status         lifecycle.Status
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// WorkItemFilter narrows ListWorkItems. Zero values match everything.
type WorkItemFilter struct {
	Type  WorkItemType
	Query string
}
