package app

import (
	"time"

	"workhub/api/internal/paging"
	"workhub/api/internal/store"
)

type WorkItemInput struct {
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Summary  string     `json:"summary"`
	Body     string     `json:"body"`
	ClosedAt *time.Time `json:"closedAt"`
}

type ParticipantInput struct {
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
}

type CommentInput struct {
	Text string `json:"text"`
}

type AttachmentInput struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
}

type UploadInput struct {
	FileName string `json:"fileName"`
}

type RelationInput struct {
	ToWorkItemID int64  `json:"toWorkItemId"`
	Type         string `json:"type"`
}

type MembershipInput struct {
	GroupIDs        []int64 `json:"groupIds"`
	OrganizationIDs []int64 `json:"organizationIds"`
}

type WorkItemDTO struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	Body      string     `json:"body"`
	OwnerID   int64      `json:"ownerId"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// WorkItemDetailDTO is the complete view returned by GET on a single work item.
type WorkItemDetailDTO struct {
	WorkItemDTO
	Participants []ParticipantDTO    `json:"participants"`
	Comments     PageDTO[CommentDTO] `json:"comments"`
	Attachments  []AttachmentDTO     `json:"attachments"`
	Relations    []RelationDTO       `json:"relations"`
}

type ParticipantDTO struct {
	ID         int64     `json:"id"`
	WorkItemID int64     `json:"workItemId"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CommentDTO struct {
	ID         int64      `json:"id"`
	WorkItemID int64      `json:"workItemId"`
	AuthorID   int64      `json:"authorId"`
	Text       string     `json:"text"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

type AttachmentDTO struct {
	ID         int64      `json:"id"`
	WorkItemID int64      `json:"workItemId"`
	ExternalID string     `json:"externalId"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	OwnerID    int64      `json:"ownerId"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

type RelationDTO struct {
	ID             int64     `json:"id"`
	FromWorkItemID int64     `json:"fromWorkItemId"`
	ToWorkItemID   int64     `json:"toWorkItemId"`
	Type           string    `json:"type"`
	OwnerID        int64     `json:"ownerId"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UploadDTO struct {
	ObjectKey string    `json:"objectKey"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SearchHitDTO struct {
	WorkItem WorkItemDTO `json:"workItem"`
	Title    string      `json:"title"`
	Snippet  string      `json:"snippet"`
}

type MembershipDTO struct {
	UserID          int64     `json:"userId"`
	GroupIDs        []int64   `json:"groupIds"`
	OrganizationIDs []int64   `json:"organizationIds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type PageDTO[T any] struct {
	Items       []T  `json:"items"`
	PageNumber  int  `json:"pageNumber"`
	PageSize    int  `json:"pageSize"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

func toPageDTO[T, U any](page paging.Page[T], fn func(T) U) PageDTO[U] {
	mapped := paging.Map(page, fn)
	return PageDTO[U]{
		Items:       mapped.Items,
		PageNumber:  mapped.Number,
		PageSize:    mapped.Size,
		TotalCount:  mapped.TotalCount,
		TotalPages:  mapped.TotalPages,
		HasPrevious: mapped.HasPrevious,
		HasNext:     mapped.HasNext,
	}
}

func mapSlice[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func (s *Service) workItemDTO(item store.WorkItem) WorkItemDTO {
	return WorkItemDTO{
		ID:        item.ID,
		Type:      item.Type.String(),
		Title:     item.Title,
		Summary:   item.Summary,
		Body:      item.Body,
		OwnerID:   item.OwnerID,
		Status:    lifecycleStatus(item, s.now()),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
		ClosedAt:  item.ClosedAt,
	}
}

func participantDTO(p store.Participant) ParticipantDTO {
	return ParticipantDTO{
		ID:         p.ID,
		WorkItemID: p.WorkItemID,
		EntityType: p.EntityType.String(),
		EntityID:   p.EntityID,
		Status:     p.Status.String(),
		CreatedAt:  p.CreatedAt,
	}
}

func commentDTO(c store.Comment) CommentDTO {
	return CommentDTO{
		ID:         c.ID,
		WorkItemID: c.WorkItemID,
		AuthorID:   c.AuthorID,
		Text:       c.Text,
		Status:     c.Status.String(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func attachmentDTO(a store.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:         a.ID,
		WorkItemID: a.WorkItemID,
		ExternalID: a.ExternalID,
		Name:       a.Name,
		URL:        a.URL,
		OwnerID:    a.OwnerID,
		Status:     a.Status.String(),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func relationDTO(r store.Relation) RelationDTO {
	return RelationDTO{
		ID:             r.ID,
		FromWorkItemID: r.FromWorkItemID,
		ToWorkItemID:   r.ToWorkItemID,
		Type:           r.Type.String(),
		OwnerID:        r.OwnerID,
		Status:         r.Status.String(),
		CreatedAt:      r.CreatedAt,
	}
}
