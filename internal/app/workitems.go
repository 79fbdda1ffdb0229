package app

import (
	"context"
	"net/http"
	"strings"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
	"workhub/api/internal/sanitize"
	"workhub/api/internal/search"
	"workhub/api/internal/store"
)

func typeImmutable() *DomainError {
	return domainError(http.StatusBadRequest, "TYPE_IMMUTABLE", "cannot change the type of an existing work item", map[string]any{"field": "type"})
}

// resolveType picks the type for a new work item. A scoped service forces its own type
// and rejects any other.
func (s *Service) resolveType(value string) (store.WorkItemType, error) {
	if s.scope != store.WorkItemTypeDefault {
		if strings.TrimSpace(value) == "" {
			return s.scope, nil
		}
		if t, ok := store.ParseWorkItemType(value); !ok || t != s.scope {
			return 0, validationError("type", "type must be "+s.scope.String())
		}
		return s.scope, nil
	}
	t, ok := store.ParseWorkItemType(value)
	if !ok {
		return 0, validationError("type", "type is required")
	}
	return t, nil
}

type workItemFields struct {
	title   string
	summary string
	body    string
}

func cleanWorkItemInput(input WorkItemInput) (workItemFields, error) {
	fields := workItemFields{
		title:   sanitize.Text(input.Title),
		summary: sanitize.Text(input.Summary),
		body:    sanitize.HTML(input.Body),
	}
	if fields.title == "" {
		return workItemFields{}, validationError("title", "title is required")
	}
	if fields.summary == "" {
		return workItemFields{}, validationError("summary", "summary is required")
	}
	if sanitize.IsBlank(fields.body) {
		return workItemFields{}, validationError("body", "body is required")
	}
	return fields, nil
}

// CreateWorkItem stores a new item owned by the caller. The caller becomes its first
// participant.
func (s *Service) CreateWorkItem(ctx context.Context, m authz.Membership, input WorkItemInput) (WorkItemDTO, error) {
	itemType, err := s.resolveType(input.Type)
	if err != nil {
		return WorkItemDTO{}, err
	}
	fields, err := cleanWorkItemInput(input)
	if err != nil {
		return WorkItemDTO{}, err
	}
	status, err := lifecycle.Transition(lifecycle.StatusDefault, lifecycle.OpCreate)
	if err != nil {
		return WorkItemDTO{}, translate(err, s.itemNoun())
	}

	item, err := s.store.CreateWorkItem(ctx, store.WorkItem{
		Type:      itemType,
		Title:     fields.title,
		Summary:   fields.summary,
		Body:      fields.body,
		OwnerID:   m.UserID,
		Status:    status,
		CreatedAt: s.stamp(),
		ClosedAt:  input.ClosedAt,
	})
	if err != nil {
		return WorkItemDTO{}, translate(err, s.itemNoun())
	}
	s.reindex(ctx, item.ID)
	return s.workItemDTO(item), nil
}

// GetWorkItem returns the item together with its participants, the first page of
// comments, attachments and relations.
func (s *Service) GetWorkItem(ctx context.Context, m authz.Membership, id int64) (WorkItemDetailDTO, error) {
	access, err := s.loadWorkItem(ctx, m, id, authz.RuleParticipant)
	if err != nil {
		return WorkItemDetailDTO{}, err
	}

	participants, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return WorkItemDetailDTO{}, err
	}
	firstPage := s.pageParams(paging.Params{})
	comments, total, err := s.store.ListComments(ctx, id, firstPage)
	if err != nil {
		return WorkItemDetailDTO{}, err
	}
	attachments, err := s.store.ListAttachments(ctx, id)
	if err != nil {
		return WorkItemDetailDTO{}, err
	}
	relations, err := s.store.ListRelations(ctx, id)
	if err != nil {
		return WorkItemDetailDTO{}, err
	}

	return WorkItemDetailDTO{
		WorkItemDTO:  s.workItemDTO(access.item),
		Participants: mapSlice(participants, participantDTO),
		Comments:     toPageDTO(paging.NewPage(comments, firstPage, total), commentDTO),
		Attachments:  mapSlice(attachments, attachmentDTO),
		Relations:    mapSlice(relations, relationDTO),
	}, nil
}

// UpdateWorkItem replaces the editable fields. Any participant may edit; the type can
// never change.
func (s *Service) UpdateWorkItem(ctx context.Context, m authz.Membership, id int64, input WorkItemInput) (WorkItemDTO, error) {
	access, err := s.loadWorkItem(ctx, m, id, authz.RuleParticipant)
	if err != nil {
		return WorkItemDTO{}, err
	}
	fields, err := cleanWorkItemInput(input)
	if err != nil {
		return WorkItemDTO{}, err
	}
	if strings.TrimSpace(input.Type) != "" {
		if t, ok := store.ParseWorkItemType(input.Type); !ok || t != access.item.Type {
			return WorkItemDTO{}, typeImmutable()
		}
	}
	status, err := lifecycle.Transition(access.item.Status, lifecycle.OpUpdate)
	if err != nil {
		return WorkItemDTO{}, translate(err, s.itemNoun())
	}

	now := s.stamp()
	item := access.item
	item.Title = fields.title
	item.Summary = fields.summary
	item.Body = fields.body
	item.ClosedAt = input.ClosedAt
	item.Status = status
	item.UpdatedAt = &now

	updated, err := s.store.UpdateWorkItem(ctx, item)
	if err != nil {
		return WorkItemDTO{}, translate(err, s.itemNoun())
	}
	s.reindex(ctx, id)
	return s.workItemDTO(updated), nil
}

// DeleteWorkItem soft deletes the item. Only its owner may do this.
func (s *Service) DeleteWorkItem(ctx context.Context, m authz.Membership, id int64) error {
	access, err := s.loadWorkItem(ctx, m, id, authz.RuleOwner)
	if err != nil {
		return err
	}
	if _, err := lifecycle.Transition(access.item.Status, lifecycle.OpDelete); err != nil {
		return translate(err, s.itemNoun())
	}
	if err := s.store.RemoveWorkItem(ctx, id, s.stamp()); err != nil {
		return translate(err, s.itemNoun())
	}
	s.search.DeleteWorkItem(id)
	return nil
}

// listType resolves the optional type filter of list and search requests.
func (s *Service) listType(value string) (store.WorkItemType, error) {
	if s.scope != store.WorkItemTypeDefault {
		return s.scope, nil
	}
	if strings.TrimSpace(value) == "" {
		return store.WorkItemTypeDefault, nil
	}
	t, ok := store.ParseWorkItemType(value)
	if !ok {
		return 0, validationError("type", "unknown work item type")
	}
	return t, nil
}

// ListWorkItems pages through the items the caller participates in, oldest first.
func (s *Service) ListWorkItems(ctx context.Context, m authz.Membership, typeFilter string, p paging.Params) (PageDTO[WorkItemDTO], error) {
	itemType, err := s.listType(typeFilter)
	if err != nil {
		return PageDTO[WorkItemDTO]{}, err
	}
	p = s.pageParams(p)
	items, total, err := s.store.ListWorkItems(ctx, m, store.WorkItemFilter{Type: itemType}, p)
	if err != nil {
		return PageDTO[WorkItemDTO]{}, err
	}
	return toPageDTO(paging.NewPage(items, p, total), s.workItemDTO), nil
}

// SearchWorkItems runs a text search restricted to the caller's items. Hits are checked
// against the database again so a stale index never leaks an item. Hits dropped by that
// check are taken off the engine's total; counts for other pages stay the engine's
// estimate.
func (s *Service) SearchWorkItems(ctx context.Context, m authz.Membership, text, typeFilter string, p paging.Params) (PageDTO[SearchHitDTO], error) {
	itemType, err := s.listType(typeFilter)
	if err != nil {
		return PageDTO[SearchHitDTO]{}, err
	}
	p = s.pageParams(p)
	query := search.Query{
		Text:       strings.TrimSpace(text),
		Membership: m,
		Page:       p,
	}
	if itemType != store.WorkItemTypeDefault {
		query.Type = itemType.String()
	}

	response, err := s.search.Search(ctx, query)
	if err != nil {
		return PageDTO[SearchHitDTO]{}, err
	}

	ids := make([]int64, len(response.Results))
	for i, result := range response.Results {
		ids[i] = result.WorkItemID
	}
	visible, err := s.store.GetWorkItemsByIDs(ctx, m, ids)
	if err != nil {
		return PageDTO[SearchHitDTO]{}, err
	}

	hits := make([]SearchHitDTO, 0, len(response.Results))
	for _, result := range response.Results {
		item, ok := visible[result.WorkItemID]
		if !ok {
			continue
		}
		hits = append(hits, SearchHitDTO{
			WorkItem: s.workItemDTO(item),
			Title:    result.Title,
			Snippet:  result.Snippet,
		})
	}
	total := response.Total - (len(response.Results) - len(hits))
	if seen := p.Offset() + len(hits); len(hits) > 0 && total < seen {
		total = seen
	}
	return toPageDTO(paging.NewPage(hits, p, total), func(hit SearchHitDTO) SearchHitDTO { return hit }), nil
}
