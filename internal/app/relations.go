package app

import (
	"context"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/store"
)

// CreateRelation links the item to another one. The caller must participate in both.
func (s *Service) CreateRelation(ctx context.Context, m authz.Membership, itemID int64, input RelationInput) (RelationDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return RelationDTO{}, err
	}
	relationType, ok := store.ParseRelationType(input.Type)
	if !ok {
		return RelationDTO{}, validationError("type", "type must be Related, Blocks, Duplicates or Parent")
	}
	if input.ToWorkItemID <= 0 {
		return RelationDTO{}, validationError("toWorkItemId", "toWorkItemId is required")
	}
	if input.ToWorkItemID == itemID {
		return RelationDTO{}, validationError("toWorkItemId", "a work item cannot relate to itself")
	}
	// The target may be of any type, so it is loaded outside the scope.
	if _, err := s.Scoped(store.WorkItemTypeDefault).loadWorkItem(ctx, m, input.ToWorkItemID, authz.RuleParticipant); err != nil {
		return RelationDTO{}, err
	}
	status, err := lifecycle.Transition(lifecycle.StatusDefault, lifecycle.OpCreate)
	if err != nil {
		return RelationDTO{}, translate(err, "relation")
	}

	relation, err := s.store.CreateRelation(ctx, store.Relation{
		FromWorkItemID: itemID,
		ToWorkItemID:   input.ToWorkItemID,
		Type:           relationType,
		OwnerID:        m.UserID,
		Status:         status,
		CreatedAt:      s.stamp(),
	})
	if err != nil {
		return RelationDTO{}, translate(err, "relation")
	}
	return relationDTO(relation), nil
}

func (s *Service) GetRelation(ctx context.Context, m authz.Membership, itemID, relationID int64) (RelationDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return RelationDTO{}, err
	}
	relation, err := s.store.GetRelation(ctx, itemID, relationID)
	if err != nil {
		return RelationDTO{}, translate(err, "relation")
	}
	return relationDTO(relation), nil
}

// ListRelations returns relations in both directions.
func (s *Service) ListRelations(ctx context.Context, m authz.Membership, itemID int64) ([]RelationDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return nil, err
	}
	relations, err := s.store.ListRelations(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return mapSlice(relations, relationDTO), nil
}

func (s *Service) DeleteRelation(ctx context.Context, m authz.Membership, itemID, relationID int64) error {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return err
	}
	relation, err := s.store.GetRelation(ctx, itemID, relationID)
	if err != nil {
		return translate(err, "relation")
	}
	if err := requireOwner(relation.OwnerID, m, "relation"); err != nil {
		return err
	}
	if _, err := lifecycle.Transition(relation.Status, lifecycle.OpDelete); err != nil {
		return translate(err, "relation")
	}
	return translate(s.store.RemoveRelation(ctx, relationID, s.stamp()), "relation")
}
