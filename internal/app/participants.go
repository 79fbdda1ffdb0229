package app

import (
	"context"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/store"
)

// AddParticipant grants a user, group or organization visibility on the item. Only the
// item owner may add participants.
func (s *Service) AddParticipant(ctx context.Context, m authz.Membership, itemID int64, input ParticipantInput) (ParticipantDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleOwner); err != nil {
		return ParticipantDTO{}, err
	}
	entityType, ok := authz.ParseEntityType(input.EntityType)
	if !ok {
		return ParticipantDTO{}, validationError("entityType", "entityType must be User, Group or Organization")
	}
	if input.EntityID <= 0 {
		return ParticipantDTO{}, validationError("entityId", "entityId must be a positive id")
	}
	status, err := lifecycle.Transition(lifecycle.StatusDefault, lifecycle.OpCreate)
	if err != nil {
		return ParticipantDTO{}, translate(err, "participant")
	}

	participant, err := s.store.CreateParticipant(ctx, store.Participant{
		WorkItemID: itemID,
		EntityType: entityType,
		EntityID:   input.EntityID,
		Status:     status,
		CreatedAt:  s.stamp(),
	})
	if err != nil {
		return ParticipantDTO{}, translate(err, "participant")
	}
	s.reindex(ctx, itemID)
	return participantDTO(participant), nil
}

func (s *Service) GetParticipant(ctx context.Context, m authz.Membership, itemID, participantID int64) (ParticipantDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return ParticipantDTO{}, err
	}
	participant, err := s.store.GetParticipant(ctx, itemID, participantID)
	if err != nil {
		return ParticipantDTO{}, translate(err, "participant")
	}
	return participantDTO(participant), nil
}

func (s *Service) ListParticipants(ctx context.Context, m authz.Membership, itemID int64) ([]ParticipantDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return mapSlice(participants, participantDTO), nil
}

// RemoveParticipant revokes a participant. The owner's own record stays so the owner
// can always see the item.
func (s *Service) RemoveParticipant(ctx context.Context, m authz.Membership, itemID, participantID int64) error {
	access, err := s.loadWorkItem(ctx, m, itemID, authz.RuleOwner)
	if err != nil {
		return err
	}
	participant, err := s.store.GetParticipant(ctx, itemID, participantID)
	if err != nil {
		return translate(err, "participant")
	}
	if participant.EntityType == authz.EntityUser && participant.EntityID == access.item.OwnerID {
		return validationError("participantId", "the owner cannot be removed from the item")
	}
	if _, err := lifecycle.Transition(participant.Status, lifecycle.OpDelete); err != nil {
		return translate(err, "participant")
	}
	if err := s.store.RemoveParticipant(ctx, participantID, s.stamp()); err != nil {
		return translate(err, "participant")
	}
	s.reindex(ctx, itemID)
	return nil
}
