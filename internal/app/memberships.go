package app

import (
	"context"
	"errors"

	"workhub/api/internal/directory"
)

func (s *Service) requireDirectory() error {
	if s.directory == nil {
		return unavailable("DIRECTORY_DISABLED", "the membership directory is not configured")
	}
	return nil
}

// PutMembership replaces the stored group and organization ids of a user.
func (s *Service) PutMembership(ctx context.Context, userID int64, input MembershipInput) (MembershipDTO, error) {
	if err := s.requireDirectory(); err != nil {
		return MembershipDTO{}, err
	}
	if userID <= 0 {
		return MembershipDTO{}, validationError("userId", "userId must be a positive id")
	}
	entry, err := s.directory.Save(ctx, directory.Entry{
		UserID:          userID,
		GroupIDs:        input.GroupIDs,
		OrganizationIDs: input.OrganizationIDs,
	})
	if err != nil {
		return MembershipDTO{}, err
	}
	return membershipDTO(entry), nil
}

func (s *Service) GetMembership(ctx context.Context, userID int64) (MembershipDTO, error) {
	if err := s.requireDirectory(); err != nil {
		return MembershipDTO{}, err
	}
	entry, err := s.directory.Lookup(ctx, userID)
	if errors.Is(err, directory.ErrNotFound) {
		return MembershipDTO{}, notFound("membership")
	}
	if err != nil {
		return MembershipDTO{}, err
	}
	return membershipDTO(entry), nil
}

// DeleteMembership drops the entry. Deleting a user without an entry succeeds.
func (s *Service) DeleteMembership(ctx context.Context, userID int64) error {
	if err := s.requireDirectory(); err != nil {
		return err
	}
	return s.directory.Delete(ctx, userID)
}

func membershipDTO(entry directory.Entry) MembershipDTO {
	groups := entry.GroupIDs
	if groups == nil {
		groups = []int64{}
	}
	organizations := entry.OrganizationIDs
	if organizations == nil {
		organizations = []int64{}
	}
	return MembershipDTO{
		UserID:          entry.UserID,
		GroupIDs:        groups,
		OrganizationIDs: organizations,
		UpdatedAt:       entry.UpdatedAt,
	}
}
