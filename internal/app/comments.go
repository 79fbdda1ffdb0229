package app

import (
	"context"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/paging"
	"workhub/api/internal/sanitize"
	"workhub/api/internal/store"
)

func cleanCommentText(text string) (string, error) {
	cleaned := sanitize.HTML(text)
	if sanitize.IsBlank(cleaned) {
		return "", validationError("text", "text is required")
	}
	return cleaned, nil
}

func (s *Service) CreateComment(ctx context.Context, m authz.Membership, itemID int64, input CommentInput) (CommentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return CommentDTO{}, err
	}
	text, err := cleanCommentText(input.Text)
	if err != nil {
		return CommentDTO{}, err
	}
	status, err := lifecycle.Transition(lifecycle.StatusDefault, lifecycle.OpCreate)
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}
	comment, err := s.store.CreateComment(ctx, store.Comment{
		WorkItemID: itemID,
		AuthorID:   m.UserID,
		Text:       text,
		Status:     status,
		CreatedAt:  s.stamp(),
	})
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}
	return commentDTO(comment), nil
}

func (s *Service) GetComment(ctx context.Context, m authz.Membership, itemID, commentID int64) (CommentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return CommentDTO{}, err
	}
	comment, err := s.store.GetComment(ctx, itemID, commentID)
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}
	return commentDTO(comment), nil
}

// UpdateComment edits the text. Only the author may edit their comment.
func (s *Service) UpdateComment(ctx context.Context, m authz.Membership, itemID, commentID int64, input CommentInput) (CommentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return CommentDTO{}, err
	}
	comment, err := s.store.GetComment(ctx, itemID, commentID)
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}
	if err := requireOwner(comment.AuthorID, m, "comment"); err != nil {
		return CommentDTO{}, err
	}
	text, err := cleanCommentText(input.Text)
	if err != nil {
		return CommentDTO{}, err
	}
	status, err := lifecycle.Transition(comment.Status, lifecycle.OpUpdate)
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}

	now := s.stamp()
	comment.Text = text
	comment.Status = status
	comment.UpdatedAt = &now
	updated, err := s.store.UpdateComment(ctx, comment)
	if err != nil {
		return CommentDTO{}, translate(err, "comment")
	}
	return commentDTO(updated), nil
}

func (s *Service) DeleteComment(ctx context.Context, m authz.Membership, itemID, commentID int64) error {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return err
	}
	comment, err := s.store.GetComment(ctx, itemID, commentID)
	if err != nil {
		return translate(err, "comment")
	}
	if err := requireOwner(comment.AuthorID, m, "comment"); err != nil {
		return err
	}
	if _, err := lifecycle.Transition(comment.Status, lifecycle.OpDelete); err != nil {
		return translate(err, "comment")
	}
	return translate(s.store.RemoveComment(ctx, commentID, s.stamp()), "comment")
}

func (s *Service) ListComments(ctx context.Context, m authz.Membership, itemID int64, p paging.Params) (PageDTO[CommentDTO], error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return PageDTO[CommentDTO]{}, err
	}
	p = s.pageParams(p)
	comments, total, err := s.store.ListComments(ctx, itemID, p)
	if err != nil {
		return PageDTO[CommentDTO]{}, err
	}
	return toPageDTO(paging.NewPage(comments, p, total), commentDTO), nil
}
