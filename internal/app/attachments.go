package app

import (
	"context"
	"net/url"
	"path"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/sanitize"
	"workhub/api/internal/store"
)

type attachmentFields struct {
	externalID string
	name       string
	url        string
}

// cleanAttachmentInput validates an attachment. Keys issued by PresignAttachmentUpload
// get their URL from the object store; anything else must carry an absolute http(s) URL.
func (s *Service) cleanAttachmentInput(itemID int64, input AttachmentInput) (attachmentFields, error) {
	fields := attachmentFields{
		externalID: sanitize.Text(input.ExternalID),
		name:       sanitize.Text(input.Name),
	}
	if fields.externalID == "" {
		return attachmentFields{}, validationError("externalId", "externalId is required")
	}
	if s.blobs != nil && s.blobs.Owns(itemID, fields.externalID) {
		fields.url = s.blobs.ObjectURL(fields.externalID)
		if fields.name == "" {
			fields.name = path.Base(fields.externalID)
		}
		return fields, nil
	}

	u, err := url.Parse(input.URL)
	if input.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return attachmentFields{}, validationError("url", "url must be an absolute http or https URL")
	}
	fields.url = u.String()
	return fields, nil
}

func (s *Service) CreateAttachment(ctx context.Context, m authz.Membership, itemID int64, input AttachmentInput) (AttachmentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return AttachmentDTO{}, err
	}
	fields, err := s.cleanAttachmentInput(itemID, input)
	if err != nil {
		return AttachmentDTO{}, err
	}
	status, err := lifecycle.Transition(lifecycle.StatusDefault, lifecycle.OpCreate)
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}
	attachment, err := s.store.CreateAttachment(ctx, store.Attachment{
		WorkItemID: itemID,
		ExternalID: fields.externalID,
		Name:       fields.name,
		URL:        fields.url,
		OwnerID:    m.UserID,
		Status:     status,
		CreatedAt:  s.stamp(),
	})
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}
	return attachmentDTO(attachment), nil
}

func (s *Service) GetAttachment(ctx context.Context, m authz.Membership, itemID, attachmentID int64) (AttachmentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return AttachmentDTO{}, err
	}
	attachment, err := s.store.GetAttachment(ctx, itemID, attachmentID)
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}
	return attachmentDTO(attachment), nil
}

func (s *Service) UpdateAttachment(ctx context.Context, m authz.Membership, itemID, attachmentID int64, input AttachmentInput) (AttachmentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return AttachmentDTO{}, err
	}
	attachment, err := s.store.GetAttachment(ctx, itemID, attachmentID)
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}
	if err := requireOwner(attachment.OwnerID, m, "attachment"); err != nil {
		return AttachmentDTO{}, err
	}
	fields, err := s.cleanAttachmentInput(itemID, input)
	if err != nil {
		return AttachmentDTO{}, err
	}
	status, err := lifecycle.Transition(attachment.Status, lifecycle.OpUpdate)
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}

	now := s.stamp()
	attachment.ExternalID = fields.externalID
	attachment.Name = fields.name
	attachment.URL = fields.url
	attachment.Status = status
	attachment.UpdatedAt = &now
	updated, err := s.store.UpdateAttachment(ctx, attachment)
	if err != nil {
		return AttachmentDTO{}, translate(err, "attachment")
	}
	return attachmentDTO(updated), nil
}

func (s *Service) DeleteAttachment(ctx context.Context, m authz.Membership, itemID, attachmentID int64) error {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return err
	}
	attachment, err := s.store.GetAttachment(ctx, itemID, attachmentID)
	if err != nil {
		return translate(err, "attachment")
	}
	if err := requireOwner(attachment.OwnerID, m, "attachment"); err != nil {
		return err
	}
	if _, err := lifecycle.Transition(attachment.Status, lifecycle.OpDelete); err != nil {
		return translate(err, "attachment")
	}
	return translate(s.store.RemoveAttachment(ctx, attachmentID, s.stamp()), "attachment")
}

func (s *Service) ListAttachments(ctx context.Context, m authz.Membership, itemID int64) ([]AttachmentDTO, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return nil, err
	}
	attachments, err := s.store.ListAttachments(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return mapSlice(attachments, attachmentDTO), nil
}

// PresignAttachmentUpload reserves an object key under the item and returns a signed
// PUT URL. The client then creates the attachment with the key as its externalId.
func (s *Service) PresignAttachmentUpload(ctx context.Context, m authz.Membership, itemID int64, input UploadInput) (UploadDTO, error) {
	if s.blobs == nil {
		return UploadDTO{}, unavailable("OBJECT_STORE_DISABLED", "attachment uploads are not configured")
	}
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return UploadDTO{}, err
	}
	fileName := sanitize.Text(input.FileName)
	if fileName == "" {
		return UploadDTO{}, validationError("fileName", "fileName is required")
	}
	upload, err := s.blobs.PresignUpload(ctx, itemID, fileName)
	if err != nil {
		return UploadDTO{}, err
	}
	return UploadDTO{ObjectKey: upload.Key, UploadURL: upload.URL, ExpiresAt: upload.ExpiresAt}, nil
}

// AttachmentDownloadURL returns where the attachment can be fetched. Stored objects
// get a short lived signed URL; external links are returned as stored.
func (s *Service) AttachmentDownloadURL(ctx context.Context, m authz.Membership, itemID, attachmentID int64) (string, error) {
	if _, err := s.loadWorkItem(ctx, m, itemID, authz.RuleParticipant); err != nil {
		return "", err
	}
	attachment, err := s.store.GetAttachment(ctx, itemID, attachmentID)
	if err != nil {
		return "", translate(err, "attachment")
	}
	if s.blobs != nil && s.blobs.Owns(itemID, attachment.ExternalID) {
		return s.blobs.PresignDownload(ctx, attachment.ExternalID, attachment.Name)
	}
	return attachment.URL, nil
}
