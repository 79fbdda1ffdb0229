package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"workhub/api/internal/paging"
)

// workItemHandlers serves one work item collection. Discussions mount the same
// handlers over a service scoped to the Discussion type.
type workItemHandlers struct {
	service *Service
}

func (h workItemHandlers) routes(commentSegment string) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/search", h.search)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)

			r.Get("/participants", h.listParticipants)
			r.Post("/participants", h.addParticipant)
			r.Get("/participants/{participantId}", h.getParticipant)
			r.Delete("/participants/{participantId}", h.removeParticipant)

			r.Get("/"+commentSegment, h.listComments)
			r.Post("/"+commentSegment, h.createComment)
			r.Get("/"+commentSegment+"/{commentId}", h.getComment)
			r.Put("/"+commentSegment+"/{commentId}", h.updateComment)
			r.Delete("/"+commentSegment+"/{commentId}", h.deleteComment)

			r.Get("/attachments", h.listAttachments)
			r.Post("/attachments", h.createAttachment)
			r.Post("/attachments/uploads", h.presignUpload)
			r.Get("/attachments/{attachmentId}", h.getAttachment)
			r.Put("/attachments/{attachmentId}", h.updateAttachment)
			r.Delete("/attachments/{attachmentId}", h.deleteAttachment)
			r.Get("/attachments/{attachmentId}/download", h.downloadAttachment)

			r.Get("/relations", h.listRelations)
			r.Post("/relations", h.createRelation)
			r.Get("/relations/{relationId}", h.getRelation)
			r.Delete("/relations/{relationId}", h.deleteRelation)
		})
	}
}

// ids parses every named URL parameter, stopping at the first invalid one.
func ids(r *http.Request, names ...string) ([]int64, error) {
	out := make([]int64, len(names))
	for i, name := range names {
		id, err := parseID(r, name)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func writeBadBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

func (h workItemHandlers) list(w http.ResponseWriter, r *http.Request) {
	p, err := paging.ParseQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	page, err := h.service.ListWorkItems(r.Context(), membershipFrom(r.Context()), r.URL.Query().Get("type"), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h workItemHandlers) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	p, err := paging.ParseQuery(query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	page, err := h.service.SearchWorkItems(r.Context(), membershipFrom(r.Context()), query.Get("q"), query.Get("type"), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h workItemHandlers) create(w http.ResponseWriter, r *http.Request) {
	var input WorkItemInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	item, err := h.service.CreateWorkItem(r.Context(), membershipFrom(r.Context()), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h workItemHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	item, err := h.service.GetWorkItem(r.Context(), membershipFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h workItemHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input WorkItemInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	item, err := h.service.UpdateWorkItem(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h workItemHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteWorkItem(r.Context(), membershipFrom(r.Context()), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h workItemHandlers) listParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	participants, err := h.service.ListParticipants(r.Context(), membershipFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": participants})
}

func (h workItemHandlers) addParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input ParticipantInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	participant, err := h.service.AddParticipant(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

func (h workItemHandlers) getParticipant(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "participantId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	participant, err := h.service.GetParticipant(r.Context(), membershipFrom(r.Context()), params[0], params[1])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h workItemHandlers) removeParticipant(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "participantId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.RemoveParticipant(r.Context(), membershipFrom(r.Context()), params[0], params[1]); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h workItemHandlers) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := paging.ParseQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	page, err := h.service.ListComments(r.Context(), membershipFrom(r.Context()), id, p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h workItemHandlers) createComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input CommentInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	comment, err := h.service.CreateComment(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h workItemHandlers) getComment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "commentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	comment, err := h.service.GetComment(r.Context(), membershipFrom(r.Context()), params[0], params[1])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h workItemHandlers) updateComment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "commentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input CommentInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	comment, err := h.service.UpdateComment(r.Context(), membershipFrom(r.Context()), params[0], params[1], input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h workItemHandlers) deleteComment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "commentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteComment(r.Context(), membershipFrom(r.Context()), params[0], params[1]); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h workItemHandlers) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	attachments, err := h.service.ListAttachments(r.Context(), membershipFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": attachments})
}

func (h workItemHandlers) createAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input AttachmentInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	attachment, err := h.service.CreateAttachment(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

func (h workItemHandlers) presignUpload(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input UploadInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	upload, err := h.service.PresignAttachmentUpload(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

func (h workItemHandlers) getAttachment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "attachmentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	attachment, err := h.service.GetAttachment(r.Context(), membershipFrom(r.Context()), params[0], params[1])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

func (h workItemHandlers) updateAttachment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "attachmentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input AttachmentInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	attachment, err := h.service.UpdateAttachment(r.Context(), membershipFrom(r.Context()), params[0], params[1], input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

func (h workItemHandlers) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "attachmentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteAttachment(r.Context(), membershipFrom(r.Context()), params[0], params[1]); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadAttachment redirects to the stored object or external link.
func (h workItemHandlers) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "attachmentId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	target, err := h.service.AttachmentDownloadURL(r.Context(), membershipFrom(r.Context()), params[0], params[1])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusFound)
}

func (h workItemHandlers) listRelations(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	relations, err := h.service.ListRelations(r.Context(), membershipFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": relations})
}

func (h workItemHandlers) createRelation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input RelationInput
	if err := decodeBody(r, &input); err != nil {
		writeBadBody(w, err)
		return
	}
	relation, err := h.service.CreateRelation(r.Context(), membershipFrom(r.Context()), id, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, relation)
}

func (h workItemHandlers) getRelation(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "relationId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	relation, err := h.service.GetRelation(r.Context(), membershipFrom(r.Context()), params[0], params[1])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, relation)
}

func (h workItemHandlers) deleteRelation(w http.ResponseWriter, r *http.Request) {
	params, err := ids(r, "id", "relationId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.service.DeleteRelation(r.Context(), membershipFrom(r.Context()), params[0], params[1]); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
