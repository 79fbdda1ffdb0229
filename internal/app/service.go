package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workhub/api/internal/authz"
	"workhub/api/internal/config"
	"workhub/api/internal/directory"
	"workhub/api/internal/lifecycle"
	"workhub/api/internal/objectstore"
	"workhub/api/internal/paging"
	"workhub/api/internal/search"
	"workhub/api/internal/store"
)

type dataStore interface {
	CreateWorkItem(context.Context, store.WorkItem) (store.WorkItem, error)
	GetWorkItem(context.Context, int64) (store.WorkItem, error)
	UpdateWorkItem(context.Context, store.WorkItem) (store.WorkItem, error)
	RemoveWorkItem(context.Context, int64, time.Time) error
	ListWorkItems(context.Context, authz.Membership, store.WorkItemFilter, paging.Params) ([]store.WorkItem, int, error)
	GetWorkItemsByIDs(context.Context, authz.Membership, []int64) (map[int64]store.WorkItem, error)

	CreateParticipant(context.Context, store.Participant) (store.Participant, error)
	GetParticipant(context.Context, int64, int64) (store.Participant, error)
	ListParticipants(context.Context, int64) ([]store.Participant, error)
	ListSubjects(context.Context, int64) ([]authz.Subject, error)
	RemoveParticipant(context.Context, int64, time.Time) error
	Snapshot(context.Context) ([]store.WorkItem, map[int64][]authz.Subject, error)

	CreateComment(context.Context, store.Comment) (store.Comment, error)
	GetComment(context.Context, int64, int64) (store.Comment, error)
	UpdateComment(context.Context, store.Comment) (store.Comment, error)
	RemoveComment(context.Context, int64, time.Time) error
	ListComments(context.Context, int64, paging.Params) ([]store.Comment, int, error)

	CreateAttachment(context.Context, store.Attachment) (store.Attachment, error)
	GetAttachment(context.Context, int64, int64) (store.Attachment, error)
	UpdateAttachment(context.Context, store.Attachment) (store.Attachment, error)
	RemoveAttachment(context.Context, int64, time.Time) error
	ListAttachments(context.Context, int64) ([]store.Attachment, error)

	CreateRelation(context.Context, store.Relation) (store.Relation, error)
	GetRelation(context.Context, int64, int64) (store.Relation, error)
	ListRelations(context.Context, int64) ([]store.Relation, error)
	RemoveRelation(context.Context, int64, time.Time) error

	Ping(ctx context.Context) error
}

type searchIndex interface {
	Search(context.Context, search.Query) (search.Response, error)
	EngineHealthy() bool
	IndexWorkItem(search.Record)
	DeleteWorkItem(int64)
	ReindexAll([]search.Record)
}

type blobStore interface {
	PresignUpload(ctx context.Context, workItemID int64, fileName string) (objectstore.Upload, error)
	PresignDownload(ctx context.Context, key, fileName string) (string, error)
	ObjectURL(key string) string
	Owns(workItemID int64, key string) bool
	Ping(ctx context.Context) error
}

type membershipDirectory interface {
	Save(context.Context, directory.Entry) (directory.Entry, error)
	Lookup(context.Context, int64) (directory.Entry, error)
	Delete(context.Context, int64) error
	Ping(context.Context) error
}

// Service holds the work item rules. Every method takes the caller's membership as a
// value; there is no anonymous path through the service.
type Service struct {
	cfg       config.Config
	store     dataStore
	search    searchIndex
	blobs     blobStore
	directory membershipDirectory
	limits    paging.Limits
	now       func() time.Time

	// scope pins every work item operation to one type; zero means any type.
	scope store.WorkItemType
}

// New wires the service. searchService, blobs and dir may be nil; search then falls
// back to SQL and the attachment upload and membership endpoints answer 503.
func New(cfg config.Config, dataStore *store.SQLStore, searchService *search.Service, blobs *objectstore.Store, dir *directory.RedisStore) *Service {
	s := &Service{
		cfg:    cfg,
		store:  dataStore,
		limits: paging.DefaultLimits(),
		now:    time.Now,
	}
	if cfg.Paging.DefaultSize > 0 {
		s.limits.DefaultSize = cfg.Paging.DefaultSize
	}
	if cfg.Paging.MaxSize > 0 {
		s.limits.MaxSize = cfg.Paging.MaxSize
	}
	if searchService == nil {
		searchService = search.NewService(nil, search.NewSQLSearcher(dataStore))
	}
	s.search = searchService
	if blobs != nil {
		s.blobs = blobs
	}
	if dir != nil {
		s.directory = dir
	}
	return s
}

// Scoped returns a copy of the service that only sees work items of type t.
func (s *Service) Scoped(t store.WorkItemType) *Service {
	scoped := *s
	scoped.scope = t
	return &scoped
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) pageParams(p paging.Params) paging.Params {
	return s.limits.Normalize(p)
}

// workItemAccess is a loaded work item with the subjects that may see it.
type workItemAccess struct {
	item     store.WorkItem
	subjects []authz.Subject
}

func (a workItemAccess) resource() authz.Resource {
	return authz.Resource{OwnerID: a.item.OwnerID, Participants: a.subjects}
}

// loadWorkItem fetches an active work item and checks rule against it. Missing items
// (including those of another type in a scoped service) are NOT_FOUND before any
// permission check runs.
func (s *Service) loadWorkItem(ctx context.Context, m authz.Membership, id int64, rule authz.Rule) (workItemAccess, error) {
	item, err := s.store.GetWorkItem(ctx, id)
	if err != nil {
		return workItemAccess{}, translate(err, s.itemNoun())
	}
	if !lifecycle.Active(item.Status) || (s.scope != store.WorkItemTypeDefault && item.Type != s.scope) {
		return workItemAccess{}, notFound(s.itemNoun())
	}
	subjects, err := s.store.ListSubjects(ctx, id)
	if err != nil {
		return workItemAccess{}, err
	}
	access := workItemAccess{item: item, subjects: subjects}
	if !authz.Allows(authz.RuleParticipant, access.resource(), m) {
		return workItemAccess{}, forbidden("not a participant of this " + s.itemNoun())
	}
	if rule == authz.RuleOwner && !authz.Allows(authz.RuleOwner, access.resource(), m) {
		return workItemAccess{}, forbidden("only the owner can do this")
	}
	return access, nil
}

func (s *Service) itemNoun() string {
	if s.scope == store.WorkItemTypeDiscussion {
		return "discussion"
	}
	return "work item"
}

func lifecycleStatus(item store.WorkItem, now time.Time) string {
	return lifecycle.Effective(item.Status, item.ClosedAt, now).String()
}

// requireOwner checks the owner rule for a child entity after the item itself has
// passed the participant rule.
func requireOwner(ownerID int64, m authz.Membership, what string) error {
	if !authz.IsOwner(ownerID, m) {
		return forbidden("only the author can change this " + what)
	}
	return nil
}

// reindex pushes the current item and its subjects to the search index.
func (s *Service) reindex(ctx context.Context, itemID int64) {
	item, err := s.store.GetWorkItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		s.search.DeleteWorkItem(itemID)
		return
	}
	if err != nil {
		return
	}
	subjects, err := s.store.ListSubjects(ctx, itemID)
	if err != nil {
		return
	}
	s.search.IndexWorkItem(search.RecordFor(item, subjects))
}

// ReindexSearch rebuilds the search index from the database. It is a no-op when no
// engine is configured.
func (s *Service) ReindexSearch(ctx context.Context) error {
	if !s.search.EngineHealthy() {
		return nil
	}
	items, subjects, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reindex search: %w", err)
	}
	records := make([]search.Record, len(items))
	for i, item := range items {
		records[i] = search.RecordFor(item, subjects[item.ID])
	}
	s.search.ReindexAll(records)
	return nil
}

// CheckStatus is one dependency's entry in the readiness report.
type CheckStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Readiness pings every configured dependency. Only the database is required for the
// service to be ready.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]CheckStatus) {
	checks := map[string]CheckStatus{}
	ready := true

	if err := s.store.Ping(ctx); err != nil {
		ready = false
		checks["database"] = CheckStatus{Status: "error", Error: err.Error()}
	} else {
		checks["database"] = CheckStatus{Status: "ok"}
	}

	if s.directory != nil {
		if err := s.directory.Ping(ctx); err != nil {
			checks["redis"] = CheckStatus{Status: "error", Error: err.Error()}
		} else {
			checks["redis"] = CheckStatus{Status: "ok"}
		}
	} else {
		checks["redis"] = CheckStatus{Status: "disabled"}
	}

	if s.search.EngineHealthy() {
		checks["search"] = CheckStatus{Status: "ok"}
	} else {
		checks["search"] = CheckStatus{Status: "sql-fallback"}
	}

	if s.blobs != nil {
		if err := s.blobs.Ping(ctx); err != nil {
			checks["objectStore"] = CheckStatus{Status: "error", Error: err.Error()}
		} else {
			checks["objectStore"] = CheckStatus{Status: "ok"}
		}
	} else {
		checks["objectStore"] = CheckStatus{Status: "disabled"}
	}

	return ready, checks
}
