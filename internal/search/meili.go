package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxWorkItems = "workhub_work_items"

// Meili implements Engine via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the index. An unreachable server
// is not an error; the health loop picks it up when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		zap.L().Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxWorkItems,
		PrimaryKey: "id",
	}); err != nil {
		zap.L().Debug("create index (may already exist)", zap.String("index", idxWorkItems), zap.Error(err))
	}

	index := m.client.Index(idxWorkItems)
	filterable := []interface{}{"subjects", "type", "ownerId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		zap.L().Warn("update filterable attributes", zap.String("index", idxWorkItems), zap.Error(err))
	}
	searchable := []string{"title", "summary", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		zap.L().Warn("update searchable attributes", zap.String("index", idxWorkItems), zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				zap.L().Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	filters := []string{membershipFilter(q)}
	if q.Type != "" {
		filters = append(filters, fmt.Sprintf("type = %q", q.Type))
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID:              idxWorkItems,
			Query:                 q.Text,
			Limit:                 int64(q.Page.Size),
			Offset:                int64(q.Page.Offset()),
			Filter:                filters,
			AttributesToHighlight: []string{"title", "summary"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			if r, ok := hitToResult(hit); ok {
				results = append(results, r)
			}
		}
	}
	return results, total, nil
}

// membershipFilter renders authz.IsVisibleParticipant against the indexed subjects.
func membershipFilter(q Query) string {
	keys := q.Membership.SubjectKeys()
	if len(keys) == 0 {
		return `subjects IN ["none:0"]`
	}
	quoted := make([]string, len(keys))
	for i, key := range keys {
		quoted[i] = strconv.Quote(key)
	}
	return "subjects IN [" + strings.Join(quoted, ", ") + "]"
}

func hitToResult(hit meili.Hit) (Result, bool) {
	id, ok := decodeInt64(hit, "id")
	if !ok {
		return Result{}, false
	}
	return Result{
		WorkItemID: id,
		Type:       decodeString(hit, "type"),
		Title:      firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet:    firstNonBlank(decodeFormattedString(hit, "summary"), decodeString(hit, "summary")),
	}, true
}

func decodeInt64(hit meili.Hit, key string) (int64, bool) {
	raw, ok := hit[key]
	if !ok {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(formatted[key], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexWorkItems adds or replaces records in the index.
func (m *Meili) IndexWorkItems(records []Record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxWorkItems).AddDocuments(records, nil)
	return err
}

func (m *Meili) DeleteWorkItem(id int64) error {
	_, err := m.client.Index(idxWorkItems).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}
