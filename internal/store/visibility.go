package store

import (
	"fmt"
	"strconv"
	"strings"

	"workhub/api/internal/authz"
	"workhub/api/internal/lifecycle"
)

// argList collects positional arguments and hands out their $N placeholders. Both
// pgx and modernc sqlite bind $N by ordinal.
type argList struct {
	values []any
}

func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

func (a *argList) addIDs(ids []int64) string {
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = a.add(id)
	}
	return strings.Join(placeholders, ", ")
}

// visibleClause is the SQL form of authz.IsVisibleParticipant for the work item
// aliased as alias. A membership with no subjects matches nothing.
func visibleClause(alias string, m authz.Membership, args *argList) string {
	var order []authz.EntityType
	byType := map[authz.EntityType][]int64{}
	for _, subject := range m.Subjects() {
		if _, seen := byType[subject.Type]; !seen {
			order = append(order, subject.Type)
		}
		byType[subject.Type] = append(byType[subject.Type], subject.ID)
	}
	if len(order) == 0 {
		return "1 = 0"
	}

	conditions := make([]string, 0, len(order))
	for _, entityType := range order {
		conditions = append(conditions, fmt.Sprintf("(p.entity_type = %s AND p.entity_id IN (%s))",
			args.add(int(entityType)), args.addIDs(byType[entityType])))
	}
	return fmt.Sprintf(`EXISTS (
		SELECT 1 FROM participants p
		WHERE p.work_item_id = %s.id AND p.status <> %s AND (%s)
	)`, alias, args.add(int(lifecycle.StatusRemoved)), strings.Join(conditions, " OR "))
}
