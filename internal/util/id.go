package util

import (
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeErr  error
)

// InitRequestIDs sets the snowflake node used by NewRequestID. Only the first call has
// an effect.
func InitRequestIDs(nodeID int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return nodeErr
}

// NewRequestID returns a time ordered id, initialising node 0 when InitRequestIDs was
// never called.
func NewRequestID() string {
	if err := InitRequestIDs(0); err != nil || node == nil {
		return uuid.NewString()
	}
	return node.Generate().String()
}

// NewObjectKey returns the blob key for an attachment of a work item:
// "workitems/<id>/<uuid>/<file name>".
func NewObjectKey(workItemID int64, fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return path.Join("workitems", strconv.FormatInt(workItemID, 10), uuid.NewString(), name)
}

// ObjectKeyPrefix is the key prefix under which all blobs of a work item live.
func ObjectKeyPrefix(workItemID int64) string {
	return "workitems/" + strconv.FormatInt(workItemID, 10) + "/"
}
