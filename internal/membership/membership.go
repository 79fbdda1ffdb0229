// Package membership builds the caller's authz.Membership from request headers.
package membership

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"workhub/api/internal/authz"
	"workhub/api/internal/directory"
)

const (
	HeaderUserID         = "UserId"
	HeaderGroupID        = "GroupId"
	HeaderOrganizationID = "OrganizationId"
)

var (
	ErrUnauthenticated = errors.New("no user id on request")
	ErrInvalidHeader   = errors.New("invalid membership header")
)

// HeaderError names the header and value that failed to parse.
type HeaderError struct {
	Header string
	Value  string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("header %s: %q is not a positive integer", e.Header, e.Value)
}

func (e *HeaderError) Unwrap() error {
	return ErrInvalidHeader
}

// Source selects where group and organization ids come from.
type Source string

const (
	SourceHeaders   Source = "headers"
	SourceUserOnly  Source = "user-only"
	SourceDirectory Source = "directory"
)

func ParseSource(value string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(value))) {
	case "", SourceHeaders:
		return SourceHeaders, nil
	case SourceUserOnly:
		return SourceUserOnly, nil
	case SourceDirectory:
		return SourceDirectory, nil
	default:
		return "", fmt.Errorf("unknown membership source %q", value)
	}
}

// Directory looks up stored group and organization ids for a user.
type Directory interface {
	Lookup(ctx context.Context, userID int64) (directory.Entry, error)
}

type Resolver struct {
	Source        Source
	DefaultUserID int64
	Directory     Directory
}

// Resolve builds the membership for one request. A missing UserId falls back to
// DefaultUserID; when that is zero the request is unauthenticated.
func (r Resolver) Resolve(ctx context.Context, header http.Header) (authz.Membership, error) {
	m, err := FromHeaders(header)
	if err != nil {
		return authz.Membership{}, err
	}
	if m.UserID == 0 {
		if r.DefaultUserID <= 0 {
			return authz.Membership{}, ErrUnauthenticated
		}
		m.UserID = r.DefaultUserID
	}

	switch r.Source {
	case SourceUserOnly:
		m.GroupIDs = nil
		m.OrganizationIDs = nil
	case SourceDirectory:
		m.GroupIDs = nil
		m.OrganizationIDs = nil
		if r.Directory == nil {
			return m, nil
		}
		entry, err := r.Directory.Lookup(ctx, m.UserID)
		if errors.Is(err, directory.ErrNotFound) {
			return m, nil
		}
		if err != nil {
			return authz.Membership{}, fmt.Errorf("resolve membership: %w", err)
		}
		m.GroupIDs = entry.GroupIDs
		m.OrganizationIDs = entry.OrganizationIDs
	}
	return m, nil
}

// FromHeaders parses UserId, GroupId and OrganizationId. Group and organization headers
// may repeat and may hold comma separated lists. UserId is zero when absent.
func FromHeaders(header http.Header) (authz.Membership, error) {
	var m authz.Membership

	users, err := parseIDs(header, HeaderUserID)
	if err != nil {
		return authz.Membership{}, err
	}
	switch len(users) {
	case 0:
	case 1:
		m.UserID = users[0]
	default:
		return authz.Membership{}, &HeaderError{Header: HeaderUserID, Value: strings.Join(header.Values(HeaderUserID), ",")}
	}

	if m.GroupIDs, err = parseIDs(header, HeaderGroupID); err != nil {
		return authz.Membership{}, err
	}
	if m.OrganizationIDs, err = parseIDs(header, HeaderOrganizationID); err != nil {
		return authz.Membership{}, err
	}
	return m, nil
}

func parseIDs(header http.Header, name string) ([]int64, error) {
	var ids []int64
	for _, value := range header.Values(name) {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, &HeaderError{Header: name, Value: part}
			}
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
