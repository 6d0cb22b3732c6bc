package docsync

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTarget is returned when a sync target lacks a project or space.
var ErrInvalidTarget = errors.New("invalid sync target")

// ErrWrongIssueType is returned when a single-issue sync is given a key of
// another issue type, e.g. a story key for an epic sync.
var ErrWrongIssueType = errors.New("wrong issue type")

// ConflictError means more than one page in the space carries the title, so
// the upsert cannot tell which one to update. Nothing was written.
type ConflictError struct {
	Space   string
	Title   string
	PageIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d pages titled %q in space %s (ids %s); rename or delete the duplicates",
		len(e.PageIDs), e.Title, e.Space, strings.Join(e.PageIDs, ", "))
}
