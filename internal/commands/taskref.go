package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TaskRef is a parsed task reference: either a 1-based position in the
// unfiltered task listing or a literal task identifier.
type TaskRef struct {
	Num int    // 1-based position; 0 when ID is set
	ID  string // literal identifier
}

func (r TaskRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return strconv.Itoa(r.Num)
}

// refError is a reference that cannot be resolved to a task.
type refError struct {
	msg string
}

func (e *refError) Error() string { return e.msg }

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired error = &refError{"task reference required"}

// ParseTaskRef parses one task reference.
//
// Parsing rules:
// 1. Empty or whitespace → ErrTaskRefRequired
// 2. All digits → position; zero is out of range
// 3. Anything else → literal identifier
func ParseTaskRef(arg string) (TaskRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if !isAllDigits(arg) {
		return TaskRef{ID: arg}, nil
	}
	num, err := strconv.Atoi(arg)
	if err != nil {
		return TaskRef{}, &refError{fmt.Sprintf("invalid task reference: %s", arg)}
	}
	if num < 1 {
		return TaskRef{}, &refError{fmt.Sprintf("task number out of range: %d", num)}
	}
	return TaskRef{Num: num}, nil
}

// ParseTaskRefs parses every argument as a task reference.
// Duplicate references are dropped, keeping the first occurrence.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	seen := make(map[TaskRef]bool, len(args))
	refs := make([]TaskRef, 0, len(args))
	for _, a := range args {
		ref, err := ParseTaskRef(a)
		if err != nil {
			return nil, err
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
