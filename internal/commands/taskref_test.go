package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"taskctl/internal/service"
	"taskctl/internal/testutil"
)

func TestParseTaskRef_Number(t *testing.T) {
	ref, err := ParseTaskRef("5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Num != 5 || ref.ID != "" {
		t.Errorf("expected number 5, got %+v", ref)
	}
}

func TestParseTaskRef_LiteralID(t *testing.T) {
	ref, err := ParseTaskRef("3f2b-uuid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "3f2b-uuid" || ref.Num != 0 {
		t.Errorf("expected literal id, got %+v", ref)
	}
}

func TestParseTaskRef_Errors(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"", "task reference required"},
		{"   ", "task reference required"},
		{"0", "task number out of range: 0"},
		{"000", "task number out of range: 0"},
		{"99999999999999999999", "invalid task reference: 99999999999999999999"},
	}
	for _, tt := range tests {
		_, err := ParseTaskRef(tt.arg)
		if err == nil {
			t.Errorf("ParseTaskRef(%q): expected error", tt.arg)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("ParseTaskRef(%q): expected %q, got %q", tt.arg, tt.want, err.Error())
		}
	}
}

func TestParseTaskRef_NonASCIIDigitsAreIDs(t *testing.T) {
	// Arabic-Indic digits are not positions
	ref, err := ParseTaskRef("٣")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.ID != "٣" {
		t.Errorf("expected literal id, got %+v", ref)
	}
}

func TestParseTaskRefs_DropsDuplicates(t *testing.T) {
	refs, err := ParseTaskRefs([]string{"2", "abc", "2", "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []TaskRef{{Num: 2}, {ID: "abc"}, {Num: 1}}
	if len(refs) != len(want) {
		t.Fatalf("expected %v, got %v", want, refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("ref %d: expected %v, got %v", i, want[i], refs[i])
		}
	}
}

func TestParseTaskRefs_Empty(t *testing.T) {
	if _, err := ParseTaskRefs(nil); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}

func TestTaskResolver_Pages(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SignIn("alice")
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		ids = append(ids, svc.AddTask(title, service.StatusToDo))
	}

	r := newTaskResolver(svc, 2)
	got, err := r.resolveAll(context.Background(), []TaskRef{{Num: 3}, {Num: 1}, {ID: "literal"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{ids[2], ids[0], "literal"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ref %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if len(r.pages) != 2 {
		t.Errorf("expected 2 cached pages, got %d", len(r.pages))
	}
	if svc.LastFilter.Skip != 0 || svc.LastFilter.Limit != 2 {
		t.Errorf("unexpected last page %+v", svc.LastFilter.Page)
	}
}

func TestTaskResolver_OutOfRange(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SignIn("alice")
	svc.AddTask("only", service.StatusToDo)

	_, err := newTaskResolver(svc, 100).resolve(context.Background(), TaskRef{Num: 2})
	var rerr *refError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected refError, got %v", err)
	}
	if rerr.Error() != "task number out of range: 2" {
		t.Errorf("unexpected message %q", rerr.Error())
	}
}

func TestReport_Codes(t *testing.T) {
	var buf bytes.Buffer
	if code := report(&buf, ErrTaskRefRequired); code != 1 {
		t.Errorf("expected 1, got %d", code)
	}
	if buf.String() != "error: task reference required\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
