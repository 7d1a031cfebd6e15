package commands_test

import (
	"strings"
	"testing"

	"taskctl/internal/commands"
)

func TestRegistry_AliasConflict(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.ListCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Register(&commands.RmCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := r.Register(&commands.ListCmd{})
	if err == nil || !strings.Contains(err.Error(), `"list"`) {
		t.Errorf("expected name conflict, got %v", err)
	}
}

func TestRegistry_FindByAlias(t *testing.T) {
	cmd, ok := commands.DefaultRegistry.Find("ls")
	if !ok || cmd.Name() != "list" {
		t.Errorf("expected ls to resolve to list, got %v %v", cmd, ok)
	}
}

func TestRegistry_AllUniqueSorted(t *testing.T) {
	all := commands.DefaultRegistry.All()
	seen := map[string]bool{}
	for i, c := range all {
		if seen[c.Name()] {
			t.Errorf("command %s listed twice", c.Name())
		}
		seen[c.Name()] = true
		if i > 0 && all[i-1].Name() >= c.Name() {
			t.Errorf("commands not sorted: %s before %s", all[i-1].Name(), c.Name())
		}
	}
	for _, name := range []string{"add", "list", "login", "logout", "whoami"} {
		if !seen[name] {
			t.Errorf("expected %s registered", name)
		}
	}
}
