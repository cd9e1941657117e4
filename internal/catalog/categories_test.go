package catalog

import (
	"strings"
	"testing"
)

func TestPlan_AllRespectsDependencies(t *testing.T) {
	plan, err := Plan("all")
	if err != nil {
		t.Fatalf("Plan(all) failed: %v", err)
	}
	if len(plan) != len(Registry) {
		t.Fatalf("plan has %d categories, want %d", len(plan), len(Registry))
	}

	pos := make(map[string]int, len(plan))
	for i, c := range plan {
		pos[c.Name] = i
	}
	for _, c := range plan {
		for _, dep := range c.DependsOn {
			if pos[dep] > pos[c.Name] {
				t.Errorf("%s scheduled before its dependency %s", c.Name, dep)
			}
		}
	}
}

func TestPlan_AllIsStable(t *testing.T) {
	first, err := Plan("")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	second, _ := Plan("all")
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("plan order changed between calls: %s vs %s", first[i].Name, second[i].Name)
		}
	}
	if first[0].Name != "factions" {
		t.Errorf("plan starts with %s, want factions", first[0].Name)
	}
	if first[len(first)-1].Name != "changelog" {
		t.Errorf("plan ends with %s, want changelog", first[len(first)-1].Name)
	}
}

func TestPlan_SingleTarget(t *testing.T) {
	plan, err := Plan("characters")
	if err != nil {
		t.Fatalf("Plan(characters): %v", err)
	}
	if len(plan) != 1 || plan[0].Name != "characters" {
		t.Fatalf("got %d categories, want just characters", len(plan))
	}
}

func TestPlan_UnknownTarget(t *testing.T) {
	_, err := Plan("dragons")
	if err == nil {
		t.Fatal("expected error for unknown target")
	}
	if !strings.Contains(err.Error(), "dragons") {
		t.Errorf("error should name the bad target: %v", err)
	}
}

func TestDocumentsFor_IncludesReadDependencies(t *testing.T) {
	plan, _ := Plan("characters")
	files := DocumentsFor(plan)

	want := []string{"characters.json", "factions.json", "subclasses.json"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}

func TestDocumentsFor_NoDuplicates(t *testing.T) {
	plan, _ := Plan("all")
	files := DocumentsFor(plan)

	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f] {
			t.Errorf("file %s appears twice", f)
		}
		seen[f] = true
	}
	if !seen["gear_sets.json"] {
		t.Error("gear_sets.json missing from full plan")
	}
	if len(files) != 17 {
		t.Errorf("full plan covers %d files, want 17", len(files))
	}
}

func TestDocuments_HandOrderedFilesHaveNoKey(t *testing.T) {
	byFile := make(map[string]Document)
	for _, d := range Documents() {
		byFile[d.File] = d
	}
	if len(byFile) != 17 {
		t.Fatalf("Documents lists %d files, want 17", len(byFile))
	}

	for _, f := range []string{"codes.json", "tier-lists.json", "teams.json", "changelog.json"} {
		if byFile[f].Key != nil {
			t.Errorf("%s should keep its hand-maintained order", f)
		}
	}
	for _, f := range []string{"characters.json", "gear_sets.json", "resources.json"} {
		if byFile[f].Key == nil {
			t.Errorf("%s should carry a sort key", f)
		}
	}
}

func TestDocumentByFile(t *testing.T) {
	doc, ok := DocumentByFile("codes")
	if !ok || doc.File != "codes.json" {
		t.Fatalf("DocumentByFile(codes) = %+v, %v", doc, ok)
	}
	if doc.Identity != "code" {
		t.Errorf("codes identity = %s, want code", doc.Identity)
	}

	if _, ok := DocumentByFile("characters.json"); !ok {
		t.Error("DocumentByFile should accept names with extension")
	}
	if _, ok := DocumentByFile("unknown.json"); ok {
		t.Error("DocumentByFile should reject unknown files")
	}
}

func TestByName(t *testing.T) {
	cat, ok := ByName("gear")
	if !ok {
		t.Fatal("gear category missing")
	}
	if cat.Table != "gear" || cat.File != "gear.json" {
		t.Errorf("gear category misconfigured: %+v", cat)
	}
	if _, ok := ByName("nope"); ok {
		t.Error("ByName should miss unknown categories")
	}
}
