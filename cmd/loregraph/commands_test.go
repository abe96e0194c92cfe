package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loregraph/internal/history"
	"loregraph/internal/services"
	"loregraph/internal/testsupport"
)

func TestErasGroupsLocations(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{
		Locations: `[
			{"id":"seoul","eraId":"joseon"},
			{"id":"gyeongju","eraId":"silla"},
			{"id":"hanyang","eraId":"joseon"},
			{"id":"nowhere"}
		]`,
	}, "")

	out, _, err := runCLI(t, []string{"eras"}, env.configPath)
	if err != nil {
		t.Fatalf("eras: %v", err)
	}
	want := "Era: joseon\n  - hanyang\n  - seoul\nEra: silla\n  - gyeongju\nEra: unknown\n  - nowhere\n"
	if out != want {
		t.Fatalf("unexpected eras output:\n%s", out)
	}
}

func TestMergeAppendsNewRecords(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{
		Characters: `[{"id":"c1","name":"Old"}]`,
	}, "")
	source := filepath.Join(env.baseDir, "generated.json")
	generated := `[{"id":"c1","name":"Replacement"},{"id":"c2","name":"New"},{"id":"c2","name":"Again"}]`
	if err := os.WriteFile(source, []byte(generated), 0o644); err != nil {
		t.Fatalf("write generated: %v", err)
	}

	out, _, err := runCLI(t, []string{"merge", source, "--collection", "characters"}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, out, "Added 1 records")

	var characters []map[string]string
	if err := json.Unmarshal([]byte(readData(t, env, "characters")), &characters); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	if len(characters) != 2 || characters[0]["name"] != "Old" || characters[1]["name"] != "New" {
		t.Fatalf("unexpected merge result %+v", characters)
	}

	out, _, err = runCLI(t, []string{"merge", source, "--collection", "characters"}, env.configPath)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	requireContains(t, out, "No new records")
}

func TestMergeRejectsRecordWithoutID(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{}, "")
	source := filepath.Join(env.baseDir, "generated.json")
	if err := os.WriteFile(source, []byte(`[{"name":"anonymous"}]`), 0o644); err != nil {
		t.Fatalf("write generated: %v", err)
	}

	_, _, err := runCLI(t, []string{"merge", source, "--collection", "encyclopedia"}, env.configPath)
	if !errors.Is(err, services.ErrMalformedRecord) {
		t.Fatalf("expected malformed record error, got %v", err)
	}
}

func TestMergeRejectsUnknownCollection(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{}, "")
	_, _, err := runCLI(t, []string{"merge", "x.json", "--collection", "weapons"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHistoryListsAndShowsRuns(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{
		Characters: `[{"id":"c2","relatedCharacterIds":["ghost_id"]}]`,
	}, "")

	if _, _, err := runCLI(t, []string{"fix"}, env.configPath); err != nil {
		t.Fatalf("fix: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].GapCount != 3 || runs[0].DryRun {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, runs[0].ID)

	out, _, err = runCLI(t, []string{"history", "show", runs[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "3 gaps found\nCharacter 'c2' references unknown character 'ghost_id'\n")

	_, _, err = runCLI(t, []string{"history", "show", "missing"}, env.configPath)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{}, "")
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{}, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.DataDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Reciprocal pairs: 2")
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.Dataset{}, "[aliases.locations]\na = \"b\"\nb = \"c\"\n")
	_, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "point directly at the final id") {
		t.Fatalf("expected alias chain rejection, got %v", err)
	}
}
