package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const testOptions = `branches: [A, B]
branch_city_map:
  A: [X, Y]
  B: [Y, Z]
branch_state_map:
  A: [S1]
  B: [S2]
brand_hierarchy:
  - {brand: BrandX, section: Sec1, product: P1, model: M1, item: I1}
  - {brand: BrandY, section: Sec2, product: P3, model: M2, item: I3}
`

func run(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.yaml")
	if err := os.WriteFile(path, []byte(testOptions), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append(args, "--options", path))
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	return got, nil
}

func TestAllowedPrunesSelections(t *testing.T) {
	got, err := run(t, "allowed", "--state", "S1", "--city", "Y,Z", "--item", "I3", "--brand", "BrandX")
	if err != nil {
		t.Fatal(err)
	}
	pruned, ok := got["pruned"].(map[string]any)
	if !ok {
		t.Fatalf("expected pruned values, got %v", got)
	}
	if city := pruned["city"].([]any); len(city) != 1 || city[0] != "Z" {
		t.Errorf("expected Z pruned from city, got %v", pruned["city"])
	}
	if item := pruned["item"].([]any); len(item) != 1 || item[0] != "I3" {
		t.Errorf("expected I3 pruned from item, got %v", pruned["item"])
	}
	if got["converged"] != true {
		t.Errorf("expected convergence, got %v", got["converged"])
	}
}

func TestCriteriaCommand(t *testing.T) {
	got, err := run(t, "criteria", "--name", "Diwali", "--start", "2025-10-01", "--end", "2025-10-31", "--branch", "A")
	if err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Diwali" || got["based_on"] != "Customer Base" {
		t.Errorf("unexpected payload %v", got)
	}
	if branch := got["branch"].([]any); len(branch) != 1 || branch[0] != "A" {
		t.Errorf("unexpected branch %v", got["branch"])
	}

	got, err = run(t, "criteria", "--name", "Upload", "--start", "2025-10-01", "--end", "2025-10-31", "--mode", "upload")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["branch"]; ok {
		t.Errorf("upload payload should not carry filters: %v", got)
	}
}

func TestCriteriaValidationExitCode(t *testing.T) {
	_, err := run(t, "criteria", "--branch", "A")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := exitCode(err); code != exitInvalid {
		t.Errorf("expected exit code %d, got %d", exitInvalid, code)
	}
}
