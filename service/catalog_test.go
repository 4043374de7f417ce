package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogResolvesEveryLabel(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
	for i, label := range c.Labels() {
		p, err := c.Resolve(i, 0.5)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if p.Label != label {
			t.Fatalf("index %d resolved to %q, want %q", i, p.Label, label)
		}
		want := defaultClasses[i]
		if p.Description != want.Description || p.Recommendation != want.Recommendation {
			t.Fatalf("metadata mismatch for %s: %+v", label, p)
		}
	}
}

func TestResolveOutOfRange(t *testing.T) {
	c := DefaultCatalog()
	for _, idx := range []int{-1, 3, 99} {
		if _, err := c.Resolve(idx, 1); err == nil {
			t.Fatalf("index %d: expected error", idx)
		}
	}
}

func TestNewCatalogValidation(t *testing.T) {
	info := DiseaseInfo{Description: "d", Recommendation: "r"}
	tests := []struct {
		name    string
		classes []Class
		wantErr string
	}{
		{"empty", nil, "no classes"},
		{"blank label", []Class{{Label: "", DiseaseInfo: info}}, "empty label"},
		{"duplicate", []Class{{Label: "a", DiseaseInfo: info}, {Label: "a", DiseaseInfo: info}}, "duplicate"},
		{"missing text", []Class{{Label: "a", DiseaseInfo: DiseaseInfo{Description: "d"}}}, "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.classes)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCatalogYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `classes:
  - label: Pepper___Bacterial_spot
    description: Maladie bactérienne.
    recommendation: Retirer les plants atteints.
  - label: Pepper___Healthy
    description: La plante est en bonne santé.
    recommendation: Aucune action nécessaire.
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := c.Labels(); len(got) != 2 || got[1] != "Pepper___Healthy" {
		t.Fatalf("labels = %v", got)
	}
	p, err := c.Resolve(0, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if p.Recommendation != "Retirer les plants atteints." {
		t.Fatalf("recommendation = %q", p.Recommendation)
	}
}
