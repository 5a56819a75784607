package outlets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

const mediaBiasJSON = `{
  "UCright": {"name": "Right Daily", "bias": "right"},
  "UCleft": {"name": "Left Times", "bias": "left"},
  "UCcenter": {"name": " Center Wire ", "bias": "Center"},
  "UCleft2": {"name": "Left Weekly", "bias": "left"}
}`

func TestLoadRegistryMediaBiasMapKeepsOrder(t *testing.T) {
	reg, err := LoadRegistry(writeFile(t, "media-bias.json", mediaBiasJSON))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	ids := reg.IDs()
	want := []string{"UCright", "UCleft", "UCcenter", "UCleft2"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %s want %s", i, ids[i], want[i])
		}
	}

	if b, ok := reg.Bias("UCcenter"); !ok || b != domain.BiasCenter {
		t.Fatalf("unexpected bias %q ok=%v", b, ok)
	}
	if name, ok := reg.Name("UCcenter"); !ok || name != "Center Wire" {
		t.Fatalf("unexpected name %q", name)
	}
	if _, ok := reg.Bias("UCunknown"); ok {
		t.Fatalf("unknown channel must not resolve")
	}
	if _, ok := reg.Name(""); ok {
		t.Fatalf("empty id must not resolve")
	}

	left := reg.OutletsByBias(domain.BiasLeft)
	if len(left) != 2 || left[0] != "UCleft" || left[1] != "UCleft2" {
		t.Fatalf("unexpected left outlets %v", left)
	}
	if got := reg.OutletsByBias(domain.BiasLeanRight); len(got) != 0 {
		t.Fatalf("expected no lean-right outlets, got %v", got)
	}
}

func TestLoadRegistryYAMLList(t *testing.T) {
	content := `
outlets:
  - id: UC1
    name: One
    bias: lean left
  - id: UC2
    name: Two
    bias: lean-right
`
	reg, err := LoadRegistry(writeFile(t, "outlets.yaml", content))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 outlets, got %d", reg.Len())
	}
	if b, _ := reg.Bias("UC1"); b != domain.BiasLeanLeft {
		t.Fatalf("unexpected bias %q", b)
	}
}

func TestLoadRegistryYAMLMap(t *testing.T) {
	content := `
UCb:
  name: B
  bias: right
UCa:
  name: A
  bias: left
`
	reg, err := LoadRegistry(writeFile(t, "outlets.yml", content))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if ids := reg.IDs(); len(ids) != 2 || ids[0] != "UCb" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestLoadRegistryRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"bad bias":   `{"UC1": {"name": "One", "bias": "sideways"}}`,
		"no name":    `{"UC1": {"name": "", "bias": "left"}}`,
		"duplicate":  `{"outlets": [{"id": "UC1", "name": "a", "bias": "left"}, {"id": "UC1", "name": "b", "bias": "left"}]}`,
		"empty":      `{}`,
		"not object": `[1, 2]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRegistry(writeFile(t, "outlets.json", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := LoadRegistry("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestNewRegistryAndNilSafety(t *testing.T) {
	reg, err := NewRegistry([]domain.Outlet{{ChannelID: "UC1", Name: "One", Bias: domain.BiasRight}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if o, ok := reg.Outlet("UC1"); !ok || o.Bias != domain.BiasRight {
		t.Fatalf("unexpected outlet %#v", o)
	}

	var nilReg *Registry
	if nilReg.Len() != 0 || nilReg.All() != nil {
		t.Fatalf("nil registry should be empty")
	}
	if _, ok := nilReg.Bias("UC1"); ok {
		t.Fatalf("nil registry should not resolve")
	}
}
