package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiagodcc/ikts/internal/application"
	testutil "github.com/tiagodcc/ikts/pkg/testing"
)

const inventoryDoc = `{
  "version": 1,
  "kind": "inventory",
  "rails": [
    {"id": "a", "length": 2000, "width": 40, "thickness": 5, "isRemainder": false},
    {"id": "b", "length": 450, "width": 40, "thickness": 5, "isRemainder": true, "originalRailId": "a"},
    {"id": "c", "length": 3000, "width": 30, "thickness": 3, "isRemainder": false}
  ]
}`

const planDoc = `{
  "version": 1,
  "kind": "plan",
  "plan": {
    "name": "Workbench",
    "requiredPieces": [
      {"length": 400, "quantity": 1, "purpose": "brace", "railType": {"width": 40, "thickness": 5}},
      {"length": 1500, "quantity": 1, "purpose": "leg", "railType": {"width": 40, "thickness": 5}},
      {"length": 8000, "quantity": 1, "purpose": "beam", "railType": {"width": 30, "thickness": 3}}
    ]
  }
}`

type harness struct {
	t       *testing.T
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, dataDir: t.TempDir()}
}

// run executes railctl against the harness data directory
func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(append([]string{"--data-dir", h.dataDir}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run(args...)
	require.NoError(h.t, err, errOut)
	return out
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	return testutil.WriteFile(h.t, h.t.TempDir(), name, content)
}

func (h *harness) importPlan() application.PlanDTO {
	h.t.Helper()
	out := h.mustRun("--json", "import", "plan", h.writeFile("plan.json", planDoc))
	var result application.ImportResultDTO
	require.NoError(h.t, json.Unmarshal([]byte(out), &result))
	require.NotNil(h.t, result.Plan)
	return *result.Plan
}

func TestRailsList_Empty(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("rails", "list"), "No rails in stock.")
}

func TestImportInventory_ThenList(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("import", "inventory", h.writeFile("inventory.json", inventoryDoc))
	assert.Contains(t, out, "imported 3 rails")

	out = h.mustRun("rails", "list")
	assert.Contains(t, out, "Rails: 2 full length, 1 remainders, 5450 mm total")
	assert.Contains(t, out, "remainder (box 1)")
	assert.NotContains(t, out, "\x1b[")

	out = h.mustRun("--json", "rails", "list", "--width", "30")
	var summary application.InventorySummaryDTO
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Rails, 1)
	assert.Equal(t, 3000, summary.Rails[0].Length)
}

func TestImportInventory_Replace(t *testing.T) {
	h := newHarness(t)
	path := h.writeFile("inventory.json", inventoryDoc)

	h.mustRun("import", "inventory", path)
	h.mustRun("import", "inventory", path)
	h.mustRun("import", "inventory", "--replace", path)

	out := h.mustRun("--json", "rails", "list")
	var summary application.InventorySummaryDTO
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Len(t, summary.Rails, 3)
}

func TestImport_RejectsInvalidDocuments(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("import", "plan", h.writeFile("bad.json", `{"version":2,"kind":"plan"}`))
	assert.Error(t, err)

	_, _, err = h.run("import", "inventory", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPlansListAndPreview(t *testing.T) {
	h := newHarness(t)
	h.mustRun("import", "inventory", h.writeFile("inventory.json", inventoryDoc))
	plan := h.importPlan()

	out := h.mustRun("plans", "list")
	assert.Contains(t, out, "Workbench")
	assert.Contains(t, out, "(3 pieces)")

	out = h.mustRun("preview", plan.ID)
	assert.Contains(t, out, "Material plan for Workbench")
	assert.Contains(t, out, "Cannot be cut from any standard length:")
	assert.Contains(t, out, "8000 mm")

	out = h.mustRun("--json", "preview", plan.ID)
	var mp application.MaterialPlanDTO
	require.NoError(t, json.Unmarshal([]byte(out), &mp))
	assert.Len(t, mp.Suggestions, 2)
	assert.Equal(t, 0, mp.NewRailsNeeded)
	require.Len(t, mp.Unallocated, 1)

	// previews never touch the pool
	out = h.mustRun("--json", "rails", "list")
	var summary application.InventorySummaryDTO
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 5450, summary.TotalLength)

	_, _, err := h.run("preview", "missing")
	assert.Error(t, err)
}

func TestExport_RoundTrip(t *testing.T) {
	h := newHarness(t)
	h.mustRun("import", "inventory", h.writeFile("inventory.json", inventoryDoc))
	plan := h.importPlan()

	out := h.mustRun("export", "plan", plan.ID)
	assert.Contains(t, out, `"kind": "plan"`)

	target := filepath.Join(t.TempDir(), "inventory-out.json")
	_, errOut, err := h.run("export", "inventory", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, errOut, "wrote "+target)

	other := newHarness(t)
	assert.Contains(t, other.mustRun("import", "inventory", target), "imported 3 rails")
}

func TestUnknownSubcommand(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("rails")
	assert.ErrorContains(t, err, "requires a subcommand")
}
