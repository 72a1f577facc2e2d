package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

func TestPrinterLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Step("Getting token...")
	p.OK("%s: %s", "rm1", "id-1")
	p.Warn("%s not found", "rm3")
	p.Fail("No RM users found")

	assert.Equal(t, "▶ Getting token...\n✅ rm1: id-1\n⚠️  rm3 not found\n❌ No RM users found\n", buf.String())
}

func TestPrinterUsers(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Users([]entity.Resolution{{Username: "rm1", ID: "id-1"}, {Username: "rm2", ID: "id-2"}})

	out := buf.String()
	assert.Contains(t, out, strings.Repeat("=", 60)+"\nRM USER IDs FOR TESTING\n")
	assert.Contains(t, out, "rm1 | id-1")
	assert.Contains(t, out, "rm2 | id-2")
}

func TestPrinterSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Summary([]entity.SummaryRow{{Label: "rm1", Count: 10}, {Label: "Unassigned", Count: 5}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 4) {
		assert.Equal(t, "📊 Assignment Summary:", lines[0])
		assert.Contains(t, lines[1], "ASSIGNED TO")
		assert.Contains(t, lines[2], "rm1")
		assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "10"))
		assert.Contains(t, lines[3], "Unassigned")
	}
}

func TestPrinterComplete(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)

	p.Complete(&entity.Report{
		Batches: []entity.BatchResult{
			{Username: "rm1", ApplicationIDs: []string{"a", "b"}, Outcome: entity.OutcomeAssigned},
			{Username: "rm2", Outcome: entity.OutcomeFailed},
		},
		Warnings: []string{"rm2: Assignment may have failed"},
	})

	out := buf.String()
	assert.Contains(t, out, "✅ SETUP COMPLETE!")
	assert.Contains(t, out, "1. Login as rm1 → Should see 2 applications only")
	assert.Contains(t, out, "2. Login as rm2 → assignment failed, see warnings")
	assert.Contains(t, out, "⚠️  1 warning(s) during this run")
}

func TestPrinterCompleteDryRun(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Complete(&entity.Report{DryRun: true})
	assert.Contains(t, buf.String(), "DRY RUN COMPLETE")
	assert.NotContains(t, buf.String(), "Login as")
}
