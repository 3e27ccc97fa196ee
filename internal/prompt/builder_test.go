package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triago/internal/analysis"
	"triago/internal/models"
)

func testBatch() models.Batch {
	return models.Batch{
		Index: 0,
		Tickets: []models.Ticket{
			{
				ID:      "T-100",
				Columns: []string{"subject", "body"},
				Fields:  map[string]string{"subject": "Email down", "body": "Cannot send or receive mail since 9am."},
			},
			{
				ID:      "T-101",
				Columns: []string{"subject", "body"},
				Fields:  map[string]string{"subject": "VPN drops", "body": "Connection drops every 5 minutes."},
			},
		},
	}
}

func testDefs(t *testing.T, keys ...string) []analysis.Definition {
	t.Helper()
	defs, err := analysis.ParseList(keys)
	require.NoError(t, err)
	return defs
}

func TestBuildEmbedsTicketIdentifiers(t *testing.T) {
	defs := testDefs(t, "extract_product")
	out := Build(testBatch(), defs, false)

	assert.Contains(t, out, "Ticket 1 (ID: T-100):")
	assert.Contains(t, out, "Ticket 2 (ID: T-101):")
	assert.Contains(t, out, "covering the ticket IDs: T-100, T-101.")
}

func TestBuildRendersSelectedFields(t *testing.T) {
	defs := testDefs(t, "summarize_ticket")
	out := Build(testBatch(), defs, false)

	assert.Contains(t, out, "subject: Email down")
	assert.Contains(t, out, "body: Connection drops every 5 minutes.")
}

func TestBuildNumbersInstructions(t *testing.T) {
	defs := testDefs(t, "extract_product", "sentiment_analysis")
	out := Build(testBatch(), defs, false)

	assert.Contains(t, out, "1. "+defs[0].Instruction)
	assert.Contains(t, out, "2. "+defs[1].Instruction)
	assert.Contains(t, out, "respond with 'N/A' for that specific analysis")
}

func TestBuildFormatKeys(t *testing.T) {
	defs := testDefs(t, "extract_product", "ticket_quality")

	plain := Build(testBatch(), defs, false)
	assert.Contains(t, plain, `"ticket_id": "<ticket_id>"`)
	assert.Contains(t, plain, `"extract_product": "<your_analysis>"`)
	assert.Contains(t, plain, `"ticket_quality": "<your_analysis>"`)
	assert.NotContains(t, plain, "_explanation")

	withExpl := Build(testBatch(), defs, true)
	assert.Contains(t, withExpl, `"extract_product_explanation": "<brief_explanation>"`)
	assert.Contains(t, withExpl, `"ticket_quality_explanation": "<brief_explanation>"`)
}

func TestBuildIsDeterministic(t *testing.T) {
	defs := testDefs(t, "extract_product", "urgency_perception")
	batch := testBatch()

	first := Build(batch, defs, true)
	second := Build(batch, defs, true)
	assert.Equal(t, first, second)
}

func TestBuildEmptyColumns(t *testing.T) {
	batch := models.Batch{Tickets: []models.Ticket{{ID: "T-7"}}}
	out := Build(batch, testDefs(t, "extract_product"), false)

	assert.Contains(t, out, "Ticket 1 (ID: T-7):")
	assert.Contains(t, out, "No information available for the selected columns.")
}

func TestSystemMessageMentionsJSON(t *testing.T) {
	assert.Contains(t, System(), "json format")
}
