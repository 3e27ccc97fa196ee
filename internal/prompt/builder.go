// Package prompt renders model prompts for ticket batches. Build is a pure
// function of the batch and the requested analysis types; the response
// parser relies on the JSON structure instructed here.
package prompt

import (
	"fmt"
	"strings"

	"triago/internal/analysis"
	"triago/internal/models"
)

const systemMessage = "You are a helpful assistant that analyzes help desk tickets and always responds in the proper json format."

// System returns the fixed system message sent with every request.
func System() string { return systemMessage }

// Build renders the user prompt for one batch: every ticket with its
// identifier and selected fields, the numbered instructions for the
// requested analysis types, and the JSON array format the response parser
// expects back.
func Build(batch models.Batch, defs []analysis.Definition, explanations bool) string {
	var b strings.Builder

	b.WriteString("IMPORTANT: Analyze the following help desk tickets and provide your response " +
		"in a complete and well-formatted JSON format as specified below. Ensure all requested " +
		"analysis types are included for every ticket.\n\n")

	for i, tk := range batch.Tickets {
		fmt.Fprintf(&b, "Ticket %d (ID: %s):\n", i+1, tk.ID)
		if len(tk.Columns) == 0 {
			b.WriteString("No information available for the selected columns.\n")
		}
		for _, col := range tk.Columns {
			fmt.Fprintf(&b, "%s: %s\n", col, tk.Fields[col])
		}
		b.WriteString("\n")
	}

	b.WriteString("Perform the following analyses for every ticket:\n")
	for i, d := range defs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d.Instruction)
	}

	b.WriteString("\nIf the information provided in a ticket is insufficient to perform any of the " +
		"requested analyses, respond with 'N/A' for that specific analysis.\n")

	ids := make([]string, len(batch.Tickets))
	for i, tk := range batch.Tickets {
		ids[i] = tk.ID
	}
	fmt.Fprintf(&b, "\nRespond with a JSON array holding exactly one object per ticket, in the same "+
		"order as above, covering the ticket IDs: %s.\n", strings.Join(ids, ", "))

	b.WriteString("Each object must follow this format:\n{\n")
	keys := []string{`  "ticket_id": "<ticket_id>"`}
	for _, d := range defs {
		keys = append(keys, fmt.Sprintf("  %q: \"<your_analysis>\"", d.Key()))
		if explanations {
			keys = append(keys, fmt.Sprintf("  %q: \"<brief_explanation>\"", d.ExplanationKey()))
		}
	}
	b.WriteString(strings.Join(keys, ",\n"))
	b.WriteString("\n}")

	return b.String()
}
