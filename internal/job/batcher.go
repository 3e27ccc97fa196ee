// Package job orchestrates one analysis run: tickets are split into
// batches, each batch goes through prompt, model call, and parse, and the
// collected results are merged back into the input table.
package job

import (
	"fmt"

	"triago/internal/models"
)

// Split partitions tickets into batches of at most size, preserving input
// order. Every ticket lands in exactly one batch; batch indexes are 1-based.
func Split(tickets []models.Ticket, size int) ([]models.Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", models.ErrConfiguration, size)
	}
	var batches []models.Batch
	for start := 0; start < len(tickets); start += size {
		end := start + size
		if end > len(tickets) {
			end = len(tickets)
		}
		batches = append(batches, models.Batch{Index: len(batches) + 1, Tickets: tickets[start:end]})
	}
	return batches, nil
}
