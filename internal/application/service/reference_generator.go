package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// DefaultReferencePrefix starts every claim reference ID
const DefaultReferencePrefix = "CLM"

// ReferenceGenerator assigns the human-facing claim identifier
type ReferenceGenerator interface {
	// Generate returns the next unused reference ID. Call it inside the
	// claim creation transaction so the counter and the claim commit together.
	Generate(ctx context.Context) (string, error)
}

type sequenceReferenceGenerator struct {
	sequences port.ReferenceSequenceRepository
	prefix    string
	settings
}

// NewReferenceGenerator creates a generator producing PREFIX-YYYYMMDD-NNNN
// from a per-day counter
func NewReferenceGenerator(sequences port.ReferenceSequenceRepository, prefix string, opts ...Option) ReferenceGenerator {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return &sequenceReferenceGenerator{
		sequences: sequences,
		prefix:    prefix,
		settings:  newSettings(opts),
	}
}

// Generate increments today's counter and formats the reference ID
func (g *sequenceReferenceGenerator) Generate(ctx context.Context) (string, error) {
	day := g.now().In(g.location).Format("20060102")

	n, err := g.sequences.Next(ctx, day)
	if err != nil {
		return "", fmt.Errorf("next reference sequence: %w", err)
	}

	return fmt.Sprintf("%s-%s-%04d", g.prefix, day, n), nil
}
