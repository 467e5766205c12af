package idempotency

import (
	"strings"
	"time"

	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/types"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopeRecurringBillInstance keys one generated bill per template and occurrence date
	ScopeRecurringBillInstance Scope = "bill_recur"
)

const separator = ":"

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey joins scope and parts into a readable, deterministic key
func (g *Generator) GenerateKey(scope Scope, parts ...string) string {
	var b strings.Builder
	b.WriteString(string(scope))
	for _, p := range parts {
		b.WriteString(separator)
		b.WriteString(p)
	}
	return b.String()
}

// KeyPrefix is the common prefix of every key generated for scope and parts
func (g *Generator) KeyPrefix(scope Scope, parts ...string) string {
	return g.GenerateKey(scope, parts...) + separator
}

// InstanceKey is the key of the bill generated from templateID for date
func (g *Generator) InstanceKey(templateID string, date time.Time) string {
	return g.GenerateKey(ScopeRecurringBillInstance, templateID, types.FormatDate(date))
}

// ParseInstanceKey extracts the template id and occurrence date from an instance key
func (g *Generator) ParseInstanceKey(key string) (string, time.Time, error) {
	rest, ok := strings.CutPrefix(key, string(ScopeRecurringBillInstance)+separator)
	if !ok {
		return "", time.Time{}, invalidKey(key)
	}
	idx := strings.LastIndex(rest, separator)
	if idx <= 0 {
		return "", time.Time{}, invalidKey(key)
	}
	date, err := types.ParseDate(rest[idx+1:])
	if err != nil {
		return "", time.Time{}, invalidKey(key)
	}
	return rest[:idx], date, nil
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, key string, parts ...string) bool {
	return g.GenerateKey(scope, parts...) == key
}

func invalidKey(key string) error {
	return ierr.NewError("invalid idempotency key").
		WithHint("Idempotency key is malformed").
		WithReportableDetails(map[string]any{
			"key": key,
		}).
		Mark(ierr.ErrValidation)
}
