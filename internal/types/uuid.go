package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex bill_01HQ3Z8K7V6W5X4Y3Z2A1B0C9D
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_BILL           = "bill"
	UUID_PREFIX_BILL_LINE_ITEM = "bill_line"
	UUID_PREFIX_ORGANIZATION   = "org"
	UUID_PREFIX_GENERATION_RUN = "run"
)
