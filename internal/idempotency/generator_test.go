package idempotency

import (
	"testing"
	"time"

	"github.com/rentwise/rentwise/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceKeyIsDeterministic(t *testing.T) {
	g := NewGenerator()
	date := types.Date(2024, time.February, 29)

	k1 := g.InstanceKey("bill_01HX", date)
	k2 := g.InstanceKey("bill_01HX", date)

	assert.Equal(t, "bill_recur:bill_01HX:2024-02-29", k1)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, g.InstanceKey("bill_01HX", types.Date(2024, time.March, 1)))
	assert.NotEqual(t, k1, g.InstanceKey("bill_01HY", date))
	assert.True(t, g.ValidateKey(ScopeRecurringBillInstance, k1, "bill_01HX", "2024-02-29"))
}

func TestKeyPrefix(t *testing.T) {
	g := NewGenerator()
	prefix := g.KeyPrefix(ScopeRecurringBillInstance, "bill_1")

	assert.Equal(t, "bill_recur:bill_1:", prefix)
	assert.Contains(t, g.InstanceKey("bill_1", types.Date(2024, time.January, 1)), prefix)
	assert.NotContains(t, g.InstanceKey("bill_10", types.Date(2024, time.January, 1)), prefix)
}

func TestParseInstanceKey(t *testing.T) {
	g := NewGenerator()

	id, date, err := g.ParseInstanceKey("bill_recur:tmpl:with:colons:2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, "tmpl:with:colons", id)
	assert.True(t, types.Date(2024, time.December, 31).Equal(date))

	for _, bad := range []string{
		"",
		"bill_recur:",
		"bill_recur:2024-12-31",
		"invoice:tmpl:2024-12-31",
		"bill_recur:tmpl:31/12/2024",
	} {
		_, _, err := g.ParseInstanceKey(bad)
		assert.Error(t, err, bad)
	}
}
