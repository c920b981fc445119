package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OrgAggregateRoot must satisfy the full aggregate contract, entity
// identity included.
var _ AggregateRoot = (*OrgAggregateRoot)(nil)

func TestNewOrgAggregateRoot(t *testing.T) {
	orgID := uuid.New()
	agg := NewOrgAggregateRoot(orgID)

	assert.Equal(t, orgID, agg.OrganizationID)
	assert.NotEqual(t, uuid.Nil, agg.GetID())
	assert.False(t, agg.GetCreatedAt().IsZero())
	assert.Equal(t, agg.GetCreatedAt(), agg.GetUpdatedAt())
	assert.Equal(t, 1, agg.GetVersion())
}

func TestBaseAggregateRoot_Version(t *testing.T) {
	agg := NewBaseAggregateRoot()
	require.Equal(t, 1, agg.GetVersion())

	agg.IncrementVersion()
	agg.IncrementVersion()
	assert.Equal(t, 3, agg.GetVersion())
}

func TestBaseAggregateRoot_DomainEvents(t *testing.T) {
	agg := NewBaseAggregateRoot()
	require.Empty(t, agg.GetDomainEvents())

	event := NewBaseDomainEvent("journal.posted", "JournalEntry", agg.GetID(), uuid.New())
	agg.AddDomainEvent(&event)

	events := agg.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "journal.posted", events[0].EventType())

	agg.ClearDomainEvents()
	assert.Empty(t, agg.GetDomainEvents())
}
