package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

func TestParseCatalog(t *testing.T) {
	data := []byte(`[
		{"organization_id": "acme", "id": "vacation", "name": "Vacation",
		 "requires_advance_notice_days": 14, "max_duration_days": 30},
		{"organization_id": "acme", "id": "sick", "name": "Sick",
		 "max_duration_days": 10, "requires_documents": true, "active": false}
	]`)

	policies, err := factory.ParseCatalog(data)
	require.NoError(t, err)
	require.Len(t, policies, 2)

	assert.Equal(t, "vacation", policies[0].ID)
	assert.Equal(t, 14, policies[0].RequiresAdvanceNoticeDays)
	assert.True(t, policies[0].Active, "active defaults to true")

	assert.True(t, policies[1].RequiresDocuments)
	assert.False(t, policies[1].Active)
}

func TestParseCatalog_Duplicates(t *testing.T) {
	dupID := []byte(`[
		{"organization_id": "acme", "id": "vacation", "name": "Vacation", "max_duration_days": 30},
		{"organization_id": "acme", "id": "vacation", "name": "Holiday", "max_duration_days": 30}
	]`)
	_, err := factory.ParseCatalog(dupID)
	assert.ErrorIs(t, err, leave.ErrInvalidPolicy)

	dupName := []byte(`[
		{"organization_id": "acme", "id": "vacation", "name": "Vacation", "max_duration_days": 30},
		{"organization_id": "acme", "id": "holiday", "name": "vacation", "max_duration_days": 30}
	]`)
	_, err = factory.ParseCatalog(dupName)
	assert.ErrorIs(t, err, leave.ErrInvalidPolicy)

	otherOrg := []byte(`[
		{"organization_id": "acme", "id": "vacation", "name": "Vacation", "max_duration_days": 30},
		{"organization_id": "globex", "id": "vacation", "name": "Vacation", "max_duration_days": 30}
	]`)
	policies, err := factory.ParseCatalog(otherOrg)
	require.NoError(t, err)
	assert.Len(t, policies, 2)
}

func TestParseCatalog_InvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero max duration", `[{"organization_id": "acme", "id": "x", "name": "X", "max_duration_days": 0}]`},
		{"negative notice", `[{"organization_id": "acme", "id": "x", "name": "X", "max_duration_days": 1, "requires_advance_notice_days": -1}]`},
		{"missing name", `[{"organization_id": "acme", "id": "x", "max_duration_days": 1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseCatalog([]byte(tt.data))
			assert.ErrorIs(t, err, leave.ErrInvalidPolicy)
		})
	}

	_, err := factory.ParseCatalog([]byte(`{not json`))
	assert.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"organization_id": "acme", "id": "vacation", "name": "Vacation", "max_duration_days": 30}]`), 0o600))

	policies, err := factory.LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	_, err = factory.LoadCatalogFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestToJSON_RoundTrip(t *testing.T) {
	for _, p := range factory.DefaultCatalog("acme") {
		back, err := factory.FromJSON(factory.ToJSON(p))
		require.NoError(t, err)
		assert.Equal(t, p, back)
	}
}

func TestDefaultCatalog_IsValid(t *testing.T) {
	policies := factory.DefaultCatalog("acme")
	require.Len(t, policies, 3)
	for _, p := range policies {
		assert.NoError(t, p.Validate(), p.ID)
		assert.Equal(t, "acme", p.OrganizationID)
	}
	assert.Equal(t, 14, policies[0].RequiresAdvanceNoticeDays)
	assert.Equal(t, 30, policies[0].MaxDurationDays)
}
