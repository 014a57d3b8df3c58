package schema_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/domain"
	"claimintake/internal/schema"
)

func TestLoad_BuiltinSchemas(t *testing.T) {
	reg, err := schema.Load("")
	require.NoError(t, err)

	assert.Equal(t,
		[]domain.ClaimType{domain.ClaimTypeHospitalisation, domain.ClaimTypeOutpatient},
		reg.ClaimTypes())

	s, err := reg.GetSchema(domain.ClaimTypeHospitalisation)
	require.NoError(t, err)
	assert.Equal(t, "claims/hospitalisation", s.ID)
	assert.Equal(t, "1.0.0", s.Version)
	assert.Equal(t, "Hospitalisation claim", s.Title)
}

func TestGetSchema_UnknownClaimType(t *testing.T) {
	reg, err := schema.Load("")
	require.NoError(t, err)

	_, err = reg.GetSchema("DENTAL")
	assert.ErrorIs(t, err, domain.ErrUnknownClaimType)
}

func TestResolve_RejectsNearMisses(t *testing.T) {
	reg, err := schema.Load("")
	require.NoError(t, err)

	ct, err := reg.Resolve("OUTPATIENT")
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimTypeOutpatient, ct)

	for _, raw := range []string{"hospitalisation", " HOSPITALISATION", "Hospitalization", "", "HOSPITALIZATION"} {
		_, err := reg.Resolve(raw)
		assert.ErrorIs(t, err, domain.ErrUnknownClaimType, raw)
	}
}

func TestLoad_DirectoryAddsClaimType(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title": "Dental claim",
		"x-version": "0.1.0",
		"type": "object",
		"required": ["claimType"],
		"properties": {"claimType": {"type": "string", "const": "DENTAL"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dental.json"), []byte(doc), 0o600))

	reg, err := schema.Load(dir)
	require.NoError(t, err)

	assert.Len(t, reg.ClaimTypes(), 3)
	s, err := reg.GetSchema("DENTAL")
	require.NoError(t, err)
	assert.Equal(t, "claims/DENTAL", s.ID)
	assert.Equal(t, "0.1.0", s.Version)
}

func TestLoad_DirectoryWithBadSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"type": "object"}`), 0o600))

	_, err := schema.Load(dir)
	assert.Error(t, err)
}

func TestParse_RequiresSinglePinnedClaimType(t *testing.T) {
	_, err := schema.Parse([]byte(`{"properties": {"claimType": {"enum": ["A", "B"]}}}`))
	assert.Error(t, err)

	_, err = schema.Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestDocument_ReturnsCopy(t *testing.T) {
	reg, err := schema.Load("")
	require.NoError(t, err)
	s, err := reg.GetSchema(domain.ClaimTypeOutpatient)
	require.NoError(t, err)

	doc := s.Document()
	require.True(t, json.Valid(doc))
	doc[0] = 'X'

	assert.True(t, json.Valid(s.Document()))
}

func TestSchemas_DocumentTypeEnumMatchesDomain(t *testing.T) {
	reg, err := schema.Load("")
	require.NoError(t, err)

	want := make([]string, 0)
	for _, dt := range domain.AllDocumentTypes() {
		want = append(want, string(dt))
	}

	for _, s := range reg.All() {
		var doc struct {
			Definitions struct {
				Document struct {
					Properties struct {
						Type struct {
							Enum []string `json:"enum"`
						} `json:"type"`
					} `json:"properties"`
				} `json:"document"`
			} `json:"definitions"`
		}
		require.NoError(t, json.Unmarshal(s.Document(), &doc))
		assert.Equal(t, want, doc.Definitions.Document.Properties.Type.Enum, s.ID)
	}
}
