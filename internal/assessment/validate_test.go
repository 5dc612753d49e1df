package assessment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cddflow/pkg/domain-errors"
)

func boolPtr(b bool) *bool { return &b }

func validRaw() Raw {
	return Raw{
		CustomerID:      "CUST-001",
		RiskLevel:       "HIGH",
		Decision:        "MANUAL_REVIEW_REQUIRED",
		ReasonCodes:     []string{"PEP_MATCH", "ADVERSE_MEDIA"},
		MissingEvidence: []string{"SOURCE_OF_FUNDS", "ADDRESS_PROOF"},
		AMLAlertActive:  boolPtr(true),
		Summary:         "Politically exposed person with adverse media hits.",
		ActionNote:      "Escalate to senior analyst.",
	}
}

func TestValidate(t *testing.T) {
	t.Run("happy path carries every field through", func(t *testing.T) {
		got, err := Validate(validRaw())
		require.NoError(t, err)

		assert.Equal(t, "CUST-001", got.CustomerID)
		assert.Equal(t, RiskHigh, got.RiskLevel)
		assert.Equal(t, DecisionManualReview, got.Decision)
		assert.Equal(t, []string{"PEP_MATCH", "ADVERSE_MEDIA"}, got.ReasonCodes)
		assert.True(t, got.AMLAlertActive)
		assert.Equal(t, "Politically exposed person with adverse media hits.", got.Summary)
		assert.Equal(t, "Escalate to senior analyst.", got.ActionNote)
	})

	t.Run("missing evidence is deduplicated and sorted", func(t *testing.T) {
		raw := validRaw()
		raw.MissingEvidence = []string{
			"SOURCE_OF_FUNDS", "ADDRESS_PROOF", "SOURCE_OF_FUNDS", "ADDRESS_PROOF",
		}

		got, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, EvidenceSet{EvidenceAddressProof, EvidenceSourceOfFunds}, got.MissingEvidence)
	})

	t.Run("reason codes keep submission order", func(t *testing.T) {
		raw := validRaw()
		raw.ReasonCodes = []string{"ZZZ", "AAA", "MMM"}

		got, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"ZZZ", "AAA", "MMM"}, got.ReasonCodes)
	})

	t.Run("nil reason codes normalize to empty slice", func(t *testing.T) {
		raw := validRaw()
		raw.ReasonCodes = nil

		got, err := Validate(raw)
		require.NoError(t, err)
		assert.NotNil(t, got.ReasonCodes)
		assert.Empty(t, got.ReasonCodes)
	})

	t.Run("aml_alert_active false is accepted", func(t *testing.T) {
		raw := validRaw()
		raw.AMLAlertActive = boolPtr(false)

		got, err := Validate(raw)
		require.NoError(t, err)
		assert.False(t, got.AMLAlertActive)
	})
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Raw)
		wantCode dErrors.Code
	}{
		{
			name:     "missing customer_id",
			mutate:   func(r *Raw) { r.CustomerID = "" },
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "whitespace customer_id",
			mutate:   func(r *Raw) { r.CustomerID = "   " },
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "missing risk_level",
			mutate:   func(r *Raw) { r.RiskLevel = "" },
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "unknown risk_level",
			mutate:   func(r *Raw) { r.RiskLevel = "SEVERE" },
			wantCode: dErrors.CodeVocabulary,
		},
		{
			name:     "lowercase risk_level is not coerced",
			mutate:   func(r *Raw) { r.RiskLevel = "high" },
			wantCode: dErrors.CodeVocabulary,
		},
		{
			name:     "missing decision",
			mutate:   func(r *Raw) { r.Decision = "" },
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "unknown decision",
			mutate:   func(r *Raw) { r.Decision = "ESCALATE" },
			wantCode: dErrors.CodeVocabulary,
		},
		{
			name:     "absent aml_alert_active",
			mutate:   func(r *Raw) { r.AMLAlertActive = nil },
			wantCode: dErrors.CodeValidation,
		},
		{
			name:     "unknown evidence kind",
			mutate:   func(r *Raw) { r.MissingEvidence = []string{"PASSPORT_SCAN"} },
			wantCode: dErrors.CodeVocabulary,
		},
		{
			name: "one bad evidence kind rejects the whole assessment",
			mutate: func(r *Raw) {
				r.MissingEvidence = []string{"SOURCE_OF_FUNDS", "PASSPORT_SCAN"}
			},
			wantCode: dErrors.CodeVocabulary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			got, err := Validate(raw)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.wantCode, dErrors.CodeOf(err))
		})
	}
}

func TestValidatedAssessmentRoundTrip(t *testing.T) {
	got, err := Validate(validRaw())
	require.NoError(t, err)

	data, err := json.Marshal(got)
	require.NoError(t, err)

	var decoded RiskAssessment
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *got, decoded)
}

func TestNewEvidenceSet(t *testing.T) {
	t.Run("dedupes and sorts", func(t *testing.T) {
		set := NewEvidenceSet(
			EvidenceSourceOfWealth,
			EvidenceAddressProof,
			EvidenceSourceOfWealth,
			EvidencePEPStatus,
		)
		assert.Equal(t, EvidenceSet{EvidenceAddressProof, EvidencePEPStatus, EvidenceSourceOfWealth}, set)
	})

	t.Run("empty input yields empty set", func(t *testing.T) {
		set := NewEvidenceSet()
		assert.Empty(t, set)
		assert.False(t, set.Contains(EvidencePEPStatus))
	})

	t.Run("contains and strings", func(t *testing.T) {
		set := NewEvidenceSet(EvidenceOccupation, EvidenceBeneficialOwner)
		assert.True(t, set.Contains(EvidenceOccupation))
		assert.False(t, set.Contains(EvidenceAddressProof))
		assert.Equal(t, []string{"BENEFICIAL_OWNER", "OCCUPATION"}, set.Strings())
	})
}
