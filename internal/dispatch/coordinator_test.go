package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cddflow/internal/assessment"
	"cddflow/internal/ledger"
	"cddflow/internal/policy"
	dErrors "cddflow/pkg/domain-errors"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []assessment.EvidenceSet
	err   error
}

func (f *fakeSender) Send(_ context.Context, _ string, missing assessment.EvidenceSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, missing)
	return f.err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCreator struct {
	mu    sync.Mutex
	calls []CaseRequest
	err   error
}

func (f *fakeCreator) Create(_ context.Context, req CaseRequest) (*CaseRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	id := strconv.Itoa(1000 + len(f.calls))
	return &CaseRef{ID: id, URL: "https://cases.example.com/" + id}, nil
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// failCommitStore forces Commit to fail after a successful Begin.
type failCommitStore struct {
	ledger.Store
}

func (s *failCommitStore) Commit(context.Context, ledger.Key, string, string) error {
	return dErrors.New(dErrors.CodeState, "commit on non-pending ledger key")
}

func highRiskReview() Review {
	a := &assessment.RiskAssessment{
		CustomerID:     "CUST-001",
		RiskLevel:      assessment.RiskHigh,
		Decision:       assessment.DecisionManualReview,
		ReasonCodes:    []string{"PEP_MATCH"},
		AMLAlertActive: true,
		Summary:        "High risk customer.",
	}
	return Review{
		CustomerID: a.CustomerID,
		ReviewID:   "rev-1",
		Assessment: a,
		Evaluation: policy.Decide(a),
	}
}

func evidenceOnlyReview() Review {
	a := &assessment.RiskAssessment{
		CustomerID:      "CUST-002",
		RiskLevel:       assessment.RiskMedium,
		Decision:        assessment.DecisionEDDRecommended,
		MissingEvidence: assessment.NewEvidenceSet(assessment.EvidenceSourceOfFunds),
	}
	return Review{
		CustomerID: a.CustomerID,
		ReviewID:   "rev-1",
		Assessment: a,
		Evaluation: policy.Decide(a),
	}
}

func noActionReview() Review {
	a := &assessment.RiskAssessment{
		CustomerID: "CUST-003",
		RiskLevel:  assessment.RiskLow,
		Decision:   assessment.DecisionClear,
	}
	return Review{
		CustomerID: a.CustomerID,
		ReviewID:   "rev-1",
		Assessment: a,
		Evaluation: policy.Decide(a),
	}
}

func TestDispatchOpensCase(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{}
	coord := New(sender, creator, ledger.NewMemoryStore(), nil, nil)

	review := noActionReview()
	review.Assessment.RiskLevel = assessment.RiskMedium
	review.Assessment.Decision = assessment.DecisionManualReview
	review.Assessment.ReasonCodes = []string{"STRUCTURING_PATTERN"}
	review.Evaluation = policy.Decide(review.Assessment)

	outcome, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	require.NotNil(t, outcome.Case)
	assert.True(t, outcome.Case.Opened)
	assert.False(t, outcome.Case.Duplicate)
	assert.NotEmpty(t, outcome.Case.CaseID)
	assert.Nil(t, outcome.Evidence)
	assert.False(t, outcome.NoAction)
	assert.Equal(t, 0, sender.callCount())

	require.Equal(t, 1, creator.callCount())
	req := creator.calls[0]
	assert.Equal(t, outcome.Key.String(), req.IdempotencyKey)
	assert.Equal(t, []string{"STRUCTURING_PATTERN"}, req.ReasonCodes)
}

// A second dispatch for the same review must return the original case
// reference without contacting the case channel again.
func TestDispatchIsIdempotentPerReview(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{}
	coord := New(sender, creator, ledger.NewMemoryStore(), nil, nil)
	review := highRiskReview()

	first, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)
	require.True(t, first.Case.Opened)

	second, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)
	require.NotNil(t, second.Case)
	assert.True(t, second.Case.Duplicate)
	assert.False(t, second.Case.Opened)
	assert.Equal(t, first.Case.CaseID, second.Case.CaseID)
	assert.Equal(t, first.Case.CaseURL, second.Case.CaseURL)

	assert.Equal(t, 1, creator.callCount())
}

func TestDispatchDistinctReviewsGetDistinctCases(t *testing.T) {
	coord := New(&fakeSender{}, &fakeCreator{}, ledger.NewMemoryStore(), nil, nil)

	review := highRiskReview()
	first, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	review.ReviewID = "rev-2"
	second, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	assert.True(t, first.Case.Opened)
	assert.True(t, second.Case.Opened)
	assert.NotEqual(t, first.Case.CaseID, second.Case.CaseID)
}

func TestDispatchEvidenceOnly(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{}
	coord := New(sender, creator, ledger.NewMemoryStore(), nil, nil)

	outcome, err := coord.Dispatch(context.Background(), evidenceOnlyReview())
	require.NoError(t, err)

	require.NotNil(t, outcome.Evidence)
	assert.True(t, outcome.Evidence.Requested)
	assert.Equal(t,
		assessment.NewEvidenceSet(assessment.EvidenceSourceOfFunds),
		outcome.Evidence.Missing)
	assert.Nil(t, outcome.Case)
	assert.Equal(t, 0, creator.callCount())
	assert.Equal(t, assessment.DecisionManualReview, outcome.Decision)
}

func TestDispatchNoAction(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{}
	coord := New(sender, creator, ledger.NewMemoryStore(), nil, nil)

	outcome, err := coord.Dispatch(context.Background(), noActionReview())
	require.NoError(t, err)

	assert.True(t, outcome.NoAction)
	assert.Nil(t, outcome.Evidence)
	assert.Nil(t, outcome.Case)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, 0, sender.callCount())
	assert.Equal(t, 0, creator.callCount())
}

// Leg independence: an evidence channel failure records an error in the
// outcome but never blocks the case leg.
func TestDispatchEvidenceFailureDoesNotBlockCase(t *testing.T) {
	sender := &fakeSender{err: dErrors.New(dErrors.CodeChannel, "webhook returned 500")}
	creator := &fakeCreator{}
	store := ledger.NewMemoryStore()
	coord := New(sender, creator, store, nil, nil)

	review := highRiskReview()
	review.Assessment.MissingEvidence = assessment.NewEvidenceSet(assessment.EvidenceAddressProof)
	review.Evaluation = policy.Decide(review.Assessment)

	outcome, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	require.NotNil(t, outcome.Evidence)
	assert.False(t, outcome.Evidence.Requested)
	assert.Contains(t, outcome.Evidence.Error, "webhook returned 500")

	require.NotNil(t, outcome.Case)
	assert.True(t, outcome.Case.Opened)
	assert.False(t, outcome.Succeeded())

	record, err := store.Get(context.Background(), outcome.Key)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCreated, record.Status)
}

// A case creation failure aborts the ledger key so a later dispatch can
// retry, and the evidence leg is unaffected.
func TestDispatchCaseFailureAbortsAndAllowsRetry(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{err: errors.New("zendesk unavailable")}
	store := ledger.NewMemoryStore()
	coord := New(sender, creator, store, nil, nil)

	review := highRiskReview()
	review.Assessment.MissingEvidence = assessment.NewEvidenceSet(assessment.EvidencePEPStatus)
	review.Evaluation = policy.Decide(review.Assessment)

	outcome, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	require.NotNil(t, outcome.Case)
	assert.True(t, outcome.Case.Attempted)
	assert.False(t, outcome.Case.Opened)
	assert.Contains(t, outcome.Case.Error, "zendesk unavailable")
	require.NotNil(t, outcome.Evidence)
	assert.True(t, outcome.Evidence.Requested)

	record, err := store.Get(context.Background(), outcome.Key)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, record.Status)

	creator.err = nil
	retry, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)
	assert.True(t, retry.Case.Opened)
}

func TestDispatchReportsInFlightContention(t *testing.T) {
	store := ledger.NewMemoryStore()
	key := ledger.NewKey("CUST-001", "rev-1")
	_, err := store.Begin(context.Background(), key)
	require.NoError(t, err)

	creator := &fakeCreator{}
	coord := New(&fakeSender{}, creator, store, nil, nil)

	outcome, err := coord.Dispatch(context.Background(), highRiskReview())
	require.NoError(t, err)

	require.NotNil(t, outcome.Case)
	assert.True(t, outcome.Case.InFlight)
	assert.False(t, outcome.Case.Opened)
	assert.Equal(t, 0, creator.callCount())
}

func TestDispatchCommitFailureIsFatal(t *testing.T) {
	store := &failCommitStore{Store: ledger.NewMemoryStore()}
	coord := New(&fakeSender{}, &fakeCreator{}, store, nil, nil)

	outcome, err := coord.Dispatch(context.Background(), highRiskReview())
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, dErrors.CodeState, dErrors.CodeOf(err))
}

func TestDispatchRejectsInvalidIntentSet(t *testing.T) {
	sender := &fakeSender{}
	creator := &fakeCreator{}
	coord := New(sender, creator, ledger.NewMemoryStore(), nil, nil)

	review := highRiskReview()
	review.Evaluation.Intents = []policy.Intent{policy.NoAction{}, policy.OpenCase{}}

	outcome, err := coord.Dispatch(context.Background(), review)
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, dErrors.CodePolicy, dErrors.CodeOf(err))
	assert.Equal(t, 0, sender.callCount())
	assert.Equal(t, 0, creator.callCount())
}

func TestDispatchCarriesEvidenceGapIntoCaseRequest(t *testing.T) {
	creator := &fakeCreator{}
	coord := New(&fakeSender{}, creator, ledger.NewMemoryStore(), nil, nil)

	review := highRiskReview()
	review.Assessment.MissingEvidence = assessment.NewEvidenceSet(assessment.EvidenceAddressProof)
	review.Evaluation = policy.Decide(review.Assessment)

	_, err := coord.Dispatch(context.Background(), review)
	require.NoError(t, err)

	require.Equal(t, 1, creator.callCount())
	assert.Equal(t,
		assessment.NewEvidenceSet(assessment.EvidenceAddressProof),
		creator.calls[0].EvidenceGap)
}
