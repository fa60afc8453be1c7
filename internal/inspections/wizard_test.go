package inspections

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openList(n int) []deficiencies.OpenDeficiency {
	out := make([]deficiencies.OpenDeficiency, n)
	for i := range out {
		out[i] = deficiencies.OpenDeficiency{ID: uuid.New(), Description: "open"}
	}
	return out
}

func TestWizardSkipsResolveWithoutOpenDeficiencies(t *testing.T) {
	w := NewWizard(uuid.New(), uuid.New(), nil, nil)
	require.Equal(t, StepReview, w.Step)

	next, err := w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepAuthor, next.Step)

	back, err := next.Back()
	require.NoError(t, err)
	assert.Equal(t, StepReview, back.Step)
}

func TestWizardPassesThroughResolve(t *testing.T) {
	open := openList(2)
	w := NewWizard(uuid.New(), uuid.New(), open, nil)

	w, err := w.Next()
	require.NoError(t, err)
	require.Equal(t, StepResolve, w.Step)

	w, err = w.SetResolution(open[0].ID, true)
	require.NoError(t, err)
	w, err = w.Next()
	require.NoError(t, err)
	require.Equal(t, StepAuthor, w.Step)

	w, err = w.AddDraft(DraftDeficiency{TypeID: uuid.New(), Description: "missing tie"})
	require.NoError(t, err)

	// back to resolve and forward again keeps every edit
	w, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepResolve, w.Step)
	w, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepReview, w.Step)
	w, err = w.Next()
	require.NoError(t, err)
	w, err = w.Next()
	require.NoError(t, err)

	assert.True(t, w.Resolutions[open[0].ID])
	assert.False(t, w.Resolutions[open[1].ID])
	assert.Len(t, w.Drafts, 1)
	assert.Equal(t, 1, w.ResolvedCount())

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrNoNextStep)
}

func TestWizardTransitionsDoNotMutateReceiver(t *testing.T) {
	open := openList(1)
	start := NewWizard(uuid.New(), uuid.New(), open, nil)
	resolve, err := start.Next()
	require.NoError(t, err)

	resolved, err := resolve.SetResolution(open[0].ID, true)
	require.NoError(t, err)
	assert.False(t, resolve.Resolutions[open[0].ID])
	assert.True(t, resolved.Resolutions[open[0].ID])
	assert.Equal(t, StepReview, start.Step)
}

func TestWizardStepGuards(t *testing.T) {
	open := openList(1)
	w := NewWizard(uuid.New(), uuid.New(), open, nil)

	_, err := w.Back()
	assert.ErrorIs(t, err, ErrNoPreviousStep)
	_, err = w.SetResolution(open[0].ID, true)
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = w.AddDraft(DraftDeficiency{})
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = w.Submission()
	assert.ErrorIs(t, err, ErrWrongStep)

	w, err = w.Next()
	require.NoError(t, err)
	_, err = w.SetResolution(uuid.New(), true)
	assert.ErrorIs(t, err, ErrUnknownDeficiency)
}

func TestWizardDraftEditing(t *testing.T) {
	w, err := NewWizard(uuid.New(), uuid.New(), nil, nil).Next()
	require.NoError(t, err)

	w, err = w.AddDraft(DraftDeficiency{Description: "a"})
	require.NoError(t, err)
	w, err = w.AddDraft(DraftDeficiency{Description: "b"})
	require.NoError(t, err)
	w, err = w.UpdateDraft(0, DraftDeficiency{Description: "a2"})
	require.NoError(t, err)
	w, err = w.RemoveDraft(1)
	require.NoError(t, err)
	require.Len(t, w.Drafts, 1)
	assert.Equal(t, "a2", w.Drafts[0].Description)

	_, err = w.UpdateDraft(3, DraftDeficiency{})
	assert.ErrorIs(t, err, ErrDraftIndex)
	_, err = w.RemoveDraft(-1)
	assert.ErrorIs(t, err, ErrDraftIndex)
}

func TestWizardUniformCompletePreview(t *testing.T) {
	counts := []assignments.TypeCount{{Name: "Jacket", Issued: 1, Required: 1}}
	w, err := NewWizard(uuid.New(), uuid.New(), nil, counts).Next()
	require.NoError(t, err)
	assert.True(t, w.UniformComplete())

	withDraft, err := w.AddDraft(DraftDeficiency{Description: "stain"})
	require.NoError(t, err)
	assert.False(t, withDraft.UniformComplete())

	short := NewWizard(uuid.New(), uuid.New(), nil, []assignments.TypeCount{{Issued: 0, Required: 2}})
	assert.False(t, short.UniformComplete())

	sub, err := w.Submission()
	require.NoError(t, err)
	assert.True(t, sub.UniformComplete)
	assert.Equal(t, w.CadetID, sub.CadetID)
}

func TestWizardJSONRoundTrip(t *testing.T) {
	open := openList(1)
	w, err := NewWizard(uuid.New(), uuid.New(), open, nil).Next()
	require.NoError(t, err)

	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"step":"resolve"`)

	var decoded Wizard
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, StepResolve, decoded.Step)
	assert.Contains(t, decoded.Resolutions, open[0].ID)
}
