package inspections

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/quartermaster-backend/internal/assignments"
	"github.com/angelmondragon/quartermaster-backend/internal/deficiencies"
	"github.com/google/uuid"
)

// Step is a stage of the per-cadet inspection wizard.
type Step int

const (
	// StepReview lists the open deficiencies read-only.
	StepReview Step = iota
	// StepResolve toggles resolved/unresolved per open deficiency.
	StepResolve
	// StepAuthor shows the summary and collects new deficiencies.
	StepAuthor
)

var stepNames = map[Step]string{
	StepReview:  "review",
	StepResolve: "resolve",
	StepAuthor:  "author",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	if _, ok := stepNames[s]; !ok {
		return nil, fmt.Errorf("unknown wizard step %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for step, name := range stepNames {
		if name == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown wizard step %q", string(text))
}

var (
	ErrNoNextStep        = errors.New("wizard is on its last step")
	ErrNoPreviousStep    = errors.New("wizard is on its first step")
	ErrWrongStep         = errors.New("operation not allowed on this step")
	ErrUnknownDeficiency = errors.New("deficiency is not open for this cadet")
	ErrDraftIndex        = errors.New("draft index out of range")
)

// Wizard is the client-held state of one cadet inspection. Every transition
// returns a new value and leaves the receiver untouched, so going back and
// forth never loses edits and Submission always sees one snapshot.
type Wizard struct {
	InspectionID uuid.UUID                     `json:"inspection_id"`
	CadetID      uuid.UUID                     `json:"cadet_id"`
	Step         Step                          `json:"step"`
	Open         []deficiencies.OpenDeficiency `json:"open"`
	Resolutions  map[uuid.UUID]bool            `json:"resolutions"`
	Drafts       []DraftDeficiency             `json:"drafts"`
	Counts       []assignments.TypeCount       `json:"counts"`
}

// NewWizard starts on StepReview with every open deficiency unresolved.
func NewWizard(inspectionID, cadetID uuid.UUID, open []deficiencies.OpenDeficiency, counts []assignments.TypeCount) Wizard {
	resolutions := make(map[uuid.UUID]bool, len(open))
	for _, d := range open {
		resolutions[d.ID] = false
	}
	return Wizard{
		InspectionID: inspectionID,
		CadetID:      cadetID,
		Step:         StepReview,
		Open:         append([]deficiencies.OpenDeficiency{}, open...),
		Resolutions:  resolutions,
		Drafts:       []DraftDeficiency{},
		Counts:       append([]assignments.TypeCount{}, counts...),
	}
}

func (w Wizard) clone() Wizard {
	out := w
	out.Open = append([]deficiencies.OpenDeficiency{}, w.Open...)
	out.Drafts = append([]DraftDeficiency{}, w.Drafts...)
	out.Counts = append([]assignments.TypeCount{}, w.Counts...)
	out.Resolutions = make(map[uuid.UUID]bool, len(w.Resolutions))
	for id, resolved := range w.Resolutions {
		out.Resolutions[id] = resolved
	}
	return out
}

// Next advances one step. StepResolve is skipped when nothing is open.
func (w Wizard) Next() (Wizard, error) {
	out := w.clone()
	switch w.Step {
	case StepReview:
		if len(w.Open) == 0 {
			out.Step = StepAuthor
		} else {
			out.Step = StepResolve
		}
	case StepResolve:
		out.Step = StepAuthor
	default:
		return w, ErrNoNextStep
	}
	return out, nil
}

// Back returns to the previous step the cadet actually passed through.
func (w Wizard) Back() (Wizard, error) {
	out := w.clone()
	switch w.Step {
	case StepResolve:
		out.Step = StepReview
	case StepAuthor:
		if len(w.Open) == 0 {
			out.Step = StepReview
		} else {
			out.Step = StepResolve
		}
	default:
		return w, ErrNoPreviousStep
	}
	return out, nil
}

func (w Wizard) SetResolution(deficiencyID uuid.UUID, resolved bool) (Wizard, error) {
	if w.Step != StepResolve {
		return w, ErrWrongStep
	}
	if _, ok := w.Resolutions[deficiencyID]; !ok {
		return w, ErrUnknownDeficiency
	}
	out := w.clone()
	out.Resolutions[deficiencyID] = resolved
	return out, nil
}

func (w Wizard) AddDraft(draft DraftDeficiency) (Wizard, error) {
	if w.Step != StepAuthor {
		return w, ErrWrongStep
	}
	out := w.clone()
	out.Drafts = append(out.Drafts, draft)
	return out, nil
}

func (w Wizard) UpdateDraft(index int, draft DraftDeficiency) (Wizard, error) {
	if w.Step != StepAuthor {
		return w, ErrWrongStep
	}
	if index < 0 || index >= len(w.Drafts) {
		return w, ErrDraftIndex
	}
	out := w.clone()
	out.Drafts[index] = draft
	return out, nil
}

func (w Wizard) RemoveDraft(index int) (Wizard, error) {
	if w.Step != StepAuthor {
		return w, ErrWrongStep
	}
	if index < 0 || index >= len(w.Drafts) {
		return w, ErrDraftIndex
	}
	out := w.clone()
	out.Drafts = append(out.Drafts[:index], out.Drafts[index+1:]...)
	return out, nil
}

func (w Wizard) ResolvedCount() int {
	n := 0
	for _, resolved := range w.Resolutions {
		if resolved {
			n++
		}
	}
	return n
}

// UniformComplete previews the value Submit will derive.
func (w Wizard) UniformComplete() bool {
	return uniformComplete(w.Counts, len(w.Open)-w.ResolvedCount()+len(w.Drafts))
}

// Submission packages the wizard for Submit. Only StepAuthor can submit.
func (w Wizard) Submission() (SubmitInput, error) {
	if w.Step != StepAuthor {
		return SubmitInput{}, ErrWrongStep
	}
	out := w.clone()
	return SubmitInput{
		CadetID:         w.CadetID,
		InspectionID:    w.InspectionID,
		Resolutions:     out.Resolutions,
		NewDeficiencies: out.Drafts,
		UniformComplete: w.UniformComplete(),
	}, nil
}

func uniformComplete(counts []assignments.TypeCount, remainingOpen int) bool {
	if remainingOpen > 0 {
		return false
	}
	for _, c := range counts {
		if !c.Satisfied() {
			return false
		}
	}
	return true
}
