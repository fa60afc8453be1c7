package assignments

import (
	"github.com/angelmondragon/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quartermaster-backend/pkg/errors"
	"github.com/google/uuid"
)

// ConflictDetails is the payload of an ASSIGNMENT_CONFLICT error. It carries
// everything the caller needs to decide on an override without a follow-up
// query.
type ConflictDetails struct {
	Kind enums.AssignmentConflictKind `json:"kind"`
	Data any                          `json:"data"`
}

// Holder identifies the cadet currently holding a uniform.
type Holder struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Active    bool      `json:"active"`
}

type AlreadyIssuedData struct {
	UniformID     uuid.UUID `json:"uniform_id"`
	UniformTypeID uuid.UUID `json:"uniform_type_id"`
	Number        int       `json:"number"`
	Holder        Holder    `json:"holder"`
}

type InactiveData struct {
	UniformID     uuid.UUID `json:"uniform_id"`
	UniformTypeID uuid.UUID `json:"uniform_type_id"`
	TypeName      string    `json:"type_name"`
	Number        int       `json:"number"`
	Comment       *string   `json:"comment,omitempty"`
}

type NotFoundData struct {
	UniformTypeID uuid.UUID `json:"uniform_type_id"`
	TypeName      string    `json:"type_name"`
	Number        int       `json:"number"`
}

var conflictMessages = map[enums.AssignmentConflictKind]string{
	enums.AssignmentConflictAlreadyIssued: "uniform is already issued to another cadet",
	enums.AssignmentConflictInactive:      "uniform is not active",
	enums.AssignmentConflictNotFound:      "uniform does not exist",
}

func newConflict(kind enums.AssignmentConflictKind, data any) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeAssignmentConflict, conflictMessages[kind]).
		WithDetails(ConflictDetails{Kind: kind, Data: data})
}

// ConflictOf extracts the conflict payload from err, if it is one.
func ConflictOf(err error) (ConflictDetails, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAssignmentConflict {
		return ConflictDetails{}, false
	}
	details, ok := typed.Details().(ConflictDetails)
	return details, ok
}
