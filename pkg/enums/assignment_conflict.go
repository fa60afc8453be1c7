package enums

// AssignmentConflictKind identifies which override resolves an issue conflict.
type AssignmentConflictKind string

const (
	// AssignmentConflictAlreadyIssued is resolved by resubmitting with force.
	AssignmentConflictAlreadyIssued AssignmentConflictKind = "already_issued"
	// AssignmentConflictInactive is resolved by resubmitting with ignore_inactive.
	AssignmentConflictInactive AssignmentConflictKind = "inactive"
	// AssignmentConflictNotFound is resolved by resubmitting with create.
	AssignmentConflictNotFound AssignmentConflictKind = "not_found"
)

// String implements fmt.Stringer.
func (k AssignmentConflictKind) String() string {
	return string(k)
}
