package cadets

// CreateInput registers a cadet with the caller's tenant.
type CreateInput struct {
	FirstName string  `json:"first_name" validate:"required,max=60,freetext"`
	LastName  string  `json:"last_name" validate:"required,max=60,freetext"`
	Comment   *string `json:"comment" validate:"omitempty,freetext"`
}

// ListParams filters the cadet list.
type ListParams struct {
	IncludeInactive bool
}
