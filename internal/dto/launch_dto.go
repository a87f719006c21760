package dto

// AssistantChoice is one attachable assistant on the setup form.
type AssistantChoice struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// SetupFormData feeds the server-rendered setup page.
type SetupFormData struct {
	PlacementID          string
	SuggestedName        string
	ChatVisibility       bool
	Assistants           []AssistantChoice
	AttachedAssistantIDs []uint
}

// SetupSubmission is the parsed setup form POST.
type SetupSubmission struct {
	Name           string `validate:"required,max=255"`
	ChatVisibility bool
	AssistantIDs   []uint `validate:"required,min=1"`
}

// TransferRequest is the admin ownership-transfer payload.
type TransferRequest struct {
	OwnerIdentity string `json:"owner_identity" validate:"required,max=255"`
}
