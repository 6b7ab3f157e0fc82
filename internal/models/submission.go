package models

// ApplicationRequest is the POST /api/apply payload.
// linkedin is optional; all other fields are required.
type ApplicationRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	LinkedIn        string `json:"linkedin,omitempty"`
	GitHub          string `json:"github"`
	Accomplishments string `json:"accomplishments"`
}

// ApplyResponse is returned by POST /api/apply on acceptance.
// Fallback indicates the application was logged/archived for manual review
// instead of delivered by email; it is still a success for the applicant.
type ApplyResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Fallback bool   `json:"fallback,omitempty"`
}

// ErrorResponse is returned on every rejection path.
// Details carries one human-readable message per failed field.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}
