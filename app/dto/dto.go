package dto

// APIResponse is the uniform envelope every handler returns. Data carries the
// payload on success; Error carries an ErrorDetail otherwise.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorDetail pairs a stable machine-readable code with optional context, such
// as the field-keyed validation messages of the campaign builder.
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
