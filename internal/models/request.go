package models

// UpdateAssetRequest is the body of PUT /asset/{id}. Only "uploaded" is accepted.
type UpdateAssetRequest struct {
	Status *string `json:"Status" example:"uploaded"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
