package dto

// Field names follow the catalog client's wire contract.
type ToggleVisibilityRequest struct {
	GameID string `json:"gameId"`
	Action string `json:"action"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
