package models

// ChooseRequest is the body of a battle choice
type ChooseRequest struct {
	WinnerID string `json:"winner_id"`
}

// ImportRequest is the body of a Letterboxd import
type ImportRequest struct {
	Username string `json:"username"`
}
