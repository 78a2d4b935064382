package dto

type ClearResponse struct {
	Removed int `json:"removed"`
}

type RebuildResponse struct {
	Indexed  int `json:"indexed"`
	Skipped  int `json:"skipped"`
	Replayed int `json:"replayed"`
}
