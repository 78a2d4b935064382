package dto

type DiagnosisRequest struct {
	Gender   string `json:"gender" example:"f"`
	Age      int    `json:"age" example:"34"`
	Symptoms string `json:"symptoms" example:"sore throat, fever 38C, cough 3 days"`
}

type DiagnosisResponse struct {
	Diagnosis    string  `json:"diagnosis"`
	Cached       bool    `json:"cached"`
	SymptomsHash string  `json:"symptoms_hash"`
	Source       string  `json:"source"`
	Score        float64 `json:"score,omitempty"`
}

type IntentRequest struct {
	Text string `json:"text"`
}

type IntentResponse struct {
	Intent string `json:"intent"`
}
