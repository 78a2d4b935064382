package dto

type ApproveRequest struct {
	DoctorID int64 `json:"doctor_id" example:"7"`
}

type EditRequest struct {
	DoctorID int64  `json:"doctor_id" example:"7"`
	AnswerMD string `json:"answer_md"`
}

type KnowledgeRecordResponse struct {
	ID           int64  `json:"id"`
	SymptomsHash string `json:"symptoms_hash"`
	AnswerMD     string `json:"answer_md"`
	Approved     bool   `json:"approved"`
	DoctorID     *int64 `json:"doctor_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ReviewResponse struct {
	Status       string                   `json:"status"`
	SymptomsHash string                   `json:"symptoms_hash"`
	AnswerMD     string                   `json:"answer_md,omitempty"`
	Record       *KnowledgeRecordResponse `json:"record,omitempty"`
}

type KnowledgeListResponse struct {
	Entries []KnowledgeRecordResponse `json:"entries"`
	Limit   uint64                    `json:"limit"`
	Offset  uint64                    `json:"offset"`
}

type KnowledgeSearchRequest struct {
	Query         string   `json:"query" example:"sore throat and fever"`
	TopK          int      `json:"top_k" example:"5"`
	MinSimilarity *float64 `json:"min_similarity,omitempty" example:"0.8"`
}

type KnowledgeSearchResult struct {
	SymptomsHash    string  `json:"symptoms_hash"`
	AnswerMD        string  `json:"answer_md"`
	SimilarityScore float64 `json:"similarity_score"`
}

type KnowledgeSearchResponse struct {
	Query      string                  `json:"query"`
	Results    []KnowledgeSearchResult `json:"results"`
	TotalFound int                     `json:"total_found"`
}
