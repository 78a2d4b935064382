package models

type AnswerSource string

const (
	AnswerFromExactCache AnswerSource = "exact_cache"
	AnswerFromSemantic   AnswerSource = "semantic_index"
	AnswerFromStore      AnswerSource = "knowledge_store"
	AnswerFromGeneration AnswerSource = "generation"
)

type DiagnosisQuery struct {
	Gender   string
	Age      int
	Symptoms string
}

type Diagnosis struct {
	Text        string
	Cached      bool
	Fingerprint string
	Source      AnswerSource
	Score       float64
}

type ReviewState string

const (
	ReviewApproved ReviewState = "approved"
	ReviewPending  ReviewState = "pending"
	ReviewNotFound ReviewState = "not_found"
)

type ReviewStatus struct {
	Fingerprint string
	State       ReviewState
	Text        string
	Record      *KnowledgeRecord
}
