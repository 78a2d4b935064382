package models

import "time"

// KnowledgeRecord is a clinician-reviewed answer stored in doctor_answers.
// At most one approved record exists per fingerprint.
type KnowledgeRecord struct {
	ID          int64     `db:"id" json:"id"`
	Fingerprint string    `db:"symptoms_hash" json:"symptoms_hash"`
	AnswerMD    string    `db:"answer_md" json:"answer_md"`
	Approved    bool      `db:"approved" json:"approved"`
	ReviewerID  *int64    `db:"doctor_id" json:"doctor_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type KnowledgeStats struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
}
