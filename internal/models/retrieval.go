package models

type RetrievalSource string

const (
	SourceProtocol        RetrievalSource = "protocol"
	SourceKnowledgeAnswer RetrievalSource = "knowledge_answer"
)

// RetrievalResult is a single nearest-neighbour hit with its provenance.
type RetrievalResult struct {
	Fingerprint string          `json:"fingerprint,omitempty"`
	Text        string          `json:"text"`
	Score       float64         `json:"score"`
	Source      RetrievalSource `json:"source"`
}
