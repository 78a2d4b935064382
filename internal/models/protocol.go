package models

// ProtocolChunk is a pre-embedded fragment of a clinical protocol.
type ProtocolChunk struct {
	ID        int64     `db:"id"`
	Source    string    `db:"source"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Embedding []float32 `db:"embedding"`
}
