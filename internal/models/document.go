package models

// DocumentCategory identifies which of the three analysis inputs an
// uploaded file belongs to.
type DocumentCategory string

const (
	CategoryAnalysisSheet DocumentCategory = "analysis-sheet"
	CategoryQuestionPaper DocumentCategory = "question-paper"
	CategoryAnswerSheet   DocumentCategory = "answer-sheet"
)

// Categories lists all document categories in pipeline order.
var Categories = []DocumentCategory{
	CategoryAnalysisSheet,
	CategoryQuestionPaper,
	CategoryAnswerSheet,
}

// RawDocument is one uploaded file, immutable once created. It holds
// either raw image bytes or a multi-page PDF, tagged with its category.
type RawDocument struct {
	ID       string
	Category DocumentCategory
	Filename string
	MIMEType string
	Data     []byte
}

// Frame is a single normalized unit submitted to the model: either a
// re-encoded, size-bounded PNG, or one page of a PDF extracted as a
// standalone single-page document. Frames keep page order within a
// document and upload order across documents.
type Frame struct {
	DocumentID string
	Category   DocumentCategory
	PageIndex  int
	MIMEType   string
	Data       []byte
}
