package ingestion

import "errors"

var (
	// ErrUnsupportedFormat is returned for extensions outside {docx, pdf}.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptDocument is returned when bytes cannot be parsed as the claimed format.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrStorageWrite is returned when the store rejects a write.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrPartialChunkWrite marks a chunk write failure after the document record was stored.
	// Records already written are left in place.
	ErrPartialChunkWrite = errors.New("partial chunk write")
)

// Stage is a step of the processing pipeline.
type Stage string

const (
	StageReading     Stage = "reading"
	StageExtracting  Stage = "extracting"
	StageSummarizing Stage = "summarizing"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// ProcessingError is the only error kind returned by Service.Process.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return "failed to process document: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
