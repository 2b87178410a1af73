// Package eventlog is a thin, enum-checked front for appending lifecycle
// events to the download log.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"

	"trackforge/internal/constants"
	apperr "trackforge/internal/errors"
	"trackforge/internal/storage"
)

// errUnknownEventType backs the AppError returned for an event type outside
// constants.ValidEventTypes.
var errUnknownEventType = errors.New("unknown event type")

// Writer appends typed lifecycle events to the download log, rejecting any
// event type outside constants.ValidEventTypes.
type Writer struct {
	logs *storage.DownloadLogRepository
}

// NewWriter creates an event writer in front of the given log repository.
func NewWriter(logs *storage.DownloadLogRepository) *Writer {
	return &Writer{logs: logs}
}

// Append records one event for downloadID. metadata is marshaled to JSON;
// pass nil when there's nothing structured to attach.
func (w *Writer) Append(downloadID string, eventType constants.EventType, message string, metadata map[string]any) error {
	if !constants.ValidEventTypes[eventType] {
		return apperr.NewWithKind("eventlog.Append", errUnknownEventType, apperr.KindInternal, fmt.Sprintf("unknown event type %q", eventType))
	}

	var metadataJSON string
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return apperr.Wrap("eventlog.Append", err)
		}
		metadataJSON = string(data)
	}

	_, err := w.logs.Create(storage.NewDownloadLog{
		DownloadID: downloadID,
		EventType:  eventType,
		Message:    message,
		Metadata:   metadataJSON,
	})
	return err
}
