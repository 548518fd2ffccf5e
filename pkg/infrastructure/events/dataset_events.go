package events

import "time"

// DatasetStream is the stream all dataset lifecycle events are appended to
const DatasetStream = "dataset"

const (
	DatasetLoadedEvent     = "dataset.loaded"
	DatasetLoadFailedEvent = "dataset.load_failed"
)

// DatasetLoaded is published after a new snapshot replaced the previous one
type DatasetLoaded struct {
	Version         string    `json:"version"`
	PreviousVersion string    `json:"previous_version,omitempty"`
	Source          string    `json:"source"`
	ForecastRows    int       `json:"forecast_rows"`
	ActualRows      int       `json:"actual_rows"`
	DroppedRows     int       `json:"dropped_rows"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// DatasetLoadFailed is published when a reload could not read its source.
// The previous snapshot stays in place.
type DatasetLoadFailed struct {
	Source   string    `json:"source"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// NewDatasetLoaded wraps a DatasetLoaded payload in an event
func NewDatasetLoaded(data DatasetLoaded) Event {
	return Event{
		Type:       DatasetLoadedEvent,
		Stream:     DatasetStream,
		OccurredAt: data.LoadedAt,
		Payload:    data,
	}
}

// NewDatasetLoadFailed wraps a DatasetLoadFailed payload in an event
func NewDatasetLoadFailed(data DatasetLoadFailed) Event {
	if data.FailedAt.IsZero() {
		data.FailedAt = time.Now()
	}
	return Event{
		Type:       DatasetLoadFailedEvent,
		Stream:     DatasetStream,
		OccurredAt: data.FailedAt,
		Payload:    data,
	}
}

// PendingFailure reports the failure of the most recent reload, if the
// latest dataset event is a failed load
func PendingFailure(store EventStore) (DatasetLoadFailed, bool) {
	if store == nil {
		return DatasetLoadFailed{}, false
	}
	latest, ok := store.Latest(DatasetStream)
	if !ok || latest.Type != DatasetLoadFailedEvent {
		return DatasetLoadFailed{}, false
	}
	failure, ok := latest.Payload.(DatasetLoadFailed)
	return failure, ok
}
