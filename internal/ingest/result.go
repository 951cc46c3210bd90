package ingest

import (
	"net/http"

	"github.com/guaxindiba/firenotify/internal/dedup"
	"github.com/guaxindiba/firenotify/internal/directory"
)

// Outcome is the terminal state of one ingestion request.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
	OutcomeUnroutable       Outcome = "unroutable"
	OutcomeFailed           Outcome = "failed"
)

// Stage identifies a step of the ingestion state machine. Transitions are
// reported to the observability hook in order.
type Stage string

const (
	StageValidating    Stage = "validating"
	StageDeduplicating Stage = "deduplicating"
	StagePersisting    Stage = "persisting"
	StageResolving     Stage = "resolving"
	StageNotifying     Stage = "notifying"
	StageFinalizing    Stage = "finalizing"
)

// Values written to the history table's notified-status column. The column
// stays empty between persist and a terminal write; an event left empty after
// a notify failure is the signal for manual follow-up.
const (
	StatusNotified           = "notified"
	StatusNoResponsibleFound = "no-responsible-found"
)

// Request carries the raw query parameters of one ingestion call.
// Coordinates stay strings end to end; they are compared and stored verbatim.
type Request struct {
	RegionID  string
	Timestamp string
	Lat       string
	Lng       string
}

// Result is the orchestrator's structured response. Row is the history table
// row index (header at 0) identifying the event, or -1 when no row applies.
type Result struct {
	Outcome          Outcome
	Status           int // HTTP-class status code, embedded in the JSON body too
	Duplicate        bool
	Message          string
	Error            string
	RegionID         string
	Row              int
	ResponsibleEmail string
	MapsLink         string
}

func clientError(msg string) Result {
	return Result{Outcome: OutcomeFailed, Status: http.StatusBadRequest, Row: -1, Error: msg}
}

func serverError(msg string) Result {
	return Result{Outcome: OutcomeFailed, Status: http.StatusInternalServerError, Row: -1, Error: msg}
}

// Config is the immutable wiring handed to the orchestrator at construction:
// table names and column indices, nothing process-global.
type Config struct {
	HistoryTable   string
	DirectoryTable string
	HistoryCols    HistoryColumns
	DirectoryCols  directory.Columns
}

// HistoryColumns maps the history table's fields to column indices.
type HistoryColumns struct {
	Region    int
	Timestamp int
	Lat       int
	Lng       int
	Notified  int
}

// DefaultConfig returns the table layout used by the monitoring spreadsheet
// this system replaced: region, timestamp, lat, lng, notified.
func DefaultConfig() Config {
	return Config{
		HistoryTable:   "historico",
		DirectoryTable: "responsaveis",
		HistoryCols:    HistoryColumns{Region: 0, Timestamp: 1, Lat: 2, Lng: 3, Notified: 4},
		DirectoryCols:  directory.Columns{Region: 0, Address: 1},
	}
}

// HistoryHeader returns the header row for a freshly bootstrapped history table.
func (c Config) HistoryHeader() []string {
	return []string{"region", "timestamp", "lat", "lng", "notified"}
}

// DirectoryHeader returns the header row for a freshly bootstrapped directory table.
func (c Config) DirectoryHeader() []string {
	return []string{"region", "address"}
}

// DedupColumns projects the history layout onto the dedup checker's view.
func (c Config) DedupColumns() dedup.Columns {
	return dedup.Columns{
		Region:    c.HistoryCols.Region,
		Timestamp: c.HistoryCols.Timestamp,
		Lat:       c.HistoryCols.Lat,
		Lng:       c.HistoryCols.Lng,
	}
}
