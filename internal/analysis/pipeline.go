package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanalyze/scanalyze/internal/scanning"
)

// Status is the externally observable state of the scan pipeline.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusUploading Status = "UPLOADING"
	StatusScanning  Status = "SCANNING"
	// StatusAnalyzing is a reserved slot for a future OCR/classification
	// split. No transition enters it today.
	StatusAnalyzing Status = "ANALYZING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

var (
	// ErrScanInProgress is returned when a submission arrives while another
	// scan is active. Submissions are never queued; at most one scan is in
	// flight.
	ErrScanInProgress = errors.New("a scan is already in progress")

	// ErrResetRequired is returned when a submission arrives in Completed;
	// the current result must be cleared with Reset first.
	ErrResetRequired = errors.New("reset required before starting a new scan")
)

// User-facing messages. All input failures collapse to one message and all
// analysis failures to another; the underlying cause is only logged.
const (
	inputErrorMessage    = "Could not read that file. Please upload a clear photo of the ingredient label."
	analysisErrorMessage = "Toxicology analysis failed. Please ensure the label is clear and try again."
)

// ProgressSteps are the progress values reported at each pipeline stage.
// Submitted is non-zero so the caller never sees a stalled bar.
type ProgressSteps struct {
	Submitted int
	Encoded   int
	Scanning  int
	Done      int
}

// DefaultProgressSteps matches the staging of the original scan flow.
var DefaultProgressSteps = ProgressSteps{Submitted: 20, Encoded: 50, Scanning: 70, Done: 100}

// DefaultSettleDelay is the cosmetic pause between reaching full progress and
// entering Completed.
const DefaultSettleDelay = 500 * time.Millisecond

// IDGenerator generates unique IDs for analyses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.New().String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// DefaultIDGenerator returns the uuid-backed generator used outside tests
func DefaultIDGenerator() IDGenerator {
	return &defaultIDGenerator{}
}

// DefaultTimeSource returns the wall-clock time source used outside tests
func DefaultTimeSource() TimeSource {
	return &defaultTimeSource{}
}

// Snapshot is a point-in-time view of the pipeline for status reporting.
type Snapshot struct {
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	TempImage string    `json:"tempImage,omitempty"`
	Current   *Analysis `json:"current,omitempty"`
}

// Pipeline drives a single label scan from submission to a completed report
// or an error. It is the only writer of the history store.
type Pipeline struct {
	mu        sync.Mutex
	status    Status
	progress  int
	message   string
	tempImage string
	current   *Analysis

	history     *Store
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	steps       ProgressSteps
	settleDelay time.Duration
}

// NewPipeline creates a Pipeline with default ID generator, time source,
// progress steps and settling delay.
func NewPipeline(history *Store, scanner scanning.Scanner, storage Storage) *Pipeline {
	return NewPipelineWithDeps(history, scanner, storage,
		&defaultIDGenerator{}, &defaultTimeSource{}, DefaultProgressSteps, DefaultSettleDelay)
}

// NewPipelineWithDeps creates a Pipeline with custom dependencies for testing
func NewPipelineWithDeps(history *Store, scanner scanning.Scanner, storage Storage,
	idGen IDGenerator, timeSrc TimeSource, steps ProgressSteps, settleDelay time.Duration) *Pipeline {
	return &Pipeline{
		status:      StatusIdle,
		history:     history,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		steps:       steps,
		settleDelay: settleDelay,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone uploads often carry very long generated names.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "label"
	}

	return base + ext
}

// Submit runs one scan: encode the image, call the classifier, record the
// report. Accepted only from Idle or Error; a submission during an active
// scan returns ErrScanInProgress. Progress is monotonically non-decreasing
// from submission until the terminal state.
func (p *Pipeline) Submit(ctx context.Context, filename string, data []byte, contentType string) (*Analysis, error) {
	p.mu.Lock()
	switch p.status {
	case StatusIdle, StatusError:
		// accepting states
	case StatusCompleted:
		p.mu.Unlock()
		return nil, ErrResetRequired
	default:
		p.mu.Unlock()
		return nil, ErrScanInProgress
	}
	p.status = StatusUploading
	p.progress = p.steps.Submitted
	p.message = ""
	p.current = nil
	p.tempImage = ""
	p.mu.Unlock()

	pngData, mimeType, _, err := scanning.PrepareImage(data, contentType)
	if err != nil {
		slog.Error("Failed to read label image",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		p.fail(inputErrorMessage)
		return nil, fmt.Errorf("preparing label image: %w", err)
	}

	// The encoded payload is ready; still uploading from the outside.
	dataURI := scanning.DataURI(mimeType, pngData)
	p.advance(StatusUploading, p.steps.Encoded, dataURI)

	// Keep the raw upload so the original file can be re-served next to
	// the report.
	id := p.idGenerator.Generate()
	savedPath, err := p.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		slog.Error("Failed to store label upload", "filename", filename, "error", err)
		p.fail(inputErrorMessage)
		return nil, fmt.Errorf("saving label file: %w", err)
	}

	p.advance(StatusScanning, p.steps.Scanning, dataURI)

	report, err := p.scanner.ScanLabel(ctx, pngData, mimeType)
	if err != nil {
		// Network failures, timeouts and schema violations are all one
		// failure to the caller; the distinction lives in the log.
		slog.Error("Label analysis failed",
			"filename", filename,
			"content_type", contentType,
			"error", err,
		)
		p.storage.Delete(savedPath)
		p.fail(analysisErrorMessage)
		return nil, fmt.Errorf("scanning label: %w", err)
	}

	a := newAnalysis(id, p.timeSource.Now().UTC(), report)
	a.ImageURL = dataURI
	a.Filename = savedPath

	p.advance(StatusScanning, p.steps.Done, dataURI)
	if p.settleDelay > 0 {
		time.Sleep(p.settleDelay)
	}

	if err := p.history.Record(a); err != nil {
		slog.Error("Failed to record analysis", "id", a.ID, "error", err)
		p.storage.Delete(savedPath)
		p.fail(analysisErrorMessage)
		return nil, fmt.Errorf("recording analysis: %w", err)
	}

	p.mu.Lock()
	p.status = StatusCompleted
	p.current = a
	p.mu.Unlock()

	return a, nil
}

// Reset returns the pipeline to Idle, clearing the current result, error
// message, temp image and progress. Valid from Completed or Error.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusIdle
	p.progress = 0
	p.message = ""
	p.tempImage = ""
	p.current = nil
}

// Snapshot returns the current pipeline state
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Status:    p.status,
		Progress:  p.progress,
		Message:   p.message,
		TempImage: p.tempImage,
		Current:   p.current,
	}
}

func (p *Pipeline) advance(status Status, progress int, tempImage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.progress = progress
	p.tempImage = tempImage
}

func (p *Pipeline) fail(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusError
	p.progress = 0
	p.message = message
	p.tempImage = ""
	p.current = nil
}
