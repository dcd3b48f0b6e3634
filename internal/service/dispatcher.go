package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"filemaster/internal/logger"
	"filemaster/internal/staging"
	"filemaster/internal/storage"
	"filemaster/internal/transform"
)

// State is a dispatcher lifecycle stage. A request moves forward only;
// CleaningUp is entered exactly once and is followed by Completed or Aborted.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateExecuting
	StateRecording
	StateCleaningUp
	StateCompleted
	StateAborted
)

var stateNames = [...]string{"received", "validated", "executing", "recording", "cleaning_up", "completed", "aborted"}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s ends a request.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Dispatcher runs one process request through validation, execution,
// recording and cleanup. It keeps no state between requests.
type Dispatcher struct {
	tools    transform.Toolbox
	area     *staging.Area
	store    storage.Storage
	recorder *ProvenanceRecorder
	stats    *StatsAggregator

	log     zerolog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	observe func(State)
	newID   func() string
}

type DispatcherOption func(*Dispatcher)

func WithLogger(l zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = l }
}

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(State)) DispatcherOption {
	return func(d *Dispatcher) { d.observe = fn }
}

func NewDispatcher(
	tools transform.Toolbox,
	area *staging.Area,
	store storage.Storage,
	recorder *ProvenanceRecorder,
	stats *StatsAggregator,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		tools:    tools,
		area:     area,
		store:    store,
		recorder: recorder,
		stats:    stats,
		log:      zerolog.Nop(),
		tracer:   otel.Tracer("filemaster/service"),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run is the per-request state.
type run struct {
	state State
	log   zerolog.Logger
	span  trace.Span
}

func (d *Dispatcher) advance(r *run, to State) {
	r.log.Debug().Str("from", r.state.String()).Str("to", to.String()).Msg("dispatch state")
	r.state = to
	r.span.AddEvent(to.String())
	if d.observe != nil {
		d.observe(to)
	}
}

func processingFailure(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProcessingFailure, stage, err)
}

// Dispatch executes req. Validation errors are returned as *transform.ValidationError;
// anything that fails later wraps ErrProcessingFailure. Every staged upload and
// work file is removed before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, req ProcessRequest) (result *ProcessResult, err error) {
	start := time.Now()
	rid := req.RequestID
	if rid == "" {
		rid = logger.RequestID(ctx)
	}

	ctx, span := d.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.String("tool", req.Tool),
		attribute.Int("files", len(req.Files)),
	))
	defer span.End()

	r := &run{
		state: StateReceived,
		span:  span,
		log: d.log.With().
			Str("request_id", rid).
			Str("user_id", req.UserID).
			Str("tool", req.Tool).
			Logger(),
	}
	if d.observe != nil {
		d.observe(StateReceived)
	}

	toolLabel := "invalid"
	scope := d.area.NewScope()
	defer func() {
		d.advance(r, StateCleaningUp)
		d.metrics.addCleanupFailures(scope.Release())

		outcome := "completed"
		switch {
		case err == nil:
			d.advance(r, StateCompleted)
		case transform.IsValidation(err):
			outcome = "rejected"
			d.advance(r, StateAborted)
			r.log.Info().Str("reason", err.Error()).Msg("request rejected")
		default:
			outcome = "failed"
			d.advance(r, StateAborted)
			span.RecordError(err)
			span.SetStatus(codes.Error, "processing failed")
			r.log.Error().Err(err).Msg("processing failed")
		}
		d.metrics.observeProcess(toolLabel, outcome, elapsed(start))
	}()

	if req.UserID == "" {
		return nil, ErrUserRequired
	}
	tool, err := transform.ParseTool(req.Tool)
	if err != nil {
		return nil, err
	}
	toolLabel = tool.String()

	metas := make([]transform.FileMeta, len(req.Files))
	for i, src := range req.Files {
		metas[i] = src.Meta()
	}
	params, err := transform.Validate(tool, metas, req.Params)
	if err != nil {
		return nil, err
	}
	d.advance(r, StateValidated)

	exec, err := d.tools.Executor(tool)
	if err != nil {
		return nil, processingFailure("select executor", err)
	}

	d.advance(r, StateExecuting)
	inputs, original, err := stageAll(ctx, scope, req.Files)
	if err != nil {
		return nil, processingFailure("stage uploads", err)
	}

	ectx, espan := d.tracer.Start(ctx, "dispatch.execute", trace.WithAttributes(attribute.String("tool", tool.String())))
	out, err := exec.Execute(ectx, inputs, params)
	espan.End()
	scope.Track(out.Path)
	if err != nil {
		return nil, processingFailure("execute", err)
	}

	if tool == transform.ToolPreview {
		return &ProcessResult{Previews: out.Previews}, nil
	}

	d.advance(r, StateRecording)
	rctx, rspan := d.tracer.Start(ctx, "dispatch.record")
	desc, err := d.record(rctx, req.UserID, tool, original, out)
	rspan.End()
	if err != nil {
		return nil, processingFailure("record", err)
	}
	d.metrics.addSaved(desc.BytesSaved)
	return &ProcessResult{Result: desc}, nil
}

// stageAll spools every source to disk in upload order. Sizes are the staged
// byte counts, not what the client declared.
func stageAll(ctx context.Context, scope *staging.Scope, files []Source) ([]transform.Input, int64, error) {
	inputs := make([]transform.Input, 0, len(files))
	var total int64
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		meta := src.Meta()
		rc, err := src.Open()
		if err != nil {
			return nil, 0, fmt.Errorf("open %s: %w", meta.Name, err)
		}
		p, n, err := scope.Stage(meta.Name, rc)
		rc.Close()
		if err != nil {
			return nil, 0, err
		}
		meta.Size = n
		total += n
		inputs = append(inputs, transform.Input{FileMeta: meta, Path: p})
	}
	return inputs, total, nil
}

// record uploads the output, writes its provenance row and bumps the owner's
// stats. A failure after the upload removes what was already written.
// objectMetadata is attached to stored outputs. S3 user metadata travels in
// HTTP headers and must be US-ASCII, so values are query-escaped.
func objectMetadata(displayName, ownerID string) map[string]string {
	return map[string]string{
		"display-name": url.QueryEscape(displayName),
		"owner-id":     url.QueryEscape(ownerID),
	}
}

func (d *Dispatcher) record(ctx context.Context, userID string, tool transform.Tool, original int64, out transform.Output) (*ResultDescriptor, error) {
	id := d.newID()
	key := path.Join("processed", id+filepath.Ext(out.DisplayName))

	f, err := os.Open(out.Path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	if _, err := d.store.Put(ctx, key, f, storage.PutObjectOptions{
		Size:        out.Size,
		ContentType: out.ContentType,
		Metadata:    objectMetadata(out.DisplayName, userID),
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Compensation must run even if the request context is already gone.
	cctx := context.WithoutCancel(ctx)

	_, err = d.recorder.Record(ctx, Provenance{
		ID:           id,
		StoragePath:  key,
		DisplayName:  out.DisplayName,
		OwnerID:      userID,
		OriginalSize: original,
		OutputSize:   out.Size,
		ContentType:  out.ContentType,
		ToolUsed:     tool.String(),
	})
	if err != nil {
		if delErr := d.store.Delete(cctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if err := d.stats.Add(ctx, userID, original, out.Size); err != nil {
		var rollback []error
		if forgetErr := d.recorder.Forget(cctx, id); forgetErr != nil {
			rollback = append(rollback, fmt.Errorf("rollback record: %w", forgetErr))
		}
		if delErr := d.store.Delete(cctx, key); delErr != nil {
			rollback = append(rollback, fmt.Errorf("rollback delete: %w", delErr))
		}
		if len(rollback) > 0 {
			return nil, fmt.Errorf("stats update failed: %v; %v", err, errors.Join(rollback...))
		}
		return nil, fmt.Errorf("stats update failed: %w", err)
	}

	return &ResultDescriptor{
		ID:           id,
		DownloadURL:  DownloadPath(id),
		DisplayName:  out.DisplayName,
		OutputSize:   out.Size,
		OriginalSize: original,
		BytesSaved:   original - out.Size,
		ToolUsed:     tool.String(),
	}, nil
}
