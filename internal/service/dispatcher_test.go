package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filemaster/internal/model"
	repoMocks "filemaster/internal/repository/mocks"
	"filemaster/internal/staging"
	"filemaster/internal/storage"
	storeMocks "filemaster/internal/storage/mocks"
	"filemaster/internal/transform"
)

type memSource struct {
	name  string
	ctype string
	data  []byte
}

func (s memSource) Meta() transform.FileMeta {
	return transform.FileMeta{Name: s.name, Size: int64(len(s.data)), ContentType: s.ctype}
}

func (s memSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

type memFiles struct {
	mu   sync.Mutex
	rows map[string]*model.ProcessedFile
}

func newMemFiles() *memFiles { return &memFiles{rows: map[string]*model.ProcessedFile{}} }

func (m *memFiles) Create(_ context.Context, f *model.ProcessedFile) (*model.ProcessedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.rows[f.ID] = &cp
	return &cp, nil
}

func (m *memFiles) FindByID(_ context.Context, id string) (*model.ProcessedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memFiles) RecordDownload(_ context.Context, id, ownerID string) (*model.ProcessedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok || f.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	f.DownloadCount++
	cp := *f
	return &cp, nil
}

func (m *memFiles) all() []model.ProcessedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProcessedFile, 0, len(m.rows))
	for _, f := range m.rows {
		out = append(out, *f)
	}
	return out
}

type memStats struct {
	mu   sync.Mutex
	rows map[string]*model.UserStats
}

func newMemStats() *memStats { return &memStats{rows: map[string]*model.UserStats{}} }

func (m *memStats) Increment(_ context.Context, userID string, d model.StatsDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[userID]
	if !ok {
		s = &model.UserStats{UserID: userID}
		m.rows[userID] = s
	}
	s.TotalFiles += d.Files
	s.TotalSize += d.OriginalBytes
	s.TotalCompressed += d.CompressedBytes
	s.SpaceSaved += d.Saved()
	return nil
}

func (m *memStats) Get(_ context.Context, userID string) (*model.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

// countingExecutor records how often it ran and, unless it fails, writes a
// small work file so recording has something to upload.
type countingExecutor struct {
	dir   string
	calls atomic.Int32
	err   error
}

func (e *countingExecutor) Execute(_ context.Context, inputs []transform.Input, _ transform.Params) (transform.Output, error) {
	e.calls.Add(1)
	if e.err != nil {
		return transform.Output{}, e.err
	}
	p := filepath.Join(e.dir, "work-output.bin")
	if err := os.WriteFile(p, []byte("out"), 0o600); err != nil {
		return transform.Output{}, err
	}
	return transform.Output{Path: p, Size: 3, ContentType: "application/octet-stream", DisplayName: "result.bin"}, nil
}

type harness struct {
	d      *Dispatcher
	area   *staging.Area
	store  storage.Storage
	files  *memFiles
	stats  *memStats
	mu     sync.Mutex
	states []State
}

func (h *harness) seen() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...)
}

func newHarness(t *testing.T, tools func(dir string) transform.Toolbox, opts ...DispatcherOption) *harness {
	t.Helper()
	area, err := staging.NewArea(filepath.Join(t.TempDir(), "uploads"), zerolog.Nop())
	require.NoError(t, err)
	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)

	h := &harness{area: area, store: store, files: newMemFiles(), stats: newMemStats()}
	box := transform.NewToolbox(area.Dir(), nil, nil)
	if tools != nil {
		box = tools(area.Dir())
	}
	opts = append([]DispatcherOption{WithStateObserver(func(s State) {
		h.mu.Lock()
		h.states = append(h.states, s)
		h.mu.Unlock()
	})}, opts...)
	h.d = NewDispatcher(box, area, store, NewProvenanceRecorder(h.files), NewStatsAggregator(h.stats), opts...)
	return h
}

func assertNoTempFiles(t *testing.T, area *staging.Area) {
	t.Helper()
	entries, err := os.ReadDir(area.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "staging dir should be empty after a request")
}

func txt(name, body string) memSource {
	return memSource{name: name, ctype: "text/plain", data: []byte(body)}
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, 60.0, compressionRatio(1000, 400))
	assert.Equal(t, 0.0, compressionRatio(0, 0))
	assert.Equal(t, 0.0, compressionRatio(0, 50))
	assert.Equal(t, 66.67, compressionRatio(3, 1))
	assert.Equal(t, -50.0, compressionRatio(100, 150))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "cleaning_up", StateCleaningUp.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateRecording.Terminal())
}

func TestDispatcher_CompressSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	h := newHarness(t, nil, WithMetrics(m))
	h.d.newID = func() string { return "file-1" }

	body := strings.Repeat("compressible text ", 200)
	res, err := h.d.Dispatch(context.Background(), ProcessRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		Tool:      "compress",
		Files:     []Source{txt("report.txt", body)},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Nil(t, res.Previews)

	got := res.Result
	assert.Equal(t, "file-1", got.ID)
	assert.Equal(t, "/api/download/file-1", got.DownloadURL)
	assert.Equal(t, "report_compressed.zip", got.DisplayName)
	assert.Equal(t, "compress", got.ToolUsed)
	assert.Equal(t, int64(len(body)), got.OriginalSize)
	assert.Equal(t, got.OriginalSize-got.OutputSize, got.BytesSaved)
	assert.Greater(t, got.BytesSaved, int64(0))

	rec, err := h.files.FindByID(context.Background(), "file-1")
	require.NoError(t, err)
	assert.Equal(t, "processed/file-1.zip", rec.StoragePath)
	assert.Equal(t, "user-1", rec.OwnerID)
	assert.Equal(t, "application/zip", rec.ContentType)
	assert.Equal(t, compressionRatio(rec.OriginalSize, rec.OutputSize), rec.CompressionRatio)
	assert.Zero(t, rec.DownloadCount)

	rc, info, err := h.store.Get(context.Background(), "processed/file-1.zip")
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, got.OutputSize, info.Size)

	stats, err := h.stats.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFiles)
	assert.Equal(t, got.OriginalSize, stats.TotalSize)
	assert.Equal(t, got.OutputSize, stats.TotalCompressed)
	assert.Equal(t, got.BytesSaved, stats.SpaceSaved)

	assert.Equal(t, []State{StateReceived, StateValidated, StateExecuting, StateRecording, StateCleaningUp, StateCompleted}, h.seen())
	assertNoTempFiles(t, h.area)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues("compress", "completed")))
	assert.Equal(t, float64(got.BytesSaved), testutil.ToFloat64(m.bytesSaved))
}

func TestDispatcher_InvalidToolRunsNothing(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	var execs []*countingExecutor
	h := newHarness(t, func(dir string) transform.Toolbox {
		mk := func() *countingExecutor {
			e := &countingExecutor{dir: dir}
			execs = append(execs, e)
			return e
		}
		return transform.Toolbox{Compressor: mk(), Merger: mk(), Converter: mk(), Enhancer: mk(), Previewer: mk()}
	}, WithMetrics(m))

	for _, name := range []string{"resize", "", "COMPRESS2"} {
		_, err := h.d.Dispatch(context.Background(), ProcessRequest{
			UserID: "user-1",
			Tool:   name,
			Files:  []Source{txt("a.txt", "x")},
		})
		assert.ErrorIs(t, err, transform.ErrInvalidTool, name)
	}

	for _, e := range execs {
		assert.Zero(t, e.calls.Load())
	}
	assert.Empty(t, h.files.all())
	assert.Equal(t, []State{StateReceived, StateCleaningUp, StateAborted}, h.seen()[:3])
	assert.Equal(t, 3.0, testutil.ToFloat64(m.filesProcessed.WithLabelValues("invalid", "rejected")))
	assertNoTempFiles(t, h.area)
}

func TestDispatcher_ValidationRejectsBeforeStaging(t *testing.T) {
	pdf := memSource{name: "a.pdf", ctype: "application/pdf", data: []byte("%PDF")}
	img := memSource{name: "a.png", ctype: "image/png", data: []byte("png")}

	tests := []struct {
		name   string
		tool   string
		files  []Source
		params transform.Params
		kind   error
		msg    string
	}{
		{"merge with one file", "merge", []Source{pdf}, transform.Params{}, transform.ErrCardinality, "Merge requires at least 2 files"},
		{"merge with a non-pdf", "merge", []Source{pdf, txt("b.txt", "x")}, transform.Params{}, transform.ErrTypeMismatch, "All files must be PDFs for merging"},
		{"convert with two files", "convert", []Source{img, img}, transform.Params{}, transform.ErrCardinality, "Convert requires exactly 1 file"},
		{"enhance with two files", "enhance", []Source{img, img}, transform.Params{}, transform.ErrCardinality, "Enhance requires exactly 1 file"},
		{"enhance a document", "enhance", []Source{pdf}, transform.Params{}, transform.ErrTypeMismatch, "Only images can be enhanced"},
		{"convert without format", "convert", []Source{img}, transform.Params{}, transform.ErrMissingParameter, "Format is required for conversion"},
		{"merge order names no upload", "merge", []Source{pdf, pdf}, transform.Params{Order: []string{"other.pdf"}}, transform.ErrOrderMismatch, "Merge order does not name any uploaded file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &countingExecutor{}
			h := newHarness(t, func(dir string) transform.Toolbox {
				exec.dir = dir
				return transform.Toolbox{Compressor: exec, Merger: exec, Converter: exec, Enhancer: exec, Previewer: exec}
			})

			_, err := h.d.Dispatch(context.Background(), ProcessRequest{UserID: "user-1", Tool: tt.tool, Files: tt.files, Params: tt.params})

			require.ErrorIs(t, err, tt.kind)
			assert.EqualError(t, err, tt.msg)
			assert.Zero(t, exec.calls.Load())
			assert.Equal(t, []State{StateReceived, StateCleaningUp, StateAborted}, h.seen())
			assertNoTempFiles(t, h.area)
		})
	}
}

func TestDispatcher_PreviewNeverRecords(t *testing.T) {
	area, err := staging.NewArea(filepath.Join(t.TempDir(), "uploads"), zerolog.Nop())
	require.NoError(t, err)
	mStore := new(storeMocks.MockStorage)
	mFiles := new(repoMocks.MockProcessedFileRepository)
	mStats := new(repoMocks.MockUserStatsRepository)
	var states []State
	d := NewDispatcher(transform.NewToolbox(area.Dir(), nil, nil), area, mStore,
		NewProvenanceRecorder(mFiles), NewStatsAggregator(mStats),
		WithStateObserver(func(s State) { states = append(states, s) }))

	res, err := d.Dispatch(context.Background(), ProcessRequest{
		UserID: "user-1",
		Tool:   "preview",
		Files: []Source{
			txt("notes.txt", "hello"),
			memSource{name: "song.mp3", ctype: "audio/mpeg", data: []byte("ID3....")},
		},
	})
	require.NoError(t, err)

	assert.Nil(t, res.Result)
	require.Len(t, res.Previews, 2)
	assert.Equal(t, "notes.txt", res.Previews[0].DisplayName)
	assert.Equal(t, int64(5), res.Previews[0].Size)
	assert.Equal(t, "text/plain", res.Previews[0].DeclaredType)
	assert.True(t, strings.HasPrefix(res.Previews[0].TransientURL, "/uploads/"))
	assert.True(t, strings.HasSuffix(res.Previews[1].TransientURL, "-song.mp3"))

	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mFiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mStats.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
	assert.NotContains(t, states, StateRecording)
	assert.Equal(t, StateCompleted, states[len(states)-1])

	entries, err := os.ReadDir(area.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatcher_ExecutorFailure(t *testing.T) {
	exec := &countingExecutor{err: errors.New("disk full")}
	h := newHarness(t, func(dir string) transform.Toolbox {
		exec.dir = dir
		box := transform.NewToolbox(dir, nil, nil)
		box.Compressor = exec
		return box
	})

	_, err := h.d.Dispatch(context.Background(), ProcessRequest{
		UserID: "user-1",
		Tool:   "compress",
		Files:  []Source{txt("a.txt", "aaaa"), txt("b.txt", "bbbb")},
	})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assert.False(t, transform.IsValidation(err))
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, int32(1), exec.calls.Load())
	assert.Empty(t, h.files.all())
	assert.Equal(t, []State{StateReceived, StateValidated, StateExecuting, StateCleaningUp, StateAborted}, h.seen())
	assertNoTempFiles(t, h.area)
}

func TestDispatcher_RealExecutorFailureLeavesNoTempFiles(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.d.Dispatch(context.Background(), ProcessRequest{
		UserID: "user-1",
		Tool:   "merge",
		Files: []Source{
			memSource{name: "a.pdf", ctype: "application/pdf", data: []byte("not a pdf")},
			memSource{name: "b.pdf", ctype: "application/pdf", data: []byte("also not a pdf")},
		},
	})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assertNoTempFiles(t, h.area)
}

func TestDispatcher_UserRequired(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.d.Dispatch(context.Background(), ProcessRequest{Tool: "compress", Files: []Source{txt("a.txt", "x")}})
	assert.ErrorIs(t, err, ErrUserRequired)
}

func newMockedDispatcher(t *testing.T, mStore *storeMocks.MockStorage, mFiles *repoMocks.MockProcessedFileRepository, mStats *repoMocks.MockUserStatsRepository) (*Dispatcher, *staging.Area) {
	t.Helper()
	area, err := staging.NewArea(filepath.Join(t.TempDir(), "uploads"), zerolog.Nop())
	require.NoError(t, err)
	d := NewDispatcher(transform.NewToolbox(area.Dir(), nil, nil), area, mStore,
		NewProvenanceRecorder(mFiles), NewStatsAggregator(mStats))
	d.newID = func() string { return "fixed-id" }
	return d, area
}

func TestDispatcher_RecordFailureRemovesObject(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mFiles := new(repoMocks.MockProcessedFileRepository)
	mStats := new(repoMocks.MockUserStatsRepository)
	d, area := newMockedDispatcher(t, mStore, mFiles, mStats)

	mStore.On("Put", mock.Anything, "processed/fixed-id.zip", mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
		return o.ContentType == "application/zip" && o.Metadata["owner-id"] == "user-1"
	})).Return(storage.ObjectInfo{Key: "processed/fixed-id.zip"}, nil)
	mFiles.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	mStore.On("Delete", mock.Anything, "processed/fixed-id.zip").Return(nil)

	_, err := d.Dispatch(context.Background(), ProcessRequest{UserID: "user-1", Tool: "compress", Files: []Source{txt("a.txt", "abc")}})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assert.Contains(t, err.Error(), "db save failed: connection refused")
	mStore.AssertExpectations(t)
	mStats.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
	assertNoTempFiles(t, area)
}

func TestObjectMetadata_IsASCII(t *testing.T) {
	md := objectMetadata("résumé final_compressed.zip", "user-ü")

	assert.Equal(t, "r%C3%A9sum%C3%A9+final_compressed.zip", md["display-name"])
	assert.Equal(t, "user-%C3%BC", md["owner-id"])
	for k, v := range md {
		for _, r := range v {
			assert.Less(t, r, rune(0x80), "%s carries a non-ASCII rune", k)
		}
	}
}

func TestDispatcher_NonASCIINameIsEscapedInObjectMetadata(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mFiles := new(repoMocks.MockProcessedFileRepository)
	mStats := new(repoMocks.MockUserStatsRepository)
	d, area := newMockedDispatcher(t, mStore, mFiles, mStats)

	mStore.On("Put", mock.Anything, "processed/fixed-id.zip", mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
		return o.Metadata["display-name"] == "r%C3%A9sum%C3%A9_compressed.zip"
	})).Return(storage.ObjectInfo{Key: "processed/fixed-id.zip"}, nil)
	mFiles.On("Create", mock.Anything, mock.MatchedBy(func(f *model.ProcessedFile) bool {
		return f.DisplayName == "résumé_compressed.zip"
	})).Return(&model.ProcessedFile{ID: "fixed-id"}, nil)
	mStats.On("Increment", mock.Anything, "user-1", mock.Anything).Return(nil)

	res, err := d.Dispatch(context.Background(), ProcessRequest{UserID: "user-1", Tool: "compress", Files: []Source{txt("résumé.txt", "abc")}})

	require.NoError(t, err)
	assert.Equal(t, "résumé_compressed.zip", res.Result.DisplayName)
	mStore.AssertExpectations(t)
	mFiles.AssertExpectations(t)
	assertNoTempFiles(t, area)
}

func TestDispatcher_RecordFailureAndRollbackFailure(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mFiles := new(repoMocks.MockProcessedFileRepository)
	mStats := new(repoMocks.MockUserStatsRepository)
	d, _ := newMockedDispatcher(t, mStore, mFiles, mStats)

	mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
	mFiles.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
	mStore.On("Delete", mock.Anything, "processed/fixed-id.zip").Return(errors.New("bucket gone"))

	_, err := d.Dispatch(context.Background(), ProcessRequest{UserID: "user-1", Tool: "compress", Files: []Source{txt("a.txt", "abc")}})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assert.Contains(t, err.Error(), "db save failed: db fail; rollback delete failed: bucket gone")
}

func TestDispatcher_StatsFailureRemovesRecordAndObject(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mFiles := new(repoMocks.MockProcessedFileRepository)
	mStats := new(repoMocks.MockUserStatsRepository)
	d, area := newMockedDispatcher(t, mStore, mFiles, mStats)

	mStore.On("Put", mock.Anything, "processed/fixed-id.zip", mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
	mFiles.On("Create", mock.Anything, mock.MatchedBy(func(f *model.ProcessedFile) bool {
		return f.ID == "fixed-id" && f.OwnerID == "user-1" && f.ToolUsed == "compress" && f.OriginalSize == 3
	})).Return(&model.ProcessedFile{ID: "fixed-id"}, nil)
	mStats.On("Increment", mock.Anything, "user-1", mock.MatchedBy(func(delta model.StatsDelta) bool {
		return delta.Files == 1 && delta.OriginalBytes == 3
	})).Return(errors.New("serialization failure"))
	mFiles.On("Delete", mock.Anything, "fixed-id").Return(nil)
	mStore.On("Delete", mock.Anything, "processed/fixed-id.zip").Return(nil)

	_, err := d.Dispatch(context.Background(), ProcessRequest{UserID: "user-1", Tool: "compress", Files: []Source{txt("a.txt", "abc")}})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assert.Contains(t, err.Error(), "stats update failed: serialization failure")
	mFiles.AssertExpectations(t)
	mStore.AssertExpectations(t)
	mStats.AssertExpectations(t)
	assertNoTempFiles(t, area)
}

func TestDispatcher_ConcurrentCompressEachCountOnce(t *testing.T) {
	h := newHarness(t, nil)

	const n = 2
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.d.Dispatch(context.Background(), ProcessRequest{
				UserID: "user-1",
				Tool:   "compress",
				Files:  []Source{txt("doc.txt", strings.Repeat("z", 100*(i+1)))},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := h.stats.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalFiles)
	assert.Equal(t, int64(300), stats.TotalSize)
	assert.Len(t, h.files.all(), 2)
	assertNoTempFiles(t, h.area)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.d.Dispatch(ctx, ProcessRequest{UserID: "user-1", Tool: "compress", Files: []Source{txt("a.txt", "abc")}})

	require.ErrorIs(t, err, ErrProcessingFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assertNoTempFiles(t, h.area)
}
