package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zainab-noor-25/invoice-api/constants"
	"github.com/zainab-noor-25/invoice-api/internal/chunker"
	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/entity"
	"github.com/zainab-noor-25/invoice-api/internal/extract"
	"github.com/zainab-noor-25/invoice-api/internal/ocr"
)

type memStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]entity.Document
	chunks   map[uuid.UUID][]entity.Chunk
	statuses []constants.DocumentStatus
	saves    int
}

func newMemStore() *memStore {
	return &memStore{docs: map[uuid.UUID]entity.Document{}, chunks: map[uuid.UUID][]entity.Chunk{}}
}

func (m *memStore) Create(_ context.Context, d *entity.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	m.docs[d.ID] = *d
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, common.NotFoundf("invoice %s", id)
	}
	return &d, nil
}

func (m *memStore) GetBySHA256(context.Context, string) (*entity.Document, error) {
	return nil, common.NotFoundf("nope")
}

func (m *memStore) List(context.Context, int) ([]entity.Document, error) { return nil, nil }

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, s constants.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.docs[id]
	d.Status = s
	m.docs[id] = d
	m.statuses = append(m.statuses, s)
	return nil
}

func (m *memStore) SaveResult(_ context.Context, id uuid.UUID, r entity.ProcessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.docs[id]
	d.Status, d.OCRText, d.OCRRawText, d.OCRVariant = r.Status, r.OCRText, r.OCRRawText, r.OCRVariant
	d.Fields, d.ChunkCount, d.Error = r.Fields, r.ChunkCount, r.Error
	m.docs[id] = d
	m.statuses = append(m.statuses, r.Status)
	m.saves++
	return nil
}

func (m *memStore) InsertChunks(_ context.Context, cs []entity.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		m.chunks[c.DocumentID] = append(m.chunks[c.DocumentID], c)
	}
	return nil
}

func (m *memStore) ListChunks(_ context.Context, id uuid.UUID) ([]entity.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[id], nil
}

func (m *memStore) CountChunks(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks[id]), nil
}

func (m *memStore) DeleteChunks(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.chunks[id])
	delete(m.chunks, id)
	return int64(n), nil
}

type fakeRecognizer struct {
	res   ocr.Result
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, string) (ocr.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeExtractor struct {
	fields entity.ExtractedFields
	err    error
	calls  int
	input  extract.Input
}

func (f *fakeExtractor) Extract(_ context.Context, in extract.Input) (entity.ExtractedFields, extract.Report, error) {
	f.calls++
	f.input = in
	return f.fields, extract.Report{ModelCalled: true}, f.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fixture struct {
	store *memStore
	rec   *fakeRecognizer
	ext   *fakeExtractor
	emb   *fakeEmbedder
	ctrl  *Controller
	docID uuid.UUID
}

func newFixture(t *testing.T, text string) *fixture {
	t.Helper()
	split, err := chunker.New(chunker.WithSize(20), chunker.WithOverlap(5))
	require.NoError(t, err)

	f := &fixture{
		store: newMemStore(),
		rec:   &fakeRecognizer{res: ocr.Result{Text: text, RawText: text + " raw", Variant: constants.VariantMild, Source: constants.SourceOCR}},
		ext:   &fakeExtractor{fields: entity.ExtractedFields{TotalAmount: entity.Ptr(12.5)}},
		emb:   &fakeEmbedder{},
	}
	doc := &entity.Document{FileName: "a.png", FilePath: "/tmp/a.png", Status: constants.StatusUploaded}
	require.NoError(t, f.store.Create(context.Background(), doc))
	f.docID = doc.ID
	f.ctrl = NewController(Deps{
		Documents:  f.store,
		Chunks:     f.store,
		Recognizer: f.rec,
		Extractor:  f.ext,
		Splitter:   split,
		Embedder:   f.emb,
	}, 2, nil)
	return f
}

const sampleText = "INVOICE 1001\nBill To Acme\nGrand Total $12.50\nThanks"

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t, sampleText)

	st, err := f.ctrl.Process(context.Background(), f.docID)
	require.NoError(t, err)
	assert.Equal(t, constants.StageDone, st.Stage)
	assert.Equal(t, sampleText+" raw", f.ext.input.RawText)

	doc := f.store.docs[f.docID]
	assert.Equal(t, constants.StatusFieldsExtracted, doc.Status)
	assert.Equal(t, sampleText, doc.OCRText)
	assert.Equal(t, "mild", doc.OCRVariant)
	assert.Equal(t, 12.5, *doc.Fields.TotalAmount)
	assert.Nil(t, doc.Error)
	assert.Equal(t, []constants.DocumentStatus{constants.StatusProcessing, constants.StatusFieldsExtracted}, f.store.statuses)

	chunks := f.store.chunks[f.docID]
	assert.Equal(t, st.Chunks, len(chunks))
	assert.Equal(t, doc.ChunkCount, len(chunks))
	assert.Equal(t, len(chunks), f.emb.calls)
	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
		assert.Equal(t, []float32{1, 0}, c.Embedding)
	}
	assert.Equal(t, 1, f.store.saves)
}

func TestProcessOCRFailureShortCircuits(t *testing.T) {
	f := newFixture(t, sampleText)
	f.rec.err = common.RecognitionError("no rendering could be recognized", nil)

	st, err := f.ctrl.Process(context.Background(), f.docID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRecognition)
	assert.Equal(t, constants.StageFailed, st.Stage)
	assert.Equal(t, constants.StageOCR, st.FailedAt)
	assert.Zero(t, f.ext.calls)
	assert.Zero(t, f.emb.calls)

	doc := f.store.docs[f.docID]
	assert.Equal(t, constants.StatusError, doc.Status)
	require.NotNil(t, doc.Error)
	assert.Contains(t, *doc.Error, "recognition failure")
	assert.Empty(t, doc.OCRText)
}

func TestProcessExtractTransportFailure(t *testing.T) {
	f := newFixture(t, sampleText)
	f.ext.err = common.TransportError("llm", errors.New("timeout"))

	st, err := f.ctrl.Process(context.Background(), f.docID)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, constants.StageExtract, st.FailedAt)
	assert.Zero(t, f.emb.calls)
	assert.Empty(t, f.store.chunks[f.docID])
	assert.Equal(t, constants.StatusError, f.store.docs[f.docID].Status)
}

func TestProcessEmptyTextIsNotAFailure(t *testing.T) {
	f := newFixture(t, "  ")

	st, err := f.ctrl.Process(context.Background(), f.docID)
	require.NoError(t, err)
	assert.Equal(t, constants.StageDone, st.Stage)
	assert.Zero(t, st.Chunks)
	assert.Zero(t, f.emb.calls)
	assert.Equal(t, constants.StatusFieldsExtracted, f.store.docs[f.docID].Status)
}

func TestProcessEmbeddingFailureStoresNoChunks(t *testing.T) {
	f := newFixture(t, sampleText)
	f.emb.err = common.TransportError("ollama", errors.New("503"))

	st, err := f.ctrl.Process(context.Background(), f.docID)
	assert.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, constants.StageChunkEmbed, st.FailedAt)
	assert.Empty(t, f.store.chunks[f.docID])
	assert.Equal(t, 0, f.store.docs[f.docID].ChunkCount)
}

func TestReprocessReplacesChunks(t *testing.T) {
	f := newFixture(t, sampleText)
	ctx := context.Background()

	first, err := f.ctrl.Process(ctx, f.docID)
	require.NoError(t, err)

	second, err := f.ctrl.Reprocess(ctx, f.docID)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, second.Chunks)

	n, err := f.store.CountChunks(ctx, f.docID)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, n)
	assert.Equal(t, 2, f.rec.calls)
}

func TestProcessUnknownDocument(t *testing.T) {
	f := newFixture(t, sampleText)
	_, err := f.ctrl.Process(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, f.rec.calls)

	_, err = f.ctrl.Reprocess(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}
