package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/blob"
	"github.com/ava-vs/chunkvault/internal/server/chunk"
	"github.com/ava-vs/chunkvault/internal/server/manifest"
	"github.com/ava-vs/chunkvault/internal/server/models"
	"github.com/ava-vs/chunkvault/internal/server/repositories/keygrants"
	"github.com/ava-vs/chunkvault/internal/server/repositories/products"
	"github.com/ava-vs/chunkvault/internal/server/repositories/receipts"
	"github.com/ava-vs/chunkvault/internal/server/repositories/transfers"
)

// -------- test fakes --------

type fakeProductsRepo struct {
	products.Repository

	mu        sync.Mutex
	committed map[string]*models.ChunkManifest
	pointers  map[string]string
	setErr    error
	setCalls  int
}

func newFakeProductsRepo() *fakeProductsRepo {
	return &fakeProductsRepo{
		committed: make(map[string]*models.ChunkManifest),
		pointers:  make(map[string]string),
	}
}

func (f *fakeProductsRepo) SetManifest(ctx context.Context, id string, m *models.ChunkManifest, storagePointer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.committed[id] = m
	f.pointers[id] = storagePointer
	return nil
}

type fakeRepoManager struct {
	products *fakeProductsRepo
}

func (f *fakeRepoManager) Products(db dbx.DBTX) products.Repository   { return f.products }
func (f *fakeRepoManager) Transfers(db dbx.DBTX) transfers.Repository { return nil }
func (f *fakeRepoManager) KeyGrants(db dbx.DBTX) keygrants.Repository { return nil }
func (f *fakeRepoManager) Receipts(db dbx.DBTX) receipts.Repository   { return nil }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

type managerFixture struct {
	manager  *Manager
	sessions *MemorySessionStore
	store    *blob.MemoryStore
	products *fakeProductsRepo
}

func newFixture(t *testing.T, verify bool) *managerFixture {
	t.Helper()
	sessions := NewMemorySessionStore()
	store := blob.NewMemoryStore()
	repo := newFakeProductsRepo()
	m := NewManager(sessions, store, nil, &fakeRepoManager{products: repo},
		manifest.NewValidator(), testLogger(), 0, verify)
	return &managerFixture{manager: m, sessions: sessions, store: store, products: repo}
}

// uploadAll pushes len(parts) chunks and returns a matching manifest.
func uploadAll(t *testing.T, fx *managerFixture, uploadID string, parts [][]byte, chunkSize int64) *models.ChunkManifest {
	t.Helper()
	ctx := context.Background()

	man := &models.ChunkManifest{TotalChunks: len(parts), ChunkSize: chunkSize, ContentHash: "whole"}
	for i, p := range parts {
		hash, err := fx.manager.UploadChunk(ctx, uploadID, i, p)
		require.NoError(t, err)
		assert.Equal(t, chunk.Hash(p), hash)
		man.Chunks = append(man.Chunks, models.ChunkInfo{Index: i, Hash: hash, Size: int64(len(p))})
		man.TotalSize += int64(len(p))
	}
	return man
}

// -------- tests --------

func TestInitializeUpload_ExpectedChunks(t *testing.T) {
	tests := []struct {
		totalSize, chunkSize int64
		want                 int
	}{
		{totalSize: 10, chunkSize: 4, want: 3},
		{totalSize: 12, chunkSize: 4, want: 3},
		{totalSize: 1, chunkSize: 4, want: 1},
		{totalSize: 4, chunkSize: 4, want: 1},
		{totalSize: 5, chunkSize: 4, want: 2},
	}

	fx := newFixture(t, false)
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d_%d", tc.totalSize, tc.chunkSize), func(t *testing.T) {
			s, err := fx.manager.InitializeUpload(context.Background(), "p1", tc.totalSize, tc.chunkSize)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.ExpectedChunks)
			assert.Equal(t, StoragePrefix("p1", s.UploadID), s.StoragePrefix)
		})
	}
}

func TestInitializeUpload_RejectsBadSizes(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	_, err := fx.manager.InitializeUpload(ctx, "p1", 0, 4)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = fx.manager.InitializeUpload(ctx, "p1", 10, 0)
	assert.ErrorIs(t, err, common.ErrorValidation)

	assert.Equal(t, 0, fx.sessions.Len())
}

func TestInitializeUpload_RejectsChunkSizeOverPolicy(t *testing.T) {
	sessions := NewMemorySessionStore()
	m := NewManager(sessions, blob.NewMemoryStore(), nil, &fakeRepoManager{products: newFakeProductsRepo()},
		manifest.NewValidator(), testLogger(), 1024, false)

	_, err := m.InitializeUpload(context.Background(), "p1", 10_000, 2048)
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "exceeds maximum 1024")
	assert.Equal(t, 0, sessions.Len())
}

func TestUploadChunk_UnknownSession(t *testing.T) {
	fx := newFixture(t, false)
	_, err := fx.manager.UploadChunk(context.Background(), "nope", 0, []byte("x"))
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestUploadChunk_IndexOutOfRange(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 10, 4)
	require.NoError(t, err)

	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 3, []byte("x"))
	require.ErrorIs(t, err, common.ErrInvalidChunkIndex)
	assert.Contains(t, err.Error(), "index 3")

	_, err = fx.manager.UploadChunk(ctx, s.UploadID, -1, []byte("x"))
	assert.ErrorIs(t, err, common.ErrInvalidChunkIndex)
}

func TestUploadChunk_RepeatIndexIdempotentAndOverwrites(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 10, 4)
	require.NoError(t, err)

	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 0, []byte("first"))
	require.NoError(t, err)
	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 0, []byte("second"))
	require.NoError(t, err)

	var uploaded int
	require.NoError(t, fx.sessions.View(s.UploadID, func(cur *models.UploadSession) {
		uploaded = len(cur.UploadedChunks)
	}))
	assert.Equal(t, 1, uploaded)

	// Last write wins on the stored bytes.
	data, err := fx.store.Get(ctx, chunk.ObjectKey(s.StoragePrefix, 0))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestUploadChunk_ConcurrentDistinctIndices(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	const n = 50
	s, err := fx.manager.InitializeUpload(ctx, "p1", int64(n*4), 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := fx.manager.UploadChunk(ctx, s.UploadID, idx, []byte(fmt.Sprintf("c%03d", idx)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var uploaded int
	require.NoError(t, fx.sessions.View(s.UploadID, func(cur *models.UploadSession) {
		uploaded = len(cur.UploadedChunks)
	}))
	assert.Equal(t, n, uploaded)
}

func TestCompleteUpload_RejectsIncomplete(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 10, 4)
	require.NoError(t, err)

	// Chunks {0,1} of 3.
	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 0, []byte("abcd"))
	require.NoError(t, err)
	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 1, []byte("efgh"))
	require.NoError(t, err)

	man := &models.ChunkManifest{
		Chunks: []models.ChunkInfo{
			{Index: 0, Hash: chunk.Hash([]byte("abcd")), Size: 4},
			{Index: 1, Hash: chunk.Hash([]byte("efgh")), Size: 4},
			{Index: 2, Hash: chunk.Hash([]byte("ij")), Size: 2},
		},
		TotalChunks: 3, ChunkSize: 4, TotalSize: 10, ContentHash: "whole",
	}

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.ErrorIs(t, err, common.ErrIncompleteUpload)
	assert.Contains(t, err.Error(), "2 of 3")

	// Uploading the missing chunk makes the same call succeed.
	_, err = fx.manager.UploadChunk(ctx, s.UploadID, 2, []byte("ij"))
	require.NoError(t, err)

	productID, err := fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.NoError(t, err)
	assert.Equal(t, "p1", productID)
	assert.Equal(t, s.StoragePrefix, fx.products.pointers["p1"])
}

func TestCompleteUpload_AtMostOnce(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 4, 4)
	require.NoError(t, err)
	man := uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd")}, 4)

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.NoError(t, err)

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
	assert.Equal(t, 1, fx.products.setCalls)
}

func TestCompleteUpload_ManifestSessionMismatch(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 8, 4)
	require.NoError(t, err)
	man := uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd"), []byte("efgh")}, 4)

	man.ChunkSize = 8
	man.TotalChunks = 1
	man.Chunks = man.Chunks[:1]
	man.TotalSize = 4

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.ErrorIs(t, err, common.ErrManifestInvalid)

	// Session survives a rejected completion.
	assert.Equal(t, 1, fx.sessions.Len())
}

func TestCompleteUpload_TotalSizeMismatch(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 8, 4)
	require.NoError(t, err)
	man := uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd"), []byte("efgh")}, 4)

	// Internally consistent manifest (sizes sum to its own total) that
	// declares a total the session never did.
	man.Chunks[1].Size = 5
	man.TotalSize = 9

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.ErrorIs(t, err, common.ErrManifestInvalid)
	assert.Contains(t, err.Error(), "total_size 9")
	assert.Equal(t, 0, fx.products.setCalls)
}

func TestCompleteUpload_VerifyStoredRejectsTamperedChunk(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 8, 4)
	require.NoError(t, err)
	man := uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd"), []byte("efgh")}, 4)

	// Claim a different hash for chunk 1 than what storage holds.
	man.Chunks[1].Hash = chunk.Hash([]byte("forged"))

	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.ErrorIs(t, err, common.ErrManifestInvalid)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestCompleteUpload_CatalogFailureKeepsSession(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 4, 4)
	require.NoError(t, err)
	man := uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd")}, 4)

	fx.products.setErr = fmt.Errorf("%w: catalog down", common.ErrStorageUnavailable)
	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	// The session must still be completable once the catalog recovers.
	fx.products.setErr = nil
	_, err = fx.manager.CompleteUpload(ctx, s.UploadID, man)
	assert.NoError(t, err)
}

func TestAbortUpload_DeletesSessionAndChunks(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	s, err := fx.manager.InitializeUpload(ctx, "p1", 8, 4)
	require.NoError(t, err)
	uploadAll(t, fx, s.UploadID, [][]byte{[]byte("abcd"), []byte("efgh")}, 4)

	require.NoError(t, fx.manager.AbortUpload(ctx, s.UploadID))

	assert.Equal(t, 0, fx.sessions.Len())
	assert.Equal(t, 0, fx.store.Len())

	assert.ErrorIs(t, fx.manager.AbortUpload(ctx, s.UploadID), common.ErrSessionNotFound)
}

func TestSweep_RemovesOnlyExpiredSessions(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	old, err := fx.manager.InitializeUpload(ctx, "p1", 8, 4)
	require.NoError(t, err)
	uploadAll(t, fx, old.UploadID, [][]byte{[]byte("abcd"), []byte("efgh")}, 4)

	fresh, err := fx.manager.InitializeUpload(ctx, "p2", 4, 4)
	require.NoError(t, err)

	// Backdate the first session past the age threshold.
	require.NoError(t, fx.sessions.Update(old.UploadID, func(s *models.UploadSession) (bool, error) {
		s.CreatedAt = time.Now().Add(-2 * time.Hour)
		return false, nil
	}))

	swept := fx.manager.Sweep(ctx, time.Hour)
	assert.Equal(t, 1, swept)

	assert.ErrorIs(t, fx.manager.AbortUpload(ctx, old.UploadID), common.ErrSessionNotFound)
	assert.Equal(t, 1, fx.sessions.Len())

	// The expired session's chunk objects are gone; the fresh session is untouched.
	keys, err := fx.store.ListByPrefix(ctx, old.StoragePrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = fx.manager.UploadChunk(ctx, fresh.UploadID, 0, []byte("abcd"))
	assert.NoError(t, err)
}
