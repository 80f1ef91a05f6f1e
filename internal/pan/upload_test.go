package pan

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTempFile creates a file of the given content in a test temp dir.
func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	return path
}

// patternedBytes returns n deterministic non-repeating bytes.
func patternedBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}

	return b
}

// chunkRecord captures one received chunk upload.
type chunkRecord struct {
	partSeq string
	size    int
	md5     string
}

// uploadRecorder is a mock vendor for the chunked upload protocol.
type uploadRecorder struct {
	mu            sync.Mutex
	precreateForm map[string]string
	chunks        []chunkRecord
	createForm    map[string]string
	directCalls   int

	// chunkErrnoAt returns a non-zero errno for the given partseq, 0 otherwise.
	chunkErrnoAt func(partSeq string) int
}

func (u *uploadRecorder) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()

		switch r.URL.Query().Get("method") {
		case "precreate":
			require.NoError(t, r.ParseForm())

			u.precreateForm = formSnapshot(r)

			_, _ = w.Write([]byte(`{"errno":0,"uploadid":"UP-123","return_type":1}`))

		case "upload":
			seq, ok := r.URL.Query()["partseq"]
			if !ok {
				// Direct (small-file) upload carries no partseq.
				u.directCalls++
				_, _ = w.Write([]byte(`{"errno":0,"path":"/direct","size":100}`))

				return
			}

			require.NoError(t, r.ParseMultipartForm(8<<20))

			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()

			data, err := io.ReadAll(file)
			require.NoError(t, err)

			sum := md5.Sum(data)
			u.chunks = append(u.chunks, chunkRecord{
				partSeq: seq[0],
				size:    len(data),
				md5:     hex.EncodeToString(sum[:]),
			})

			if u.chunkErrnoAt != nil {
				if errno := u.chunkErrnoAt(seq[0]); errno != 0 {
					fmt.Fprintf(w, `{"errno":%d,"errmsg":"chunk rejected"}`, errno)

					return
				}
			}

			_, _ = w.Write([]byte(`{"errno":0,"md5":"` + hex.EncodeToString(sum[:]) + `"}`))

		case "create":
			require.NoError(t, r.ParseForm())

			u.createForm = formSnapshot(r)

			_, _ = w.Write([]byte(`{"errno":0,"path":"/remote/big.bin","size":4194305,"isdir":0}`))

		default:
			t.Errorf("unexpected method %q", r.URL.Query().Get("method"))
		}
	})
}

func formSnapshot(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		out[k] = r.PostFormValue(k)
	}

	return out
}

func TestUpload_SmallFile_SingleRequest(t *testing.T) {
	var calls atomic.Int32

	var gotPath, gotOnDup string

	var hasPartSeq bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		q := r.URL.Query()
		assert.Equal(t, "upload", q.Get("method"))

		gotPath = q.Get("path")
		gotOnDup = q.Get("ondup")
		_, hasPartSeq = q["partseq"]

		_, _ = w.Write([]byte(`{"errno":0,"path":"/remote/small.txt","size":100,"md5":"abc"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	local := writeTempFile(t, "small.txt", patternedBytes(100))

	resp, err := client.Upload(context.Background(), local, "/remote/small.txt", UploadOptions{})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	// One request total: no precreate, no chunks, no finalize.
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "/remote/small.txt", gotPath)
	assert.Equal(t, "overwrite", gotOnDup, "ondup defaults to overwrite")
	assert.False(t, hasPartSeq)
}

func TestUpload_ChunkBoundary_TwoChunks(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	content := patternedBytes(ChunkSize + 1)
	local := writeTempFile(t, "big.bin", content)

	resp, err := client.Upload(context.Background(), local, "/remote/big.bin", UploadOptions{OnDup: OnDupNewCopy})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	// Precreate carries the registration fields and an empty block list.
	require.NotNil(t, rec.precreateForm)
	assert.Equal(t, "/remote/big.bin", rec.precreateForm["path"])
	assert.Equal(t, fmt.Sprint(ChunkSize+1), rec.precreateForm["size"])
	assert.Equal(t, "0", rec.precreateForm["isdir"])
	assert.Equal(t, "1", rec.precreateForm["autoinit"])
	assert.Equal(t, "3", rec.precreateForm["rtype"])
	assert.Equal(t, "[]", rec.precreateForm["block_list"])
	assert.Equal(t, "newcopy", rec.precreateForm["ondup"])

	// Exactly two chunks: 4 MiB then 1 byte, in read order.
	require.Len(t, rec.chunks, 2)
	assert.Equal(t, "0", rec.chunks[0].partSeq)
	assert.Equal(t, ChunkSize, rec.chunks[0].size)
	assert.Equal(t, "1", rec.chunks[1].partSeq)
	assert.Equal(t, 1, rec.chunks[1].size)

	// Finalize carries the ordered chunk hash list.
	require.NotNil(t, rec.createForm)
	assert.Equal(t, "UP-123", rec.createForm["uploadid"])

	var blockList []string
	require.NoError(t, json.Unmarshal([]byte(rec.createForm["block_list"]), &blockList))
	require.Len(t, blockList, 2)
	assert.Equal(t, rec.chunks[0].md5, blockList[0])
	assert.Equal(t, rec.chunks[1].md5, blockList[1])

	// The recorded chunk hashes are the hashes of the source in read order.
	firstSum := md5.Sum(content[:ChunkSize])
	lastSum := md5.Sum(content[ChunkSize:])
	assert.Equal(t, hex.EncodeToString(firstSum[:]), blockList[0])
	assert.Equal(t, hex.EncodeToString(lastSum[:]), blockList[1])
}

func TestUpload_ExactMultipleOfChunkSize(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	local := writeTempFile(t, "even.bin", patternedBytes(2*ChunkSize))

	resp, err := client.Upload(context.Background(), local, "/remote/even.bin", UploadOptions{})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	require.Len(t, rec.chunks, 2)
	assert.Equal(t, ChunkSize, rec.chunks[0].size)
	assert.Equal(t, ChunkSize, rec.chunks[1].size)
}

func TestUpload_ChunkRejection_AbortsImmediately(t *testing.T) {
	rec := &uploadRecorder{
		chunkErrnoAt: func(partSeq string) int {
			if partSeq == "1" {
				return 31024
			}

			return 0
		},
	}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	// Three chunks' worth of data; the rejection lands on the middle one.
	local := writeTempFile(t, "big.bin", patternedBytes(2*ChunkSize+5))

	resp, err := client.Upload(context.Background(), local, "/remote/big.bin", UploadOptions{})
	require.NoError(t, err, "vendor rejection is a payload, not a Go error")
	assert.Equal(t, 31024, resp.Errno)
	assert.Equal(t, "chunk rejected", resp.ErrMsg)

	// Chunk 2 was never sent and the session was never finalized.
	require.Len(t, rec.chunks, 2)
	assert.Equal(t, "0", rec.chunks[0].partSeq)
	assert.Equal(t, "1", rec.chunks[1].partSeq)
	assert.Nil(t, rec.createForm)
}

func TestUpload_PrecreateRejection_ReturnedVerbatim(t *testing.T) {
	var chunkCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "precreate":
			_, _ = w.Write([]byte(`{"errno":-6,"errmsg":"invalid token","request_id":42}`))
		default:
			chunkCalls.Add(1)
			_, _ = w.Write([]byte(`{"errno":0}`))
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	local := writeTempFile(t, "big.bin", patternedBytes(ChunkSize+1))

	resp, err := client.Upload(context.Background(), local, "/x", UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, -6, resp.Errno)
	assert.Equal(t, "invalid token", resp.ErrMsg)
	assert.Equal(t, int64(42), resp.RequestID)
	assert.Equal(t, int32(0), chunkCalls.Load())
}

func TestUpload_PrecreateMissingUploadID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "precreate", r.URL.Query().Get("method"))
		_, _ = w.Write([]byte(`{"errno":0}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	local := writeTempFile(t, "big.bin", patternedBytes(ChunkSize+1))

	_, err := client.Upload(context.Background(), local, "/x", UploadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUploadID)
}

func TestUpload_MissingLocalFile(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "/x", UploadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, int32(0), calls.Load())
}

func TestUpload_DirectoryRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Upload(context.Background(), t.TempDir(), "/x", UploadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestUpload_ProgressReceivesAllBytes(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	content := patternedBytes(ChunkSize + 100)
	local := writeTempFile(t, "big.bin", content)

	var progress bytes.Buffer

	_, err := client.Upload(context.Background(), local, "/x", UploadOptions{Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, len(content), progress.Len())
}

func TestFileMD5_StreamsWholeFile(t *testing.T) {
	content := patternedBytes(3*hashBufferSize + 17)
	local := writeTempFile(t, "data.bin", content)

	got, err := fileMD5(local)
	require.NoError(t, err)

	want := md5.Sum(content)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}
