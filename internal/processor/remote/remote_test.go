package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamarjahan/pdf-img-edit/internal/model"
	"github.com/kamarjahan/pdf-img-edit/internal/tempfile"
	"github.com/kamarjahan/pdf-img-edit/internal/tools"
)

// fakeService emulates the document service's session protocol and
// records what it was asked to do.
type fakeService struct {
	mu             sync.Mutex
	authCalls      int
	startCalls     int
	uploadCalls    int
	processCalls   int
	downloadCalls  int
	startedTool    string
	lastProcess    map[string]interface{}
	failUpload     bool
	processStatus  int
	processMessage string
	result         []byte
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authCalls++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})

	mux.HandleFunc("/start/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.startCalls++
		f.startedTool = strings.TrimPrefix(r.URL.Path, "/start/")
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"task": "task-1"})
	})

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.uploadCalls++
		n := f.uploadCalls
		fail := f.failUpload
		f.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "upload rejected"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"server_filename": fmt.Sprintf("srv-%d", n)})
	})

	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.processCalls++
		f.lastProcess = body
		status := f.processStatus
		message := f.processMessage
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "TaskSuccess"})
	})

	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.downloadCalls++
		result := f.result
		f.mu.Unlock()
		_, _ = w.Write(result)
	})

	return mux
}

func newFake(t *testing.T) (*fakeService, *Client) {
	t.Helper()

	fake := &fakeService{result: []byte("%PDF-1.7 processed")}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:   srv.URL,
		PublicKey: "pub",
		SecretKey: "sec",
	})
	return fake, client
}

func TestSessionLifecycle(t *testing.T) {
	fake, client := newFake(t)
	ctx := context.Background()

	path := stage(t, "one.pdf")

	sess := client.NewSession("merge")
	assert.Equal(t, StateCreated, sess.State())

	require.NoError(t, sess.Start(ctx))
	assert.Equal(t, StateStarted, sess.State())
	assert.Equal(t, "merge", fake.startedTool)

	require.NoError(t, sess.AttachFile(ctx, path, "one.pdf"))
	assert.Equal(t, StateFilesAttached, sess.State())

	require.NoError(t, sess.Process(ctx, map[string]string{}))
	assert.Equal(t, StateProcessed, sess.State())

	data, err := sess.Download(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 processed"), data)
	assert.Equal(t, StateDownloaded, sess.State())
}

func TestSessionRejectsOutOfOrderSteps(t *testing.T) {
	_, client := newFake(t)
	ctx := context.Background()

	sess := client.NewSession("merge")

	// Nothing before Start.
	assert.Error(t, sess.Process(ctx, nil))
	_, err := sess.Download(ctx)
	assert.Error(t, err)
	assert.Error(t, sess.AttachFile(ctx, "nope", "nope"))

	require.NoError(t, sess.Start(ctx))

	// Process needs at least one attached file.
	assert.Error(t, sess.Process(ctx, nil))

	// A started session cannot start again.
	assert.Error(t, sess.Start(ctx))
}

func TestStartFailsFastWithoutCredentials(t *testing.T) {
	fake := &fakeService{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, PublicKey: "pub"})

	sess := client.NewSession("merge")
	err := sess.Start(context.Background())

	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, StateFailed, sess.State())
	assert.Zero(t, fake.authCalls, "no request may reach the service without credentials")
}

func TestAttachFailureAbortsSession(t *testing.T) {
	fake, client := newFake(t)
	fake.failUpload = true
	ctx := context.Background()

	sess := client.NewSession("merge")
	require.NoError(t, sess.Start(ctx))

	err := sess.AttachFile(ctx, stage(t, "a.pdf"), "a.pdf")
	assert.ErrorIs(t, err, ErrProcessing)
	assert.Equal(t, StateFailed, sess.State())

	// A failed session must not attempt later steps.
	assert.Error(t, sess.Process(ctx, nil))
	assert.Zero(t, fake.processCalls)
}

func TestProcessSurfacesServiceMessage(t *testing.T) {
	fake, client := newFake(t)
	fake.processStatus = http.StatusUnprocessableEntity
	fake.processMessage = "invalid page range"
	ctx := context.Background()

	sess := client.NewSession("split")
	require.NoError(t, sess.Start(ctx))
	require.NoError(t, sess.AttachFile(ctx, stage(t, "a.pdf"), "a.pdf"))

	err := sess.Process(ctx, map[string]string{"split_mode": "ranges", "ranges": "1-2"})
	assert.ErrorIs(t, err, ErrProcessing)
	assert.Contains(t, err.Error(), "invalid page range")
}

func TestStrategyExecute(t *testing.T) {
	fake, client := newFake(t)
	st := NewStrategy(client)

	dir := t.TempDir()
	scope := tempfile.New(dir).Scope()

	desc, err := tools.Resolve("merge_pdf")
	require.NoError(t, err)

	files := []model.Payload{
		{Filename: "a.pdf", Data: []byte("%PDF-1.7 a")},
		{Filename: "b.pdf", Data: []byte("%PDF-1.7 b")},
	}

	data, err := st.Execute(context.Background(), desc, files, nil, scope)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 processed"), data)
	assert.Equal(t, 2, fake.uploadCalls)

	scope.ReleaseAll()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStrategyCompressDefaultsTier(t *testing.T) {
	fake, client := newFake(t)
	st := NewStrategy(client)

	scope := tempfile.New(t.TempDir()).Scope()
	defer scope.ReleaseAll()

	desc, err := tools.Resolve("compress_pdf")
	require.NoError(t, err)

	_, err = st.Execute(context.Background(), desc, []model.Payload{
		{Filename: "a.pdf", Data: []byte("%PDF-1.7")},
	}, nil, scope)
	require.NoError(t, err)

	assert.Equal(t, "recommended", fake.lastProcess["compression_level"])
}

func TestStrategyParamShaping(t *testing.T) {
	tests := []struct {
		tool   string
		params map[string]string
		want   map[string]string
	}{
		{
			tool:   "protect_pdf",
			params: map[string]string{"password": "s3cret"},
			want:   map[string]string{"password": "s3cret"},
		},
		{
			tool:   "watermark_pdf",
			params: map[string]string{"watermark_text": "CONFIDENTIAL"},
			want:   map[string]string{"mode": "text", "text": "CONFIDENTIAL"},
		},
		{
			tool:   "split_pdf",
			params: map[string]string{"split_ranges": "1-2,3-4"},
			want:   map[string]string{"split_mode": "ranges", "ranges": "1-2,3-4"},
		},
		{
			tool:   "compress_pdf",
			params: map[string]string{"compression_level": "extreme"},
			want:   map[string]string{"compression_level": "extreme"},
		},
		{
			tool:   "merge_pdf",
			params: map[string]string{"password": "ignored"},
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			desc, err := tools.Resolve(tt.tool)
			require.NoError(t, err)
			assert.Equal(t, tt.want, shapeParams(desc.Op, tt.params))
		})
	}
}

func TestStrategyNoStagingWithoutCredentials(t *testing.T) {
	fake := &fakeService{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	st := NewStrategy(client)

	dir := t.TempDir()
	scope := tempfile.New(dir).Scope()

	desc, err := tools.Resolve("merge_pdf")
	require.NoError(t, err)

	_, err = st.Execute(context.Background(), desc, []model.Payload{
		{Filename: "a.pdf", Data: []byte("%PDF-1.7")},
	}, nil, scope)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	// Credentials are checked before any temp-file I/O happens.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// stage writes a throwaway input file for attach calls.
func stage(t *testing.T, name string) string {
	t.Helper()
	h, err := tempfile.New(t.TempDir()).Acquire(name, []byte("%PDF-1.7"))
	require.NoError(t, err)
	return h.Path()
}
