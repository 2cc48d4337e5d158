package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/internal/httpclient"
	"github.com/stacklok/toolhive-mime-registry/internal/notify"
	"github.com/stacklok/toolhive-mime-registry/internal/registry"
	"github.com/stacklok/toolhive-mime-registry/internal/sources"
	sourcemocks "github.com/stacklok/toolhive-mime-registry/internal/sources/mocks"
	"github.com/stacklok/toolhive-mime-registry/internal/storage"
	"github.com/stacklok/toolhive-mime-registry/internal/storage/mocks"
	"github.com/stacklok/toolhive-mime-registry/internal/sync/state"
	"github.com/stacklok/toolhive-mime-registry/internal/telemetry"
	"github.com/stacklok/toolhive-mime-registry/internal/validators"
)

const snapshotName = "registry.json"

// upstream serves a mime.types document
type upstream struct {
	etag       string
	body       string
	headStatus int
	getStatus  int
	gets       atomic.Int32
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.etag != "" {
		w.Header().Set("ETag", u.etag)
	}
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(statusOr(u.headStatus))
	case http.MethodGet:
		u.gets.Add(1)
		w.WriteHeader(statusOr(u.getStatus))
		_, _ = w.Write([]byte(u.body))
	}
}

func statusOr(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

// newTestServer creates a new test server with keep-alives disabled.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)
	return server
}

type testEnv struct {
	store    storage.Store
	manager  Manager
	changes  []registry.Delta
	upstream map[string]*upstream
}

// newTestEnv starts one server per upstream and builds a manager over them.
// seed, when non-nil, is persisted before the manager loads its snapshot.
func newTestEnv(t *testing.T, seed *state.Snapshot, upstreams map[string]*upstream, formats ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		store:    storage.NewMemoryStore(),
		upstream: upstreams,
	}
	stateService := state.NewSnapshotService(env.store, snapshotName)
	if seed != nil {
		require.NoError(t, stateService.Save(ctx, seed))
	}

	var srcs []config.SourceConfig
	for _, name := range formats {
		server := newTestServer(t, upstreams[name])
		srcs = append(srcs, config.SourceConfig{Name: name, URL: server.URL, Format: name})
	}

	notifier := notify.New()
	notifier.OnChange(func(d registry.Delta) { env.changes = append(env.changes, d) })

	factory := sources.NewSourceHandlerFactory(httpclient.NewDefaultClient(5 * time.Second))
	manager, err := NewDefaultSyncManager(ctx, factory, srcs, stateService, WithNotifier(notifier))
	require.NoError(t, err)
	env.manager = manager

	return env
}

func (e *testEnv) reload(t *testing.T) *state.Snapshot {
	t.Helper()
	return state.NewSnapshotService(e.store, snapshotName).Load(context.Background())
}

func newEmptyManager(t *testing.T) Manager {
	t.Helper()
	return newTestEnv(t, nil, nil).manager
}

func TestManager_SetOneThenLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		extension string
		mediaType string
		path      string
	}{
		{extension: "jpg", mediaType: "image/jpeg", path: "photo.jpg"},
		{extension: "JPG", mediaType: "IMAGE/JPEG", path: "/var/www/PHOTO.JPG"},
		{extension: "txt", mediaType: "text/plain; charset=utf-8", path: `C:\docs\readme.txt`},
		{extension: "json", mediaType: "application/vnd.api+json", path: "json"},
		{extension: "c++", mediaType: "text/x-c", path: "main.c++"},
	}

	for _, tt := range tests {
		t.Run(tt.extension+" "+tt.mediaType, func(t *testing.T) {
			t.Parallel()
			manager := newEmptyManager(t)

			added, err := manager.SetOne(context.Background(), tt.extension, tt.mediaType)
			require.NoError(t, err)
			assert.True(t, added)

			types, err := manager.Lookup(tt.path)
			require.NoError(t, err)
			require.Len(t, types, 1)
			assert.Equal(t, validators.Essence(tt.mediaType), validators.Essence(types[0]))
		})
	}
}

func TestManager_SetOneIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	manager := newEmptyManager(t)

	added, err := manager.SetOne(ctx, "jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = manager.SetOne(ctx, "JPG", "Image/JPEG; q=0.9")
	require.NoError(t, err)
	assert.False(t, added)

	types, err := manager.Lookup("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"image/jpeg"}, types)
}

func TestManager_SetOneKeepsTypesSorted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	manager := newEmptyManager(t)

	for _, mt := range []string{"video/mp4", "audio/mp4", "application/mp4"} {
		_, err := manager.SetOne(ctx, "mp4", mt)
		require.NoError(t, err)
	}

	types, err := manager.Lookup("clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"application/mp4", "audio/mp4", "video/mp4"}, types)
}

func TestManager_DeleteOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := state.Empty()
	seed.Registry = registry.NewTestRegistry(
		registry.WithEntry("mp4", "audio/mp4", "video/mp4"),
		registry.WithEntry("txt", "text/plain"),
	)
	env := newTestEnv(t, seed, nil)
	manager := env.manager

	t.Run("missing association leaves registry unchanged", func(t *testing.T) {
		before := manager.Snapshot()

		removed, err := manager.DeleteOne(ctx, "txt", "text/html")
		require.NoError(t, err)
		assert.False(t, removed)

		removed, err = manager.DeleteOne(ctx, "unknown", "text/plain")
		require.NoError(t, err)
		assert.False(t, removed)

		assert.True(t, before.Equal(manager.Snapshot()))
	})

	t.Run("removes by essence", func(t *testing.T) {
		removed, err := manager.DeleteOne(ctx, "MP4", "Audio/MP4; codecs=mp4a")
		require.NoError(t, err)
		assert.True(t, removed)

		types, err := manager.Lookup("x.mp4")
		require.NoError(t, err)
		assert.Equal(t, []string{"video/mp4"}, types)
	})

	t.Run("removes the extension when its set empties", func(t *testing.T) {
		removed, err := manager.DeleteOne(ctx, "txt", "text/plain")
		require.NoError(t, err)
		assert.True(t, removed)

		_, exists := manager.Snapshot().Registry["txt"]
		assert.False(t, exists)

		types, err := manager.Lookup("notes.txt")
		require.NoError(t, err)
		assert.Empty(t, types)
	})

	t.Run("changes are persisted", func(t *testing.T) {
		assert.True(t, manager.Snapshot().Equal(env.reload(t)))
	})
}

func TestManager_ManualEditValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	manager := newEmptyManager(t)

	tests := []struct {
		name           string
		extension      string
		mediaType      string
		expectFields   []string
		unexpectFields []string
	}{
		{
			name:           "invalid extension",
			extension:      "tar.gz",
			mediaType:      "application/gzip",
			expectFields:   []string{"extension"},
			unexpectFields: []string{"mediaType"},
		},
		{
			name:           "invalid media type",
			extension:      "gz",
			mediaType:      "gzip",
			expectFields:   []string{"mediaType"},
			unexpectFields: []string{"extension"},
		},
		{
			name:         "both invalid are reported together",
			extension:    "",
			mediaType:    "not a type",
			expectFields: []string{"extension", "mediaType"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, op := range []func(context.Context, string, string) (bool, error){manager.SetOne, manager.DeleteOne} {
				ok, err := op(ctx, tt.extension, tt.mediaType)
				require.Error(t, err)
				assert.False(t, ok)
				assert.ErrorIs(t, err, validators.ErrMalformed)
				assert.NotErrorIs(t, err, validators.ErrWrongType)
				for _, field := range tt.expectFields {
					assert.Contains(t, err.Error(), field+" ")
				}
				for _, field := range tt.unexpectFields {
					assert.NotContains(t, err.Error(), field+" ")
				}
			}
			assert.Equal(t, 0, manager.Snapshot().Registry.Len())
		})
	}
}

func TestManager_Lookup(t *testing.T) {
	t.Parallel()

	seed := state.Empty()
	seed.Registry = registry.NewTestRegistry(registry.WithEntry("html", "text/html"))
	manager := newTestEnv(t, seed, nil).manager

	tests := []struct {
		name     string
		path     string
		expected []string
		err      error
	}{
		{name: "known extension", path: "index.html", expected: []string{"text/html"}},
		{name: "upper case", path: "INDEX.HTML", expected: []string{"text/html"}},
		{name: "nested path", path: "/srv/site.v2/index.html", expected: []string{"text/html"}},
		{name: "unknown extension", path: "archive.zzz", expected: []string{}},
		{name: "empty extension", path: "fileName.", err: validators.ErrMalformed},
		{name: "empty path", path: "", err: validators.ErrMalformed},
		{name: "invalid characters", path: "file.h*ml", err: validators.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			types, err := manager.Lookup(tt.path)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.NotErrorIs(t, err, validators.ErrWrongType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, types)
		})
	}
}

func TestManager_Synchronize_FreshSource(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, map[string]*upstream{
		config.SourceApache: {etag: `"fresh"`, body: "image/jpeg jpeg jpg"},
	}, config.SourceApache)

	delta, err := env.manager.Synchronize(context.Background(), false)
	require.NoError(t, err)

	expected := registry.Delta{
		"jpeg": {"image/jpeg"},
		"jpg":  {"image/jpeg"},
	}
	assert.Equal(t, expected, delta)
	require.Len(t, env.changes, 1)
	assert.Equal(t, expected, env.changes[0])

	persisted := env.reload(t)
	assert.Equal(t, `"fresh"`, persisted.Version(config.SourceApache))
	assert.Equal(t, []string{"image/jpeg"}, persisted.Registry.Lookup("jpg"))

	report := env.manager.LastReport()
	require.NotNil(t, report)
	assert.True(t, report.Persisted)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, OutcomeMerged, report.Sources[config.SourceApache].Outcome)
}

func TestManager_Synchronize_UnchangedVersionSkipsFetch(t *testing.T) {
	t.Parallel()

	seed := state.Empty()
	seed.Registry = registry.NewTestRegistry(registry.WithEntry("css", "text/css"))
	seed.Versions[config.SourceNginx] = `"v1"`

	env := newTestEnv(t, seed, map[string]*upstream{
		config.SourceNginx: {etag: `"v1"`, body: "types { text/css css; image/png png; }"},
	}, config.SourceNginx)

	delta, err := env.manager.Synchronize(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, delta)
	assert.True(t, delta.IsEmpty())

	assert.Equal(t, int32(0), env.upstream[config.SourceNginx].gets.Load())
	assert.Empty(t, env.changes)

	report := env.manager.LastReport()
	assert.Equal(t, OutcomeUnchanged, report.Sources[config.SourceNginx].Outcome)
	assert.False(t, report.Persisted)
}

func TestManager_Synchronize_ForceFetchesUnchangedSource(t *testing.T) {
	t.Parallel()

	seed := state.Empty()
	seed.Versions[config.SourceNginx] = `"v1"`

	env := newTestEnv(t, seed, map[string]*upstream{
		config.SourceNginx: {etag: `"v1"`, body: "types {\n  image/png png;\n}\n"},
	}, config.SourceNginx)

	delta, err := env.manager.Synchronize(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), env.upstream[config.SourceNginx].gets.Load())
	assert.Equal(t, registry.Delta{"png": {"image/png"}}, delta)

	// a second forced cycle fetches again but adds nothing and writes nothing
	delta, err = env.manager.Synchronize(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, delta.IsEmpty())
	assert.Equal(t, int32(2), env.upstream[config.SourceNginx].gets.Load())
	assert.False(t, env.manager.LastReport().Persisted)
	assert.Len(t, env.changes, 1)
}

func TestManager_Synchronize_ChangedVersionWithoutNewAssociations(t *testing.T) {
	t.Parallel()

	seed := state.Empty()
	seed.Registry = registry.NewTestRegistry(registry.WithEntry("txt", "text/plain"))
	seed.Versions[config.SourceDebian] = "v1"

	env := newTestEnv(t, seed, map[string]*upstream{
		config.SourceDebian: {etag: "v2", body: "text/plain txt"},
	}, config.SourceDebian)

	delta, err := env.manager.Synchronize(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, delta.IsEmpty())
	assert.Empty(t, env.changes, "no notification without new associations")

	// the new token is still recorded so the next probe is a no-op
	assert.Equal(t, "v2", env.reload(t).Version(config.SourceDebian))
	assert.True(t, env.manager.LastReport().Persisted)
}

func TestManager_Synchronize_PartialFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		apache          *upstream
		debian          *upstream
		apacheOutcome   Outcome
		debianOutcome   Outcome
		expectApacheGet bool
	}{
		{
			name:          "probe failures",
			apache:        &upstream{headStatus: http.StatusInternalServerError},
			debian:        &upstream{headStatus: http.StatusNotFound},
			apacheOutcome: OutcomeProbeFailed,
			debianOutcome: OutcomeProbeFailed,
		},
		{
			name:            "fetch failure and unparsable body",
			apache:          &upstream{etag: "a1", getStatus: http.StatusServiceUnavailable},
			debian:          &upstream{etag: "d1", body: "<html>moved</html>"},
			apacheOutcome:   OutcomeFetchFailed,
			debianOutcome:   OutcomeParseFailed,
			expectApacheGet: true,
		},
		{
			name:            "missing version token",
			apache:          &upstream{body: "text/css css"},
			debian:          &upstream{etag: "d1", body: "# only comments\n"},
			apacheOutcome:   OutcomeNoVersion,
			debianOutcome:   OutcomeParseFailed,
			expectApacheGet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, nil, map[string]*upstream{
				config.SourceApache: tt.apache,
				config.SourceDebian: tt.debian,
				config.SourceNginx:  {etag: `"n1"`, body: "types {\n  image/jpeg jpeg jpg;\n}\n"},
			}, config.SourceApache, config.SourceDebian, config.SourceNginx)

			delta, err := env.manager.Synchronize(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, registry.Delta{"jpeg": {"image/jpeg"}, "jpg": {"image/jpeg"}}, delta)

			report := env.manager.LastReport()
			assert.Equal(t, tt.apacheOutcome, report.Sources[config.SourceApache].Outcome)
			assert.Equal(t, tt.debianOutcome, report.Sources[config.SourceDebian].Outcome)
			assert.Equal(t, OutcomeMerged, report.Sources[config.SourceNginx].Outcome)
			assert.NotEmpty(t, report.Sources[config.SourceApache].Error)
			assert.Equal(t, []string{config.SourceApache, config.SourceDebian}, report.Failed())
			assert.Equal(t, tt.expectApacheGet, tt.apache.gets.Load() > 0)

			persisted := env.reload(t)
			assert.Equal(t, []string{"image/jpeg"}, persisted.Registry.Lookup("jpg"))
			assert.Equal(t, map[string]string{config.SourceNginx: `"n1"`}, persisted.Versions)
		})
	}
}

func TestManager_Synchronize_MergesSourcesInOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, map[string]*upstream{
		config.SourceApache: {etag: "a1", body: "audio/mp4 mp4\ntext/plain txt"},
		config.SourceDebian: {etag: "d1", body: "video/mp4 mp4\ntext/plain txt text"},
	}, config.SourceApache, config.SourceDebian)

	delta, err := env.manager.Synchronize(context.Background(), false)
	require.NoError(t, err)

	// debian's text/plain for txt already came from apache
	assert.ElementsMatch(t, []string{"audio/mp4", "video/mp4"}, delta["mp4"])
	assert.Equal(t, []string{"text/plain"}, delta["txt"])
	assert.Equal(t, []string{"text/plain"}, delta["text"])
	assert.Equal(t, 4, delta.Count())

	report := env.manager.LastReport()
	assert.Equal(t, 2, report.Sources[config.SourceApache].Added)
	assert.Equal(t, 2, report.Sources[config.SourceDebian].Added)

	types, err := env.manager.Lookup("clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"audio/mp4", "video/mp4"}, types)
}

func TestManager_SnapshotSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	env := newTestEnv(t, nil, map[string]*upstream{
		config.SourceApache: {etag: "a1", body: "image/gif gif"},
	}, config.SourceApache)

	_, err := env.manager.Synchronize(ctx, false)
	require.NoError(t, err)
	_, err = env.manager.SetOne(ctx, "webp", "image/webp")
	require.NoError(t, err)

	restarted, err := NewDefaultSyncManager(ctx,
		sources.NewSourceHandlerFactory(httpclient.NewDefaultClient(time.Second)),
		nil,
		state.NewSnapshotService(env.store, snapshotName))
	require.NoError(t, err)

	assert.True(t, env.manager.Snapshot().Equal(restarted.Snapshot()))
	assert.Nil(t, restarted.LastReport())
}

func TestManager_PersistenceFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Read(gomock.Any(), snapshotName).Return(nil, storage.ErrNotFound)
	store.EXPECT().Write(gomock.Any(), snapshotName, gomock.Any()).Return(errors.New("disk full")).AnyTimes()

	server := newTestServer(t, &upstream{etag: "a1", body: "image/jpeg jpg"})

	notifier := notify.New()
	notified := false
	notifier.OnChange(func(registry.Delta) { notified = true })

	manager, err := NewDefaultSyncManager(ctx,
		sources.NewSourceHandlerFactory(httpclient.NewDefaultClient(5*time.Second)),
		[]config.SourceConfig{{Name: config.SourceApache, URL: server.URL, Format: config.FormatApache}},
		state.NewSnapshotService(store, snapshotName),
		WithNotifier(notifier))
	require.NoError(t, err)

	t.Run("synchronize returns the error and keeps state", func(t *testing.T) {
		delta, err := manager.Synchronize(ctx, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to persist registry")
		assert.Nil(t, delta)
		assert.False(t, notified)
		assert.Equal(t, 0, manager.Snapshot().Registry.Len())
		assert.Empty(t, manager.Snapshot().Versions)

		report := manager.LastReport()
		assert.False(t, report.Persisted)
		assert.Contains(t, report.Error, "disk full")
	})

	t.Run("set returns the error and keeps state", func(t *testing.T) {
		added, err := manager.SetOne(ctx, "png", "image/png")
		require.Error(t, err)
		assert.False(t, added)

		types, err := manager.Lookup("a.png")
		require.NoError(t, err)
		assert.Empty(t, types)
	})
}

func TestManager_ConcurrentEdits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	env := newTestEnv(t, nil, map[string]*upstream{
		config.SourceApache: {etag: "a1", body: "text/css css"},
	}, config.SourceApache)

	var wg gosync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.manager.SetOne(ctx, fmt.Sprintf("ext%d", i), "application/octet-stream")
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := env.manager.Synchronize(ctx, false)
		assert.NoError(t, err)
	}()
	wg.Wait()

	snapshot := env.manager.Snapshot()
	assert.Equal(t, 21, snapshot.Registry.Len())
	assert.True(t, snapshot.Equal(env.reload(t)))
}

func TestNewDefaultSyncManager_HandlerCreationFailure(t *testing.T) {
	t.Parallel()

	_, err := NewDefaultSyncManager(context.Background(),
		sources.NewSourceHandlerFactory(httpclient.NewDefaultClient(time.Second)),
		[]config.SourceConfig{{Name: "bad", URL: "https://example.com/mime.types", Format: "iana"}},
		state.NewSnapshotService(storage.NewMemoryStore(), snapshotName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create handler for source bad")
}

// alwaysChanged forces a fetch on every cycle
type alwaysChanged struct{}

func (alwaysChanged) IsVersionChanged(context.Context, sources.SourceHandler, string) (bool, string, error) {
	return true, "", nil
}

func TestManager_Synchronize_WithMockHandlers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	empty := sourcemocks.NewMockSourceHandler(ctrl)
	empty.EXPECT().Name().Return("empty").AnyTimes()
	empty.EXPECT().FetchRegistry(gomock.Any()).
		Return(sources.NewFetchResult("empty", "e1", config.FormatApache, registry.New()), nil)

	good := sourcemocks.NewMockSourceHandler(ctrl)
	good.EXPECT().Name().Return("good").AnyTimes()
	good.EXPECT().FetchRegistry(gomock.Any()).
		Return(sources.NewFetchResult("good", "g1", config.FormatNginx,
			registry.NewTestRegistry(registry.WithEntry("wasm", "application/wasm"))), nil)

	factory := sourcemocks.NewMockSourceHandlerFactory(ctrl)
	factory.EXPECT().CreateHandler(gomock.Any()).Return(empty, nil)
	factory.EXPECT().CreateHandler(gomock.Any()).Return(good, nil)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	manager, err := NewDefaultSyncManager(ctx, factory,
		[]config.SourceConfig{{Name: "empty"}, {Name: "good"}},
		state.NewSnapshotService(storage.NewMemoryStore(), snapshotName),
		WithVersionChangeDetector(alwaysChanged{}),
		WithTracer(tp.Tracer(telemetry.TracerName)))
	require.NoError(t, err)

	delta, err := manager.Synchronize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, registry.Delta{"wasm": {"application/wasm"}}, delta)

	report := manager.LastReport()
	assert.Equal(t, OutcomeParseFailed, report.Sources["empty"].Outcome)
	assert.Equal(t, OutcomeMerged, report.Sources["good"].Outcome)
	assert.Equal(t, map[string]string{"good": "g1"}, manager.Snapshot().Versions)

	spans := exporter.GetSpans()
	names := make([]string, 0, len(spans))
	for _, span := range spans {
		names = append(names, span.Name)
	}
	assert.ElementsMatch(t, []string{"sync.source", "sync.source", "sync.Synchronize"}, names)
}
