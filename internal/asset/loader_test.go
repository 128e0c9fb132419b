package asset

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Faultbox/arviewer/internal/asset/assettest"
)

func serveModel(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.gltf":
			w.Write(body)
		case "/decoders/" + DecoderModule:
			w.Write([]byte("\x00asm"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoaderLocalFile(t *testing.T) {
	path := assettest.Box().WriteFile(t, t.TempDir(), "box.gltf")

	l := NewLoader()
	a, err := l.Load(context.Background(), path).Result()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := a.Bounds().MaxDimension(); got != 6 {
		t.Errorf("MaxDimension() = %v, want 6", got)
	}
	if a.Path != path {
		t.Errorf("Path = %q, want %q", a.Path, path)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader()
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.glb")).Result()
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Load() error = %v, want ErrNetwork", err)
	}
	if k, ok := KindOf(err); !ok || k != KindNetwork {
		t.Errorf("KindOf() = %v, %v, want network", k, ok)
	}
}

func TestLoaderHTTP(t *testing.T) {
	srv := serveModel(t, assettest.Animated().GLTF())

	l := NewLoader()
	a, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(a.Clips) != 1 {
		t.Errorf("Clips = %d, want 1", len(a.Clips))
	}
}

func TestLoaderHTTPNotFound(t *testing.T) {
	srv := serveModel(t, nil)

	l := NewLoader()
	_, err := l.Load(context.Background(), srv.URL+"/missing.glb").Result()
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Load() error = %v, want ErrNetwork", err)
	}
}

func TestLoaderDecodeError(t *testing.T) {
	srv := serveModel(t, []byte("garbage"))

	l := NewLoader()
	_, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Load() error = %v, want ErrDecode", err)
	}
}

func TestLoaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(WithTimeout(50 * time.Millisecond))
	_, err := l.Load(context.Background(), srv.URL+"/slow.glb").Result()
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Load() error = %v, want ErrTimeout", err)
	}
}

func TestLoaderPayloadLimit(t *testing.T) {
	srv := serveModel(t, assettest.Box().GLTF())

	l := NewLoader(WithMaxBytes(16))
	_, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Load() error = %v, want ErrNetwork", err)
	}
}

func TestLoaderCancel(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	l := NewLoader()
	p := l.Load(context.Background(), srv.URL+"/slow.glb")
	<-started
	p.Cancel()

	a, err := p.Result()
	if a != nil || !IsCanceled(err) {
		t.Errorf("Result() = %v, %v, want nil, canceled", a, err)
	}
}

func TestPendingCancelAfterCompletion(t *testing.T) {
	path := assettest.Box().WriteFile(t, t.TempDir(), "box.gltf")

	l := NewLoader()
	p := l.Load(context.Background(), path)
	<-p.Done()
	p.Cancel()

	r, ok := p.Poll()
	if !ok {
		t.Fatal("Poll() not ready after Done")
	}
	if r.Asset != nil || !IsCanceled(r.Err) {
		t.Errorf("Poll() = %+v, want canceled without asset", r)
	}
}

func TestPendingCancelAfterClaim(t *testing.T) {
	path := assettest.Box().WriteFile(t, t.TempDir(), "box.gltf")

	l := NewLoader()
	p := l.Load(context.Background(), path)
	a, err := p.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	p.Cancel()
	if a.Disposed() {
		t.Error("claimed asset disposed by Cancel")
	}
}

func TestLoaderCompressedNeedsLocation(t *testing.T) {
	m := assettest.Box()
	m.Compressed = true
	path := m.WriteFile(t, t.TempDir(), "draco.gltf")

	l := NewLoader(WithDecoderLocation(""))
	_, err := l.Load(context.Background(), path).Result()
	if !errors.Is(err, ErrDecode) || !errors.Is(err, ErrMissingDecoder) {
		t.Errorf("Load() error = %v, want ErrDecode wrapping ErrMissingDecoder", err)
	}
}

func TestLoaderDecoderInitializedOnce(t *testing.T) {
	path := compressedTetra().WriteFile(t, t.TempDir(), "draco.gltf")

	var calls atomic.Int32
	l := NewLoader(
		WithDecoderLocation("mem://decoders/"),
		WithDecoderFactory(func(ctx context.Context, location string) (GeometryDecoder, error) {
			calls.Add(1)
			return tetraDecoder(), nil
		}),
	)

	for i := 0; i < 3; i++ {
		if _, err := l.Load(context.Background(), path).Result(); err != nil {
			t.Fatalf("Load() #%d error = %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("factory called %d times, want 1", got)
	}
	if got := l.DecoderInits(); got != 1 {
		t.Errorf("DecoderInits() = %d, want 1", got)
	}
}

func TestLoaderNoDecoderForPlainGeometry(t *testing.T) {
	path := assettest.Box().WriteFile(t, t.TempDir(), "box.gltf")

	l := NewLoader(
		WithDecoderLocation("mem://decoders/"),
		WithDecoderFactory(func(ctx context.Context, location string) (GeometryDecoder, error) {
			t.Error("decoder initialized for plain geometry")
			return tetraDecoder(), nil
		}),
	)
	if _, err := l.Load(context.Background(), path).Result(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := l.DecoderInits(); got != 0 {
		t.Errorf("DecoderInits() = %d, want 0", got)
	}
}

func TestRemoteDecoderFactory(t *testing.T) {
	srv := serveModel(t, compressedTetra().GLTF())

	l := NewLoader(WithDecoderLocation(srv.URL + "/decoders/"))
	dec, err := l.RemoteDecoderFactory(context.Background(), srv.URL+"/decoders/")
	if err != nil {
		t.Fatalf("RemoteDecoderFactory() error = %v", err)
	}
	if _, ok := dec.(*dracoDecoder); !ok {
		t.Errorf("RemoteDecoderFactory() = %T, want *dracoDecoder", dec)
	}

	// The fixture's compressed buffer is not a Draco stream.
	_, err = l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Load() error = %v, want ErrDecode", err)
	}
	if got := l.DecoderInits(); got != 1 {
		t.Errorf("DecoderInits() = %d, want 1", got)
	}
}

func TestRemoteDecoderFactoryRejectsNonWasm(t *testing.T) {
	srv := serveModel(t, nil)

	l := NewLoader()
	if _, err := l.RemoteDecoderFactory(context.Background(), srv.URL+"/model.gltf"); err == nil {
		t.Error("RemoteDecoderFactory() accepted a non-WebAssembly module")
	}
}

func TestRemoteDecoderFactoryUnreachable(t *testing.T) {
	srv := serveModel(t, compressedTetra().GLTF())

	l := NewLoader(WithDecoderLocation(srv.URL + "/elsewhere/"))
	_, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Load() error = %v, want ErrDecode", err)
	}
	if got := l.DecoderInits(); got != 0 {
		t.Errorf("DecoderInits() = %d, want 0", got)
	}
}

func TestLoaderDecoderPanic(t *testing.T) {
	path := compressedTetra().WriteFile(t, t.TempDir(), "draco.gltf")

	l := NewLoader(
		WithDecoderLocation("mem://decoders/"),
		WithDecoderFactory(func(ctx context.Context, location string) (GeometryDecoder, error) {
			panic("decoder crashed")
		}),
	)
	a, err := l.Load(context.Background(), path).Result()
	if a != nil || !errors.Is(err, ErrDecode) {
		t.Errorf("Load() = %v, %v, want nil, ErrDecode", a, err)
	}
}

func TestLoaderOversizedAccessor(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},` +
		`"accessors":[{"componentType":5126,"count":2000000000,"type":"VEC3"}],` +
		`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],` +
		`"nodes":[{"mesh":0}]}`
	srv := serveModel(t, []byte(doc))

	l := NewLoader()
	_, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Load() error = %v, want ErrDecode", err)
	}
}

func TestLoaderRemoteExternalBuffer(t *testing.T) {
	doc, bin := assettest.Animated().Split("model.bin")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/model.gltf":
			w.Write(doc)
		case "/models/model.bin":
			w.Write(bin)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	l := NewLoader()
	a, err := l.Load(context.Background(), srv.URL+"/models/model.gltf").Result()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := a.Bounds().MaxDimension(); got != 6 {
		t.Errorf("MaxDimension() = %v, want 6", got)
	}
	if len(a.Clips) != 1 {
		t.Errorf("Clips = %d, want 1", len(a.Clips))
	}
}

func TestLoaderRemoteBufferOutsideDocument(t *testing.T) {
	l := NewLoader()
	fsys := l.remoteFS(context.Background(), "http://example.com/models/model.gltf")
	for _, name := range []string{"../secret.bin", "http:other.bin", "/abs.bin"} {
		if _, err := fs.ReadFile(fsys, name); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("ReadFile(%q) error = %v, want ErrInvalid", name, err)
		}
	}
}

func TestLoaderCachesPayload(t *testing.T) {
	var hits atomic.Int32
	body := assettest.Box().GLTF()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	l := NewLoader()
	for i := 0; i < 2; i++ {
		a, err := l.Load(context.Background(), srv.URL+"/model.gltf").Result()
		if err != nil {
			t.Fatalf("Load() #%d error = %v", i, err)
		}
		a.Dispose()
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}
