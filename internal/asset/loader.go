package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Defaults for NewLoader.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxBytes  = 256 << 20
	DefaultCacheSize = 64 << 20
)

// Loader fetches and decodes assets asynchronously. It is safe for
// concurrent use.
type Loader struct {
	client          *http.Client
	timeout         time.Duration
	maxBytes        int64
	decoderLocation string
	decoderFactory  DecoderFactory
	cache           *Cache
	log             *zap.Logger

	decMu        sync.Mutex
	decoder      GeometryDecoder
	decoderInits int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout bounds each load. Zero disables the bound.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client. Its transport is used as-is.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = c
	}
}

// WithDecoderLocation sets where the compressed-geometry decoder is fetched
// from. An empty location makes compressed payloads fail to decode.
func WithDecoderLocation(location string) LoaderOption {
	return func(l *Loader) {
		l.decoderLocation = location
	}
}

// WithDecoderFactory replaces how the decoder is built from its location.
func WithDecoderFactory(f DecoderFactory) LoaderOption {
	return func(l *Loader) {
		l.decoderFactory = f
	}
}

// WithCache sets the payload cache. A nil cache disables caching.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) {
		l.cache = c
	}
}

// WithMaxBytes caps the payload size.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		l.maxBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a loader. HTTP requests are traced through otelhttp.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
		cache:    NewCache(DefaultCacheSize),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.decoderFactory == nil {
		l.decoderFactory = l.RemoteDecoderFactory
	}
	return l
}

// DecoderInits returns how many times the decoder was initialized.
func (l *Loader) DecoderInits() int {
	l.decMu.Lock()
	defer l.decMu.Unlock()
	return l.decoderInits
}

// geometryDecoder returns the shared decoder, building it on first use. A
// failed build is retried by the next load.
func (l *Loader) geometryDecoder(ctx context.Context) (GeometryDecoder, error) {
	l.decMu.Lock()
	defer l.decMu.Unlock()

	if l.decoder != nil {
		return l.decoder, nil
	}
	if l.decoderLocation == "" {
		return nil, ErrMissingDecoder
	}
	dec, err := l.decoderFactory(ctx, l.decoderLocation)
	if err != nil {
		return nil, err
	}
	l.decoder = dec
	l.decoderInits++
	l.log.Info("geometry decoder ready", zap.String("location", l.decoderLocation))
	return dec, nil
}

// Load starts loading path, a local file path or an http(s) URL, and returns
// immediately. Cancel the returned handle to abandon the load.
func (l *Loader) Load(ctx context.Context, path string) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{
		Path:   path,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go p.run(ctx, l)
	return p
}

func (l *Loader) load(ctx context.Context, path string) (_ *Asset, err error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "load asset", trace.WithAttributes(
		attribute.String("asset.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	data, err := l.fetch(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("asset.bytes", len(data)))

	var fsys fs.FS
	if isRemote(path) {
		fsys = l.remoteFS(ctx, path)
	} else {
		fsys = os.DirFS(filepath.Dir(path))
	}
	a, err := decode(path, data, fsys, func() (GeometryDecoder, error) {
		return l.geometryDecoder(ctx)
	}, l.maxBytes)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, expired(path, ctxErr)
		}
		return nil, err
	}

	// Decoding is not interruptible; honour an expiry that happened meanwhile.
	if ctxErr := ctx.Err(); ctxErr != nil {
		a.Dispose()
		return nil, expired(path, ctxErr)
	}

	l.log.Info("asset loaded",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Int("clips", len(a.Clips)),
		zap.Duration("elapsed", time.Since(start)))
	return a, nil
}

// safeLoad runs load, reporting a panic in the decoder as a decode error.
func (l *Loader) safeLoad(ctx context.Context, path string) (a *Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("asset decode panicked",
				zap.String("path", path),
				zap.Any("panic", r),
				zap.Stack("stack"))
			a, err = nil, decodeErr(path, fmt.Errorf("panic: %v", r))
		}
	}()
	return l.load(ctx, path)
}

// expired maps a done context to the error a load reports.
func expired(path string, ctxErr error) error {
	if errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	return classify(path, ctxErr, KindTimeout)
}

func isRemote(path string) bool {
	u, err := url.Parse(path)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// fetch returns the payload bytes for path, from the cache when possible.
func (l *Loader) fetch(ctx context.Context, path string) ([]byte, error) {
	if l.cache != nil {
		if data, ok := l.cache.Get(path); ok {
			return data, nil
		}
	}

	var (
		data []byte
		err  error
	)
	if isRemote(path) {
		data, err = l.fetchHTTP(ctx, path)
	} else {
		data, err = l.readFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Set(path, data)
	}
	return data, nil
}

func (l *Loader) fetchHTTP(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, networkErr(path, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, classify(path, err, KindNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, networkErr(path, fmt.Errorf("unexpected status %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, classify(path, err, KindNetwork)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, networkErr(path, fmt.Errorf("payload exceeds %d bytes", l.maxBytes))
	}
	return data, nil
}

func (l *Loader) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(path, err, KindNetwork)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, networkErr(path, err)
	}
	if info.Size() > l.maxBytes {
		return nil, networkErr(path, fmt.Errorf("payload exceeds %d bytes", l.maxBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, networkErr(path, err)
	}
	return data, nil
}

// Result is the outcome of a load: exactly one of Asset and Err is set.
type Result struct {
	Asset *Asset
	Err   error
}

// Pending is an in-flight load.
type Pending struct {
	Path string

	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	res      Result
	canceled bool
	claimed  bool
}

func (p *Pending) run(ctx context.Context, l *Loader) {
	a, err := l.safeLoad(ctx, p.Path)

	p.mu.Lock()
	if p.canceled {
		if a != nil {
			a.Dispose()
		}
		p.res = Result{Err: context.Canceled}
	} else {
		p.res = Result{Asset: a, Err: err}
	}
	p.mu.Unlock()

	p.cancel()
	close(p.done)
}

// Done is closed once the load has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Poll returns the result if the load has finished. The first successful
// poll transfers ownership of the asset to the caller.
func (p *Pending) Poll() (Result, bool) {
	select {
	case <-p.done:
	default:
		return Result{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canceled {
		return Result{Err: context.Canceled}, true
	}
	p.claimed = true
	return p.res, true
}

// Result blocks until the load finishes.
func (p *Pending) Result() (*Asset, error) {
	<-p.done
	r, _ := p.Poll()
	return r.Asset, r.Err
}

// Cancel abandons the load. An asset produced by it and not yet claimed is
// disposed. Cancel after a successful Poll leaves the asset to the caller.
func (p *Pending) Cancel() {
	p.mu.Lock()
	if p.claimed {
		p.mu.Unlock()
		return
	}
	p.canceled = true
	var orphan *Asset
	select {
	case <-p.done:
		orphan = p.res.Asset
		p.res = Result{Err: context.Canceled}
	default:
	}
	p.mu.Unlock()

	p.cancel()
	if orphan != nil {
		orphan.Dispose()
	}
}

// IsCanceled reports whether err comes from an abandoned load.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
