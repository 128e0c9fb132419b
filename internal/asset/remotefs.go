package asset

import (
	"bytes"
	"context"
	"io/fs"
	"net/url"
	"path"
	"time"
)

// remoteFS serves the files next to a remote .gltf document, such as its
// external .bin buffers, through the loader's transport and cache.
type remoteFS struct {
	ctx  context.Context
	l    *Loader
	base *url.URL
}

func (l *Loader) remoteFS(ctx context.Context, document string) fs.FS {
	base, err := url.Parse(document)
	if err != nil {
		return nil
	}
	return &remoteFS{ctx: ctx, l: l, base: base}
}

func (r *remoteFS) resolve(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fs.ErrInvalid
	}
	ref, err := url.Parse(name)
	if err != nil || ref.IsAbs() || ref.Host != "" {
		return "", fs.ErrInvalid
	}
	return r.base.ResolveReference(ref).String(), nil
}

// ReadFile fetches name relative to the document URL.
func (r *remoteFS) ReadFile(name string) ([]byte, error) {
	u, err := r.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	data, err := r.l.fetch(r.ctx, u)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

func (r *remoteFS) Open(name string) (fs.File, error) {
	data, err := r.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &remoteFile{Reader: bytes.NewReader(data), name: name, size: int64(len(data))}, nil
}

type remoteFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *remoteFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *remoteFile) Close() error               { return nil }

func (f *remoteFile) Name() string       { return path.Base(f.name) }
func (f *remoteFile) Size() int64        { return f.size }
func (f *remoteFile) Mode() fs.FileMode  { return 0o444 }
func (f *remoteFile) ModTime() time.Time { return time.Time{} }
func (f *remoteFile) IsDir() bool        { return false }
func (f *remoteFile) Sys() any           { return nil }
