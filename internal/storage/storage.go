// Package storage keeps uploaded files (firm logos, case documents) in named
// buckets on the local filesystem and hands out public URLs for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath  = errors.New("invalid object path")
	ErrObjectExists = errors.New("object already exists")
	ErrNotFound     = errors.New("object not found")
	ErrTooLarge     = errors.New("object too large")
)

// Object describes a stored file.
type Object struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	URL    string `json:"url"`
}

// Store is a bucketed file store rooted at a directory.
type Store struct {
	root    string
	baseURL string
	maxSize int64
}

// New creates the root directory if needed. baseURL is the externally
// reachable server address; objects are served under {baseURL}/storage/.
func New(root, baseURL string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

// Upload writes r to bucket/name. Existing objects are not overwritten.
func (s *Store) Upload(ctx context.Context, bucket, name string, r io.Reader) (*Object, error) {
	full, err := s.resolve(bucket, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectExists, bucket, name)
		}
		return nil, fmt.Errorf("create object: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, s.maxSize)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, fmt.Errorf("write object: %w", err)
	}

	return &Object{Bucket: bucket, Name: name, Size: n, URL: s.PublicURL(bucket, name)}, nil
}

// Open returns a reader for bucket/name.
func (s *Store) Open(bucket, name string) (*os.File, error) {
	full, err := s.resolve(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes bucket/name. Missing objects are not an error.
func (s *Store) Delete(bucket, name string) error {
	full, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PublicURL returns the URL under which bucket/name is served.
func (s *Store) PublicURL(bucket, name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/storage/%s/%s", s.baseURL, url.PathEscape(bucket), strings.Join(segments, "/"))
}

func (s *Store) resolve(bucket, name string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\.`) {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	clean := path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
