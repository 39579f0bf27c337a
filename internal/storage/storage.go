package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Buckets
const (
	BucketUserDocuments   = "user-documents"
	BucketProfilePictures = "profile-pictures"
	BucketLegalDocuments  = "legal-documents"
	BucketFacilityImages  = "facility-images"
)

// MaxUploadSize is the largest accepted upload (10 MiB)
const MaxUploadSize = 10 << 20

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

var (
	ErrFileTooLarge    = errors.New("file exceeds the 10 MB limit")
	ErrFileType        = errors.New("only JPG, PNG and PDF files are allowed")
	ErrUnknownBucket   = errors.New("unknown storage bucket")
	ErrInvalidFilePath = errors.New("invalid file path")
)

// Store keeps uploaded objects and resolves them to fetchable URLs
type Store interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader) (string, error)
	PublicURL(bucket, objectPath string) string
	Remove(ctx context.Context, bucket, objectPath string) error
}

// ValidateUpload checks name and size before anything is written.
func ValidateUpload(filename string, size int64) error {
	if size > MaxUploadSize {
		return ErrFileTooLarge
	}
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		return ErrFileType
	}
	return nil
}

// IsImage reports whether the filename carries an image extension
func IsImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png"
}

// LocalStore writes objects under root/<bucket>/<key> and serves them from baseURL/files/<bucket>/<key>.
type LocalStore struct {
	root    string
	baseURL string
	buckets map[string]bool
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	s := &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		buckets: map[string]bool{
			BucketUserDocuments:   true,
			BucketProfilePictures: true,
			BucketLegalDocuments:  true,
			BucketFacilityImages:  true,
		},
	}
	for b := range s.buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare bucket %s: %w", b, err)
		}
	}
	return s, nil
}

// Root is the directory served for bucket files
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) resolve(bucket, key string) (string, error) {
	if !s.buckets[bucket] {
		return "", ErrUnknownBucket
	}
	clean := path.Clean("/" + filepath.ToSlash(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidFilePath
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Upload stores r at key (overwriting) and returns the object path to persist.
func (s *LocalStore) Upload(ctx context.Context, bucket, key string, r io.Reader) (string, error) {
	dst, err := s.resolve(bucket, key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(tmp, io.LimitReader(r, MaxUploadSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(key)), "/"), nil
}

func (s *LocalStore) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return s.baseURL + "/files/" + bucket + "/" + strings.TrimPrefix(objectPath, "/")
}

// Remove deletes an object; a missing object is not an error.
func (s *LocalStore) Remove(_ context.Context, bucket, objectPath string) error {
	p, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
