package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpload(t *testing.T) {
	assert.NoError(t, ValidateUpload("passport.PDF", 1024))
	assert.NoError(t, ValidateUpload("id.jpeg", MaxUploadSize))
	assert.ErrorIs(t, ValidateUpload("id.gif", 10), ErrFileType)
	assert.ErrorIs(t, ValidateUpload("id.png", MaxUploadSize+1), ErrFileTooLarge)
}

func TestLocalStore_UploadAndRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root, "http://localhost:8080/")
	require.NoError(t, err)
	ctx := context.Background()

	p, err := s.Upload(ctx, BucketUserDocuments, "u1/visa.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "u1/visa.pdf", p)

	data, err := os.ReadFile(filepath.Join(root, BucketUserDocuments, "u1", "visa.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, "http://localhost:8080/files/user-documents/u1/visa.pdf", s.PublicURL(BucketUserDocuments, p))
	assert.Empty(t, s.PublicURL(BucketUserDocuments, ""))

	require.NoError(t, s.Remove(ctx, BucketUserDocuments, p))
	require.NoError(t, s.Remove(ctx, BucketUserDocuments, p))
	_, err = os.Stat(filepath.Join(root, BucketUserDocuments, "u1", "visa.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsBadTargets(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Upload(ctx, "secrets", "a.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnknownBucket)
	_, err = s.Upload(ctx, BucketLegalDocuments, "../../etc/passwd", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFilePath)
}

func TestLocalStore_EnforcesSizeWhileCopying(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	big := bytes.NewReader(make([]byte, MaxUploadSize+10))
	_, err = s.Upload(context.Background(), BucketLegalDocuments, "c/big.pdf", big)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestCompressImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for x := 0; x < 800; x++ {
		src.Set(x, 10, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := CompressImage(buf.Bytes(), 400, 80)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	_, err = CompressImage([]byte("not an image"), 400, 80)
	assert.Error(t, err)
}
