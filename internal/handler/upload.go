package handler

import (
	"io"
	"mime/multipart"

	"tourdesk/internal/storage"

	"github.com/gin-gonic/gin"
)

// UploadField is the multipart field every upload endpoint reads
const UploadField = "file"

func formFile(c *gin.Context) (*multipart.FileHeader, multipart.File, bool) {
	header, err := c.FormFile(UploadField)
	if err != nil {
		badRequest(c, "A file is required in the \"file\" form field")
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, "Could not read the uploaded file")
		return nil, nil, false
	}
	return header, f, true
}

// formFileBytes reads the upload fully; images are decoded in memory.
func formFileBytes(c *gin.Context) (string, []byte, bool) {
	header, f, ok := formFile(c)
	if !ok {
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadSize+1))
	if err != nil {
		badRequest(c, "Could not read the uploaded file")
		return "", nil, false
	}
	return header.Filename, data, true
}
