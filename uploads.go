package main

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/utils"
)

const maxUploadSizeBytes = 5 * 1024 * 1024

// Uploads land on local disk, matching the offline-first deployment. The
// /files static route serves them back; photo_url/document_url on a
// customer points at that route.
func uploadDir() string {
	return utils.EnvOrDefault("UPLOAD_DIR", "uploads")
}

type uploadResponse struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
}

func uploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		ext := extensionFromMimeType(mimeType)
		if ext == "" {
			ext = strings.ToLower(filepath.Ext(fileHeader.Filename))
		}
		if ext == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		entity := sanitizeSegment(strings.ToLower(c.DefaultPostForm("entity", "misc")))
		if entity == "" {
			entity = "misc"
		}
		filename := uuid.NewString() + ext
		relPath := path.Join(entity, filename)
		absPath := filepath.Join(uploadDir(), entity, filename)

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			config.LogError(logger, "uploads", "uploadHandler", "MkdirAll", absPath, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}

		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		if err := os.WriteFile(absPath, data, 0o644); err != nil {
			config.LogError(logger, "uploads", "uploadHandler", "WriteFile", absPath, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
			return
		}

		response := uploadResponse{
			URL:      "/files/" + relPath,
			Filename: filename,
			Size:     int64(len(data)),
		}

		if strings.HasPrefix(mimeType, "image/") {
			thumbRel, err := createThumbnail(data, relPath)
			if err != nil {
				config.LogError(logger, "uploads", "uploadHandler", "createThumbnail", relPath, err)
			} else {
				response.ThumbnailURL = "/files/" + thumbRel
			}
		}

		c.JSON(http.StatusCreated, response)
	}
}

func createThumbnail(data []byte, relPath string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbRel := thumbnailPath(relPath)
	absPath := filepath.Join(uploadDir(), filepath.FromSlash(thumbRel))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(absPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return thumbRel, nil
}

func thumbnailPath(relPath string) string {
	dir := path.Dir(relPath)
	filename := path.Base(relPath)
	ext := path.Ext(filename)
	filename = strings.TrimSuffix(filename, ext) + ".jpg"
	return path.Join(dir, "thumbnails", filename)
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	default:
		return ""
	}
}
