package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/mediaqueue/internal/api/middleware"
	"github.com/kiranshivaraju/mediaqueue/internal/api/response"
	"github.com/kiranshivaraju/mediaqueue/internal/cache"
	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/internal/store"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	// multipartMemory is how much of an upload is buffered in memory before
	// spilling to a temp file.
	multipartMemory = 8 << 20
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileStore defines the file persistence the file handlers depend on.
type FileStore interface {
	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id int64) (*models.File, error)
	ListFiles(ctx context.Context, userID int64) ([]*models.File, error)
	DeleteFile(ctx context.Context, id int64, userID int64) error
	GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, error)
}

// MetadataCache is the read-through cache in front of FileStore.GetFileMetadata.
type MetadataCache interface {
	GetFileMetadata(ctx context.Context, fileID int64) (*models.FileMetadata, bool, error)
	SetFileMetadata(ctx context.Context, meta *models.FileMetadata, ttl time.Duration) error
	InvalidateFileMetadata(ctx context.Context, fileID int64) error
}

// NewListFilesHandler returns an http.HandlerFunc for GET /api/v1/files.
// Supports ?page= and ?limit= (default 50, max 200).
func NewListFilesHandler(files FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		page, err := queryInt(r, "page", 1)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		limit, err := queryInt(r, "limit", defaultPageSize)
		if err != nil || limit < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		if page > math.MaxInt32/limit {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page is out of range", nil)
			return
		}

		all, err := files.ListFiles(r.Context(), userID)
		if err != nil {
			slog.Error("list files", "user_id", userID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		start := (page - 1) * limit
		if start > len(all) {
			start = len(all)
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}

		response.Collection(w, all[start:end], response.NewPaginationMeta(page, limit, len(all)))
	}
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/files.
// The file is read from the multipart field "file" and stored under
// <UploadDir>/<user id>/ with a timestamp-prefixed sanitized name.
func NewUploadHandler(files FileStore, cfg config.StorageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					fmt.Sprintf("File exceeds the %d byte limit", cfg.MaxUploadBytes), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		src, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "No file part", nil)
			return
		}
		defer src.Close()

		filename := sanitizeFilename(header.Filename)
		if filename == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "No selected file", nil)
			return
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
		if !models.AllowedFileTypes[ext] {
			response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "File type not allowed", nil)
			return
		}

		now := time.Now().UTC()
		dir := filepath.Join(cfg.UploadDir, strconv.FormatInt(userID, 10))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("create upload dir", "dir", dir, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		path := filepath.Join(dir, storedName(now, filename))

		size, err := writeUpload(path, src)
		if err != nil {
			slog.Error("store upload", "path", path, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		file := &models.File{
			UserID:    userID,
			Filename:  filename,
			Filepath:  path,
			Filetype:  ext,
			Size:      size,
			CreatedAt: now,
		}
		if err := files.CreateFile(r.Context(), file); err != nil {
			removeUpload(path)
			slog.Error("create file record", "user_id", userID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		slog.Info("file uploaded", "user_id", userID, "file_id", file.ID, "filetype", ext, "size", size)
		response.Created(w, file)
	}
}

// NewDeleteFileHandler returns an http.HandlerFunc for DELETE /api/v1/files/{fileID}.
func NewDeleteFileHandler(files FileStore, metaCache MetadataCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, file, ok := ownedFile(w, r, files)
		if !ok {
			return
		}

		if err := files.DeleteFile(r.Context(), file.ID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "File not found", nil)
				return
			}
			slog.Error("delete file", "file_id", file.ID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}
		removeUpload(file.Filepath)

		if metaCache != nil {
			if err := metaCache.InvalidateFileMetadata(r.Context(), file.ID); err != nil {
				slog.Warn("invalidating cached metadata", "file_id", file.ID, "error", err)
			}
		}

		response.NoContent(w)
	}
}

// NewFileMetadataHandler returns an http.HandlerFunc for
// GET /api/v1/files/{fileID}/metadata. Hits are served from metaCache; misses
// are loaded from the store and cached for cache.MetadataTTL.
func NewFileMetadataHandler(files FileStore, metaCache MetadataCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, file, ok := ownedFile(w, r, files)
		if !ok {
			return
		}

		if metaCache != nil {
			meta, hit, err := metaCache.GetFileMetadata(r.Context(), file.ID)
			if err != nil {
				slog.Warn("reading cached metadata", "file_id", file.ID, "error", err)
			}
			if hit {
				response.JSON(w, meta)
				return
			}
		}

		meta, err := files.GetFileMetadata(r.Context(), file.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "METADATA_NOT_FOUND", "No metadata found for this file", nil)
				return
			}
			slog.Error("get file metadata", "file_id", file.ID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		if metaCache != nil {
			if err := metaCache.SetFileMetadata(r.Context(), meta, cache.MetadataTTL); err != nil {
				slog.Warn("caching metadata", "file_id", file.ID, "error", err)
			}
		}
		response.JSON(w, meta)
	}
}

// ownedFile resolves {fileID} and checks the caller owns it, writing the
// error response itself when it does not.
func ownedFile(w http.ResponseWriter, r *http.Request, files FileStore) (int64, *models.File, bool) {
	userID, ok := mw.GetUserID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
		return 0, nil, false
	}

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "fileID must be an integer", nil)
		return 0, nil, false
	}

	file, err := files.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "File not found", nil)
			return 0, nil, false
		}
		slog.Error("get file", "file_id", fileID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return 0, nil, false
	}
	if file.UserID != userID {
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Unauthorized access to file", nil)
		return 0, nil, false
	}
	return userID, file, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.TrimLeft(name, ".")
}

// storedName prefixes filename with the upload time and a short random tag
// so uploads of the same name never collide on disk.
func storedName(now time.Time, filename string) string {
	return now.Format("20060102_150405_") + uuid.NewString()[:8] + "_" + filename
}

func writeUpload(path string, src io.Reader) (int64, error) {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removeUpload(path)
		return 0, err
	}
	return n, nil
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("removing uploaded file", "path", path, "error", err)
	}
}
