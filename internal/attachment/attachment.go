// AngelaMos | 2026
// attachment.go

package attachment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
)

var (
	errFieldShape = errors.New("conflicting form field shape")
	errTooLarge   = errors.New("file too large")
	errExtension  = errors.New("file type not allowed")
)

// booleanFields are the form leaves sent as "true"/"false" that decode into
// bool fields. Every other value stays a string.
var booleanFields = map[string]struct{}{
	"isActive": {},
}

var defaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"}

// Store saves uploaded files under one directory and hands back references
// relative to it. Services only ever see those references.
type Store struct {
	dir         string
	maxMemory   int64
	maxFileSize int64
	extensions  map[string]struct{}
	logger      *slog.Logger
}

func New(cfg config.UploadsConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory <= 0 {
		maxMemory = 10 << 20
	}
	allowed := cfg.AllowedExtensions
	if len(allowed) == 0 {
		allowed = defaultExtensions
	}
	extensions := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	return &Store{
		dir:         cfg.Dir,
		maxMemory:   maxMemory,
		maxFileSize: cfg.MaxFileSize,
		extensions:  extensions,
		logger:      logger,
	}
}

// Save copies one uploaded file into the store and returns its reference.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if s.maxFileSize > 0 && fh.Size > s.maxFileSize {
		return "", errTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := s.extensions[ext]; !ok {
		return "", errExtension
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	return path.Join(filepath.ToSlash(s.dir), name), nil
}

// Remove deletes a stored file by its reference.
func (s *Store) Remove(ref string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(filepath.FromSlash(ref))))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// Middleware rewrites multipart/form-data requests into JSON. Bracketed
// names nest ("company[logo]" becomes company.logo); files are accepted only
// for the listed fields and replaced by their stored reference. Known
// boolean leaves become booleans. Other requests pass through untouched.
//
// Stored files are removed again unless the handler answers with a 2xx or
// 3xx status. Mount it after any authorization the route needs.
func (s *Store) Middleware(fileFields ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(fileFields))
	for _, f := range fileFields {
		allowed[f] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMultipart(r) {
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseMultipartForm(s.maxMemory); err != nil {
				core.BadRequest(w, "invalid multipart body")
				return
			}
			defer func() {
				if err := r.MultipartForm.RemoveAll(); err != nil {
					s.logger.Warn("remove multipart temp files", "error", err)
				}
			}()

			body, refs, err := s.toJSON(r.MultipartForm, allowed)
			if err != nil {
				s.discard(refs)
				core.JSONError(w, err)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("Content-Length", strconv.Itoa(len(body)))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			committed := false
			defer func() {
				if !committed {
					s.discard(refs)
				}
			}()

			next.ServeHTTP(ww, r)

			committed = ww.Status() < http.StatusBadRequest
		})
	}
}

func (s *Store) discard(refs []string) {
	for _, ref := range refs {
		if err := s.Remove(ref); err != nil {
			s.logger.Warn("discard upload", "ref", ref, "error", err)
		}
	}
}

// toJSON returns the encoded body and the references of every file it
// stored, also on error, so the caller can discard them.
func (s *Store) toJSON(
	form *multipart.Form,
	allowed map[string]struct{},
) ([]byte, []string, error) {
	tree := map[string]any{}

	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		keys := splitKey(key)
		if err := setPath(tree, keys, scalar(keys[len(keys)-1], values[0])); err != nil {
			return nil, nil, core.ValidationError(core.FieldError{Field: key, Error: err.Error()})
		}
	}

	var refs []string

	var fieldErrs []core.FieldError
	for key, files := range form.File {
		if len(files) == 0 {
			continue
		}
		if _, ok := allowed[key]; !ok {
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: "file uploads are not accepted for this field"})
			continue
		}

		ref, err := s.Save(files[0])
		switch {
		case errors.Is(err, errTooLarge):
			fieldErrs = append(fieldErrs, core.FieldError{
				Field: key,
				Error: fmt.Sprintf("file must be at most %d bytes", s.maxFileSize),
			})
			continue
		case errors.Is(err, errExtension):
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: err.Error()})
			continue
		case err != nil:
			return nil, refs, err
		}
		refs = append(refs, ref)

		if err := setPath(tree, splitKey(key), ref); err != nil {
			fieldErrs = append(fieldErrs, core.FieldError{Field: key, Error: err.Error()})
		}
	}
	if len(fieldErrs) > 0 {
		return nil, refs, core.ValidationError(fieldErrs...)
	}

	body, err := json.Marshal(tree)
	if err != nil {
		return nil, refs, fmt.Errorf("encode form: %w", err)
	}
	return body, refs, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(
		strings.ToLower(r.Header.Get("Content-Type")),
		"multipart/form-data",
	)
}

// splitKey turns "a[b][c]" into [a b c].
func splitKey(key string) []string {
	head, rest, found := strings.Cut(key, "[")
	if !found {
		return []string{key}
	}

	parts := []string{head}
	for _, p := range strings.Split(rest, "[") {
		parts = append(parts, strings.TrimSuffix(p, "]"))
	}
	return parts
}

func setPath(tree map[string]any, keys []string, value any) error {
	node := tree
	for _, k := range keys[:len(keys)-1] {
		child, exists := node[k]
		if !exists {
			next := map[string]any{}
			node[k] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return errFieldShape
		}
		node = next
	}

	last := keys[len(keys)-1]
	if _, isMap := node[last].(map[string]any); isMap {
		return errFieldShape
	}
	node[last] = value
	return nil
}

func scalar(field, v string) any {
	if _, ok := booleanFields[field]; !ok {
		return v
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
