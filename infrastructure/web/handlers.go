package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"video2audio/application/lifecycle"
	"video2audio/domain/audio"
	"video2audio/domain/job"
)

// Handler serves the conversion front end over the lifecycle manager
type Handler struct {
	manager      *lifecycle.Manager
	uploadsDir   string
	processedDir string
	logger       *zap.Logger
}

// NewHandler creates a new web handler
func NewHandler(manager *lifecycle.Manager, uploadsDir, processedDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager:      manager,
		uploadsDir:   uploadsDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// flexInt accepts a JSON number, a numeric string, an empty string or null
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %s", string(b))
	}
	*f = flexInt(v)
	return nil
}

type settingsRequest struct {
	Codec      string  `json:"codec"`
	Bitrate    *string `json:"bitrate"`
	SampleRate flexInt `json:"samplerate"`
	Channels   flexInt `json:"channels"`
	Auto       *bool   `json:"auto"`
	Loudnorm   *bool   `json:"loudnorm"`
}

// settingsView renders unset values as null
type settingsView struct {
	Codec      string  `json:"codec"`
	Bitrate    *string `json:"bitrate"`
	SampleRate *int    `json:"samplerate"`
	Channels   *int    `json:"channels"`
	Auto       bool    `json:"auto"`
	Loudnorm   bool    `json:"loudnorm"`
	Overwrite  bool    `json:"overwrite"`
}

func viewOf(s audio.Settings) settingsView {
	v := settingsView{
		Codec:     s.Codec.String(),
		Auto:      s.Auto,
		Loudnorm:  s.Loudnorm,
		Overwrite: s.Overwrite,
	}
	if s.Bitrate != "" {
		v.Bitrate = &s.Bitrate
	}
	if s.SampleRate > 0 {
		v.SampleRate = &s.SampleRate
	}
	if s.Channels > 0 {
		v.Channels = &s.Channels
	}
	return v
}

// safeName reduces a client-supplied file name to its base name
func safeName(name string) (string, bool) {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if name == "/" || name == "." || name == ".." || name == "" {
		return "", false
	}
	return name, true
}

// Upload stores the files[] form field in the uploads directory and queues them.
// The request is refused with 409 when any named file is being converted.
func (h *Handler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "multipart form expected"})
	}

	var busy []string
	for _, fh := range form.File["files[]"] {
		if name, ok := safeName(fh.Filename); ok {
			if j, tracked := h.manager.Job(name); tracked && j.State == job.StateActive {
				busy = append(busy, name)
			}
		}
	}
	// an active source is being read by the encoder and must not be rewritten
	if len(busy) > 0 {
		return c.Status(http.StatusConflict).JSON(fiber.Map{
			"error": "files are being converted",
			"files": busy,
		})
	}

	for _, fh := range form.File["files[]"] {
		name, ok := safeName(fh.Filename)
		if !ok {
			continue
		}
		if err := c.SaveFile(fh, filepath.Join(h.uploadsDir, name)); err != nil {
			h.logger.Error("saving upload failed", zap.String("file", name), zap.Error(err))
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save " + name})
		}
		h.manager.Accept(name)
		h.logger.Info("file uploaded", zap.String("file", name), zap.Int64("size", fh.Size))
	}

	return c.JSON(fiber.Map{"files": h.manager.Pending()})
}

// UploadList returns the pending files
func (h *Handler) UploadList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"files": h.manager.Pending()})
}

// StartProcessing submits the selected pending files as one batch
func (h *Handler) StartProcessing(c *fiber.Ctx) error {
	var req struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}

	batch := h.manager.Submit(req.Files)
	return c.JSON(fiber.Map{
		"processing": h.manager.Active(),
		"batch":      batch.ID(),
		"accepted":   batch.Names(),
	})
}

// UpdateSettings replaces the effective conversion settings
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	update := audio.SettingsUpdate{
		Codec:      req.Codec,
		SampleRate: int(req.SampleRate),
		Channels:   int(req.Channels),
	}
	if req.Bitrate != nil {
		update.Bitrate = *req.Bitrate
	}

	s := update.Apply(h.manager.Settings())
	if req.Auto != nil {
		s.Auto = *req.Auto
	}
	if req.Loudnorm != nil {
		s.Loudnorm = *req.Loudnorm
	}
	h.manager.UpdateSettings(s)

	return c.JSON(fiber.Map{"status": "ok", "settings": viewOf(s)})
}

// GetSettings returns the effective conversion settings
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(viewOf(h.manager.Settings()))
}

// ProcessingList returns the active files
func (h *Handler) ProcessingList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"files": h.manager.Active()})
}

// ProcessedFiles returns the artifact names of completed files
func (h *Handler) ProcessedFiles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"files": h.manager.CompletedOutputs()})
}

type failedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// FailedFiles returns the failed files with their errors
func (h *Handler) FailedFiles(c *fiber.Ctx) error {
	names := h.manager.Failed()
	files := make([]failedFile, 0, len(names))
	for _, name := range names {
		f := failedFile{Name: name}
		if j, ok := h.manager.Job(name); ok && j.Err != nil {
			f.Error = j.Err.Error()
		}
		files = append(files, f)
	}
	return c.JSON(fiber.Map{"files": files})
}

// Events returns lifecycle events after the since query parameter
func (h *Handler) Events(c *fiber.Ctx) error {
	since, err := strconv.ParseInt(c.Query("since", "0"), 10, 64)
	if err != nil || since < 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "since must be a non-negative integer"})
	}
	return c.JSON(fiber.Map{"events": h.manager.Events(since)})
}

// Download sends a finished artifact as an attachment
func (h *Handler) Download(c *fiber.Ctx) error {
	name, ok := safeName(c.Params("filename"))
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid file name"})
	}
	path := filepath.Join(h.processedDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "file not found"})
	}
	return c.Download(path, name)
}

// DeleteFile forgets a file and removes its upload and artifact from storage.
// An artifact another job still owns is kept.
func (h *Handler) DeleteFile(c *fiber.Ctx) error {
	name, ok := safeName(c.Params("filename"))
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid file name"})
	}

	j, _ := h.manager.Job(name)
	if err := h.manager.Clear(name); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrUnknownJob):
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, lifecycle.ErrJobActive):
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	removeIfExists(h.logger, filepath.Join(h.uploadsDir, name))
	if j.Output != "" && !h.manager.OutputClaimed(j.Output, name) {
		removeIfExists(h.logger, filepath.Join(h.processedDir, j.Output))
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func removeIfExists(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
