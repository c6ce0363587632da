package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/kamarjahan/pdf-img-edit/internal/api/respond"
	"github.com/kamarjahan/pdf-img-edit/internal/dispatcher"
	"github.com/kamarjahan/pdf-img-edit/internal/metrics"
	"github.com/kamarjahan/pdf-img-edit/internal/model"
	"github.com/kamarjahan/pdf-img-edit/internal/tools"
)

// service defines the interface for handling a processing request.
type service interface {
	Handle(ctx context.Context, req model.ProcessRequest) (model.ProcessResult, error)
}

// paramFields are the optional tool-specific form fields forwarded to
// the dispatcher.
var paramFields = []string{
	"password",
	"watermark_text",
	"split_ranges",
	"compression_level",
	"x", "y", "w", "h",
	"rotate_angle",
	"resize_w", "resize_h",
}

// Handler provides the HTTP handler for the processing endpoint.
type Handler struct {
	service  service
	maxBytes int64
}

// NewHandler creates a new Handler with the given dispatcher service.
func NewHandler(s service, maxBytes int64) *Handler {
	return &Handler{service: s, maxBytes: maxBytes}
}

// Process handles POST /api/process: it reads the multipart form,
// hands the request to the dispatcher, and serves the processed file as
// an attachment or a JSON error.
func (h *Handler) Process(c *ginext.Context) {
	if err := c.Request.ParseMultipartForm(h.maxBytes); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse multipart form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	tool := c.PostForm("task")

	files, err := readFiles(c)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to read uploaded files")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	params := make(map[string]string)
	for _, name := range paramFields {
		if v := c.PostForm(name); v != "" {
			params[name] = v
		}
	}

	req := model.ProcessRequest{Tool: tool, Files: files, Params: params}

	start := time.Now()
	res, err := h.service.Handle(c.Request.Context(), req)
	if err != nil {
		metrics.Observe(tool, "error", time.Since(start))

		status := http.StatusInternalServerError
		if errors.Is(err, dispatcher.ErrValidation) || errors.Is(err, tools.ErrUnknownTool) {
			status = http.StatusBadRequest
		}

		zlog.Logger.Err(err).Msgf("processing failed for tool %q", tool)
		respond.Fail(c, status, err)
		return
	}

	metrics.Observe(tool, "success", time.Since(start))
	zlog.Logger.Info().Msgf("processed %d file(s) with tool %q", len(files), tool)

	respond.Attachment(c, res)
}

// readFiles collects the uploaded payloads from the "files" field,
// falling back to the single-file "file" field.
func readFiles(c *ginext.Context) ([]model.Payload, error) {
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}

	payloads := make([]model.Payload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file %q: %v", fh.Filename, err)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file %q: %v", fh.Filename, err)
		}

		payloads = append(payloads, model.Payload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return payloads, nil
}
