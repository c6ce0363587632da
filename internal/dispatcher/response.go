package dispatcher

import (
	"path/filepath"
	"strings"

	"github.com/kamarjahan/pdf-img-edit/internal/model"
	"github.com/kamarjahan/pdf-img-edit/internal/tools"
)

// materialize picks the content type, attachment filename and archive
// flag for the processed bytes. For local results the raster strategy
// already negotiated the media type; for remote results it follows from
// the descriptor's category and output kind.
func materialize(desc tools.Descriptor, sourceName string, data []byte, rasterType string) model.ProcessResult {
	contentType := rasterType
	ext := ""

	switch {
	case desc.Output == tools.OutputArchive:
		contentType = "application/zip"
		ext = ".zip"
	case desc.Category == tools.CategoryPDF:
		contentType = "application/pdf"
		ext = ".pdf"
	case contentType == "image/png":
		ext = ".png"
	default:
		contentType = "image/jpeg"
		ext = ".jpg"
	}

	stem := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if stem == "" {
		stem = desc.ID
	}

	return model.ProcessResult{
		Data:        data,
		ContentType: contentType,
		Filename:    "processed_" + stem + ext,
		Archive:     desc.Output == tools.OutputArchive,
	}
}
