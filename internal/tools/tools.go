package tools

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTool = errors.New("unknown tool")

// Category tells which kind of document a tool works on.
type Category string

const (
	CategoryPDF   Category = "pdf"
	CategoryImage Category = "image"
)

// Kind selects the processing path for a tool.
type Kind string

const (
	KindLocal  Kind = "local"  // in-process raster pipeline
	KindRemote Kind = "remote" // remote document service session
)

// OutputKind tells how the processed bytes are presented to the client.
type OutputKind string

const (
	OutputSingle  OutputKind = "single"
	OutputArchive OutputKind = "archive"
)

// Descriptor is the resolved, immutable view of one tool identifier.
// It is computed per request and never mutated afterwards.
type Descriptor struct {
	ID         string
	Category   Category
	Kind       Kind
	Op         string     // operation family: "protect", "split", "crop", ...
	RemoteTool string     // task-type token for the remote service
	Required   []string   // form parameters that must be present
	Output     OutputKind
}

// remoteToolOverrides corrects the naive leading-segment derivation.
// Naive derivation is right only for a minority of tools, so every
// special case lives here as data rather than inline conditionals.
var remoteToolOverrides = map[string]string{
	"compress_image": "compressimage",
	"resize_image":   "resizeimage",
	"pdf_to_jpg":     "pdfjpg",
	"word_to_pdf":    "officepdf",
	"protect_pdf":    "protect",
}

// ops maps a tool identifier to its operation family. The family keys
// the required-parameter table and the parameter shaping in both
// strategies.
var ops = map[string]string{
	"merge_pdf":       "merge",
	"split_pdf":       "split",
	"compress_pdf":    "compress",
	"pdf_to_jpg":      "pdfjpg",
	"word_to_pdf":     "officepdf",
	"protect_pdf":     "protect",
	"unlock_pdf":      "unlock",
	"watermark_pdf":   "watermark",
	"compress_image":  "compress",
	"resize_image":    "resize",
	"crop_image":      "crop",
	"convert_image":   "convert",
	"rotate_image":    "rotate",
	"watermark_image": "watermark",
}

// requiredParams is keyed by operation family, not tool id, so the pdf
// and image watermark tools share one entry.
var requiredParams = map[string][]string{
	"protect":   {"password"},
	"watermark": {"watermark_text"},
	"split":     {"split_ranges"},
}

// archiveOutputs lists the tools whose result is a zip of several
// files: splitting a document or converting its pages to images.
var archiveOutputs = map[string]bool{
	"split_pdf":  true,
	"pdf_to_jpg": true,
}

// Resolve maps a public tool identifier to its Descriptor.
func Resolve(id string) (Descriptor, error) {
	op, ok := ops[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownTool, id)
	}

	d := Descriptor{
		ID:       id,
		Category: CategoryPDF,
		Kind:     KindRemote,
		Op:       op,
		Required: requiredParams[op],
		Output:   OutputSingle,
	}

	// Suffix convention: *_image tools are image category and run
	// locally; everything else is pdf category on the remote service.
	if strings.HasSuffix(id, "_image") {
		d.Category = CategoryImage
		d.Kind = KindLocal
	}

	if tok, ok := remoteToolOverrides[id]; ok {
		d.RemoteTool = tok
	} else {
		d.RemoteTool = id[:strings.Index(id, "_")]
	}

	if archiveOutputs[id] {
		d.Output = OutputArchive
	}

	return d, nil
}

// Supported returns every known tool identifier.
func Supported() []string {
	ids := make([]string, 0, len(ops))
	for id := range ops {
		ids = append(ids, id)
	}
	return ids
}
