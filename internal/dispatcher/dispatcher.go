// Package dispatcher coordinates one processing request end-to-end:
// validate, resolve the tool, run the matching strategy, and shape the
// outbound result. It is the only place that owns temp-file lifecycles
// and the only place that decides overall success or failure.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/kamarjahan/pdf-img-edit/internal/model"
	"github.com/kamarjahan/pdf-img-edit/internal/processor/raster"
	"github.com/kamarjahan/pdf-img-edit/internal/processor/remote"
	"github.com/kamarjahan/pdf-img-edit/internal/tempfile"
	"github.com/kamarjahan/pdf-img-edit/internal/tools"
)

// ErrValidation marks a request the caller can fix: missing tool,
// missing file, or a missing required parameter.
var ErrValidation = errors.New("invalid request")

// Dispatcher routes requests to the local raster strategy or the
// remote document strategy.
type Dispatcher struct {
	raster *raster.Processor
	remote *remote.Strategy
	tmp    *tempfile.Manager
}

// New creates a Dispatcher over the two strategies and the temp-file
// manager.
func New(rst *raster.Processor, rmt *remote.Strategy, tmp *tempfile.Manager) *Dispatcher {
	return &Dispatcher{raster: rst, remote: rmt, tmp: tmp}
}

// Handle runs one request. Every temp file staged along the way is
// released before Handle returns, on success and on every failure path.
func (d *Dispatcher) Handle(ctx context.Context, req model.ProcessRequest) (model.ProcessResult, error) {
	if req.Tool == "" {
		return model.ProcessResult{}, fmt.Errorf("%w: missing tool identifier", ErrValidation)
	}
	if len(req.Files) == 0 {
		return model.ProcessResult{}, fmt.Errorf("%w: at least one file is required", ErrValidation)
	}

	desc, err := tools.Resolve(req.Tool)
	if err != nil {
		return model.ProcessResult{}, err
	}

	// Required parameters are checked up front, before any session is
	// started or any file staged.
	for _, name := range desc.Required {
		if req.Param(name) == "" {
			return model.ProcessResult{}, fmt.Errorf("%w: missing required parameter %q", ErrValidation, name)
		}
	}

	scope := d.tmp.Scope()
	defer scope.ReleaseAll()

	if desc.Kind == tools.KindLocal {
		if len(req.Files) != 1 {
			return model.ProcessResult{}, fmt.Errorf("%w: tool %q accepts exactly one file", ErrValidation, desc.ID)
		}

		res, err := d.raster.Process(req.Files[0], desc.Op, req.Params)
		if err != nil {
			return model.ProcessResult{}, err
		}
		return materialize(desc, req.Files[0].Filename, res.Data, res.ContentType), nil
	}

	data, err := d.remote.Execute(ctx, desc, req.Files, req.Params, scope)
	if err != nil {
		return model.ProcessResult{}, err
	}
	return materialize(desc, req.Files[0].Filename, data, ""), nil
}
