package remote

import (
	"context"

	"github.com/kamarjahan/pdf-img-edit/internal/model"
	"github.com/kamarjahan/pdf-img-edit/internal/tempfile"
	"github.com/kamarjahan/pdf-img-edit/internal/tools"
)

// Strategy runs the full session protocol for one request: start,
// stage-and-attach every payload, process, download.
type Strategy struct {
	client *Client
}

// NewStrategy creates a Strategy on top of the given client.
func NewStrategy(client *Client) *Strategy {
	return &Strategy{client: client}
}

// Execute drives one session to completion. Temp staging goes through
// the caller's scope, so the dispatcher's deferred release covers every
// file staged here no matter where the session fails. A failed attach
// aborts the remaining attaches; the session never processes partially
// attached input.
func (st *Strategy) Execute(ctx context.Context, desc tools.Descriptor, files []model.Payload, params map[string]string, scope *tempfile.Scope) ([]byte, error) {
	sess := st.client.NewSession(desc.RemoteTool)

	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	for _, f := range files {
		h, err := scope.Acquire(f.Filename, f.Data)
		if err != nil {
			return nil, err
		}
		if err := sess.AttachFile(ctx, h.Path(), f.Filename); err != nil {
			return nil, err
		}
	}

	if err := sess.Process(ctx, shapeParams(desc.Op, params)); err != nil {
		return nil, err
	}

	return sess.Download(ctx)
}

// shapeParams builds the service parameters for the operation family.
// Required values are validated by the dispatcher before the session
// starts; this only shapes them into the service's vocabulary.
func shapeParams(op string, params map[string]string) map[string]string {
	out := make(map[string]string)

	switch op {
	case "protect":
		out["password"] = params["password"]
	case "watermark":
		out["mode"] = "text"
		out["text"] = params["watermark_text"]
	case "split":
		out["split_mode"] = "ranges"
		out["ranges"] = params["split_ranges"]
	case "compress":
		tier := params["compression_level"]
		if tier == "" {
			tier = "recommended"
		}
		out["compression_level"] = tier
	}

	return out
}
