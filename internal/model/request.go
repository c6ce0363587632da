package model

// Payload is a single uploaded file as received from the client.
type Payload struct {
	Filename    string // original filename, used for temp staging and result naming
	ContentType string // media type declared by the client
	Data        []byte
}

// ProcessRequest is one processing job: a tool identifier, the uploaded
// files in the order the client sent them, and the tool-specific form
// parameters (password, watermark text, crop rectangle, etc.).
type ProcessRequest struct {
	Tool   string
	Files  []Payload
	Params map[string]string
}

// Param returns the named parameter or an empty string when absent.
func (r ProcessRequest) Param(name string) string {
	if r.Params == nil {
		return ""
	}
	return r.Params[name]
}

// ProcessResult is the processed binary plus everything the HTTP layer
// needs to serve it as a download.
type ProcessResult struct {
	Data        []byte
	ContentType string
	Filename    string // suggested attachment filename
	Archive     bool   // true when Data is a zip of multiple output files
}
