package remote

import (
	"context"
	"fmt"
)

// State is the session's position in the service protocol.
type State int

const (
	StateCreated State = iota
	StateStarted
	StateFilesAttached
	StateProcessed
	StateDownloaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateFilesAttached:
		return "files_attached"
	case StateProcessed:
		return "processed"
	case StateDownloaded:
		return "downloaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attachedFile is one registered input as the service names it.
type attachedFile struct {
	ServerFilename string `json:"server_filename"`
	Filename       string `json:"filename"`
}

// Session is one multi-step task against the document service. Steps
// are strictly ordered: Start, AttachFile (one or more), Process,
// Download. Each step checks the current state, so calling them out of
// order is an error rather than undefined service behavior. A session
// belongs to exactly one request and is never reused.
type Session struct {
	client *Client
	tool   string
	state  State
	token  string
	task   string
	files  []attachedFile
}

// NewSession creates a session for the given remote task-type token.
func (c *Client) NewSession(tool string) *Session {
	return &Session{client: c, tool: tool, state: StateCreated}
}

// State reports the session's current protocol state.
func (s *Session) State() State {
	return s.state
}

// Start authenticates and opens the task. Credentials are verified
// first so a misconfigured service fails before any file is staged.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateCreated {
		return s.transitionError("start")
	}

	if s.client.cfg.PublicKey == "" || s.client.cfg.SecretKey == "" {
		s.state = StateFailed
		return ErrMissingCredentials
	}

	token, err := s.client.auth(ctx)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	task, err := s.client.startTask(ctx, token, s.tool)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	s.token = token
	s.task = task
	s.state = StateStarted

	return nil
}

// AttachFile uploads one staged file to the task. filename is the
// original client name the service should report in its output.
func (s *Session) AttachFile(ctx context.Context, path, filename string) error {
	if s.state != StateStarted && s.state != StateFilesAttached {
		return s.transitionError("attach file")
	}

	serverFilename, err := s.client.uploadFile(ctx, s.token, s.task, path)
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: attach %s: %v", ErrProcessing, filename, err)
	}

	s.files = append(s.files, attachedFile{ServerFilename: serverFilename, Filename: filename})
	s.state = StateFilesAttached

	return nil
}

// Process submits the tool parameters for every attached file. It runs
// exactly once per session.
func (s *Session) Process(ctx context.Context, params map[string]string) error {
	if s.state != StateFilesAttached {
		return s.transitionError("process")
	}

	if err := s.client.process(ctx, s.token, s.task, s.tool, s.files, params); err != nil {
		s.state = StateFailed
		return fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	s.state = StateProcessed

	return nil
}

// Download retrieves the processed result and closes the session.
func (s *Session) Download(ctx context.Context) ([]byte, error) {
	if s.state != StateProcessed {
		return nil, s.transitionError("download")
	}

	data, err := s.client.download(ctx, s.token, s.task)
	if err != nil {
		s.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	s.state = StateDownloaded

	return data, nil
}

func (s *Session) transitionError(step string) error {
	return fmt.Errorf("%w: cannot %s in session state %q", ErrProcessing, step, s.state)
}
