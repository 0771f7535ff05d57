package types

// TailorRequest is the input for tailoring a LaTeX resume to a job description
type TailorRequest struct {
	JobDescription string `json:"jobDescription" validate:"trimmedmin=16"`
	BaseResume     string `json:"baseResume,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	Model          string `json:"model,omitempty"`
}

// TailorResult is the tailored LaTeX document
type TailorResult struct {
	LaTeX string `json:"latex"`
	Model string `json:"model,omitempty"`
	// Degraded is set when the generated text was not a LaTeX document and
	// the original resume was returned instead.
	Degraded  bool     `json:"degraded"`
	Attempted []string `json:"-"`
}

// Engine names a LaTeX compiler backend of the compilation service
type Engine string

const (
	EnginePlain   Engine = "pdflatex"
	EngineUnicode Engine = "xelatex"
	EngineScript  Engine = "lualatex"
)

// Valid reports whether e is one of the known engines
func (e Engine) Valid() bool {
	switch e {
	case EnginePlain, EngineUnicode, EngineScript:
		return true
	}
	return false
}

// CompileRequest holds either LaTeX source text or a caller-supplied archive
type CompileRequest struct {
	LaTeX  string `json:"latex"`
	Engine Engine `json:"engine,omitempty"`

	// Archive is a pre-built tar or tar.bz2 forwarded unchanged.
	Archive     []byte `json:"-"`
	ArchiveName string `json:"-"`
}

// EngineAttempt records one call made against the compilation service
type EngineAttempt struct {
	Engine Engine `json:"engine"`
	Method string `json:"method"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CompileResult is a successfully produced PDF
type CompileResult struct {
	PDF      []byte          `json:"-"`
	Engine   Engine          `json:"engine"`
	Attempts []EngineAttempt `json:"attempts"`
}

// ModelInfo describes a generative model available to the configured key
type ModelInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	Actions     []string `json:"supportedActions,omitempty"`
}

// JobDescriptionRequest asks the server to scrape a job posting
type JobDescriptionRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// JobDescription is the text extracted from a job posting page
type JobDescription struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}
