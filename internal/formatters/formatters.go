package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"resumetex/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("tex", "TailorResult", &TailorTeXFormatter{})
	registry.RegisterFormatter("text", "ModelList", &ModelListTextFormatter{})
	registry.RegisterFormatter("text", "JobDescription", &JobDescriptionTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.TailorResult, *types.TailorResult:
		return "TailorResult"
	case []types.ModelInfo:
		return "ModelList"
	case types.JobDescription, *types.JobDescription:
		return "JobDescription"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// TailorTeXFormatter writes the tailored document as-is
type TailorTeXFormatter struct{}

func (tf *TailorTeXFormatter) Format(data any) (string, error) {
	var result types.TailorResult
	switch v := data.(type) {
	case types.TailorResult:
		result = v
	case *types.TailorResult:
		if v == nil {
			return "", fmt.Errorf("nil TailorResult")
		}
		result = *v
	default:
		return "", fmt.Errorf("expected TailorResult, got %T", data)
	}

	if strings.HasSuffix(result.LaTeX, "\n") {
		return result.LaTeX, nil
	}
	return result.LaTeX + "\n", nil
}

func (tf *TailorTeXFormatter) SupportedType() string {
	return "TailorResult"
}

// ModelListTextFormatter prints one model per line
type ModelListTextFormatter struct{}

func (mf *ModelListTextFormatter) Format(data any) (string, error) {
	models, ok := data.([]types.ModelInfo)
	if !ok {
		return "", fmt.Errorf("expected []ModelInfo, got %T", data)
	}

	var output strings.Builder
	tw := tabwriter.NewWriter(&output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tACTIONS")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strings.TrimPrefix(m.Name, "models/"), m.DisplayName, strings.Join(m.Actions, ","))
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}
	return output.String(), nil
}

func (mf *ModelListTextFormatter) SupportedType() string {
	return "ModelList"
}

// JobDescriptionTextFormatter prints the extracted posting text
type JobDescriptionTextFormatter struct{}

func (jf *JobDescriptionTextFormatter) Format(data any) (string, error) {
	var job types.JobDescription
	switch v := data.(type) {
	case types.JobDescription:
		job = v
	case *types.JobDescription:
		if v == nil {
			return "", fmt.Errorf("nil JobDescription")
		}
		job = *v
	default:
		return "", fmt.Errorf("expected JobDescription, got %T", data)
	}

	var output strings.Builder
	if job.Title != "" {
		output.WriteString(job.Title)
		output.WriteString("\n\n")
	}
	output.WriteString(job.Text)
	output.WriteString("\n")
	return output.String(), nil
}

func (jf *JobDescriptionTextFormatter) SupportedType() string {
	return "JobDescription"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
