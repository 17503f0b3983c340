// cmd/tools/worker-generator/generator.go
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
	"text/template"

	"cleanmatch-workers/pkg/registry"
)

// WorkerData feeds the scaffold templates.
type WorkerData struct {
	Module       string
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	InputFields  []Field
	OutputFields []Field
	ErrorCodes   []string
}

type Field struct {
	Name     string
	GoType   string
	JSONName string
	Required bool
}

func newWorkerData(module string, activity *registry.Activity) WorkerData {
	return WorkerData{
		Module:       module,
		Name:         activity.DisplayName,
		PackageName:  strings.ReplaceAll(activity.ID, "-", ""),
		TaskType:     activity.TaskType,
		Description:  activity.Description,
		InputFields:  schemaFields(activity.InputSchema),
		OutputFields: schemaFields(activity.OutputSchema),
		ErrorCodes:   activity.ErrorCodes,
	}
}

// schemaFields lists top-level properties sorted by name so output is stable.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		fields = append(fields, Field{
			Name:     exportedName(name),
			GoType:   goType(details),
			JSONName: name,
			Required: required[name],
		})
	}
	return fields
}

// goType maps a property schema onto a Go type. Well-known booking shapes
// reuse the shared models.
func goType(details map[string]interface{}) string {
	if _, ok := details["properties"].(map[string]interface{}); ok {
		if isBookingRequest(details) {
			return "models.BookingRequest"
		}
	}

	switch t := details["type"].(type) {
	case string:
		return scalarType(t, details)
	case []interface{}:
		// ["number", "null"] and friends become pointers
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return "*" + scalarType(s, details)
			}
		}
	}
	return "interface{}"
}

func scalarType(t string, details map[string]interface{}) string {
	switch t {
	case "string":
		if details["format"] == "date-time" {
			return "time.Time"
		}
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		if items, ok := details["items"].(map[string]interface{}); ok {
			return "[]" + goType(items)
		}
		return "[]interface{}"
	case "object":
		return "map[string]interface{}"
	}
	return "interface{}"
}

func isBookingRequest(details map[string]interface{}) bool {
	props, _ := details["properties"].(map[string]interface{})
	_, hasRequest := props["requestId"]
	_, hasWindow := props["timeWindow"]
	return hasRequest && hasWindow
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	out := strings.ToUpper(name[:1]) + name[1:]
	return strings.ReplaceAll(out, "Id", "ID")
}

func usesType(fields []Field, needle string) bool {
	for _, f := range fields {
		if strings.Contains(f.GoType, needle) {
			return true
		}
	}
	return false
}

// Render executes every template and gofmts the Go sources.
func Render(data WorkerData) (map[string][]byte, error) {
	funcs := template.FuncMap{
		"usesType": usesType,
		"join":     strings.Join,
	}

	out := make(map[string][]byte, len(templates))
	for name, text := range templates {
		tmpl, err := template.New(name).Funcs(funcs).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("execute template %s: %w", name, err)
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		out[name] = src
	}
	return out, nil
}

var templates = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

const configTemplate = `// internal/workers/matching/{{ .TaskType }}/config.go
package {{ .PackageName }}

import (
	"time"

	"{{ .Module }}/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
`

const modelsTemplate = `// internal/workers/matching/{{ .TaskType }}/models.go
package {{ .PackageName }}
{{ $models := or (usesType .InputFields "models.") (usesType .OutputFields "models.") }}
{{- $time := or (usesType .InputFields "time.") (usesType .OutputFields "time.") }}
{{- if or $models $time }}
import (
{{- if $time }}
	"time"
{{ end }}
{{- if $models }}
	"{{ .Module }}/internal/models"
{{- end }}
)
{{ end }}
type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .GoType }} ` + "`" + `json:"{{ .JSONName }}{{ if not .Required }},omitempty{{ end }}"` + "`" + `
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .GoType }} ` + "`" + `json:"{{ .JSONName }}{{ if not .Required }},omitempty{{ end }}"` + "`" + `
{{- end }}
}
`

const handlerTemplate = `// internal/workers/matching/{{ .TaskType }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"time"

	"{{ .Module }}/internal/common/errors"
	"{{ .Module }}/internal/common/logger"
	"{{ .Module }}/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

type Handler struct {
	config *Config
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		errors: errors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInputValidationFailed)).Inc()
		h.errors.HandleJobError(ctx, client, job, errors.NewInputValidationFailedError(err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.FromError(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute {{ .Description }}
// Declared error codes: {{ join .ErrorCodes ", " }}.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{}, nil
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"
	"time"

	"{{ .Module }}/internal/common/logger"

	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute(t *testing.T) {
	h := createTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	require.NotNil(t, output)
}
`
