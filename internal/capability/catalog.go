package capability

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"identity-mcp/internal/management"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Capabilities []catalogEntry `yaml:"capabilities"`
}

type catalogEntry struct {
	Name        string         `yaml:"name"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	ReadOnly    bool           `yaml:"readOnly"`
	Scopes      []string       `yaml:"scopes"`
	Request     RequestSpec    `yaml:"request"`
	InputSchema map[string]any `yaml:"inputSchema"`
}

// RequestSpec maps tool arguments onto a management API call.
type RequestSpec struct {
	Method string `yaml:"method"`
	// Path is relative to the API root and may contain {arg} placeholders.
	Path string `yaml:"path"`
	// Query names arguments sent as query parameters.
	Query []string `yaml:"query"`
	// Body names arguments sent as JSON body fields.
	Body []string `yaml:"body"`
}

var pathParamRegex = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// PathParams returns the placeholder names of the path template.
func (s RequestSpec) PathParams() []string {
	var names []string
	for _, m := range pathParamRegex.FindAllStringSubmatch(s.Path, -1) {
		names = append(names, m[1])
	}
	return names
}

// Call builds the management API call for the given arguments.
func (s RequestSpec) Call(args map[string]any) (management.Call, error) {
	var missing []string
	p := pathParamRegex.ReplaceAllStringFunc(s.Path, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]
		v, ok := args[name]
		if !ok || formatValue(v) == "" {
			missing = append(missing, name)
			return placeholder
		}
		return url.PathEscape(formatValue(v))
	})
	if len(missing) > 0 {
		return management.Call{}, fmt.Errorf("missing path parameters: %s", strings.Join(missing, ", "))
	}

	call := management.Call{Method: s.Method, Path: p}

	for _, name := range s.Query {
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		if call.Query == nil {
			call.Query = url.Values{}
		}
		call.Query.Set(name, formatValue(v))
	}

	if len(s.Body) > 0 {
		body := make(map[string]any)
		for _, name := range s.Body {
			if v, ok := args[name]; ok {
				body[name] = v
			}
		}
		call.Body = body
	}

	return call, nil
}

// formatValue renders an argument for a path or query position.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}

// RESTHandler returns a handler that performs spec with the request's client.
func RESTHandler(spec RequestSpec) Handler {
	return func(ctx context.Context, req Request) (*management.Response, error) {
		if req.Client == nil {
			return nil, fmt.Errorf("no management client")
		}
		call, err := spec.Call(req.Parameters)
		if err != nil {
			return nil, err
		}
		return req.Client.Do(ctx, call)
	}
}

// LoadCatalog parses a YAML catalog into capabilities backed by RESTHandler.
func LoadCatalog(data []byte) ([]Capability, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse capability catalog: %w", err)
	}

	caps := make([]Capability, 0, len(file.Capabilities))
	for _, entry := range file.Capabilities {
		if err := entry.Request.validate(); err != nil {
			return nil, fmt.Errorf("capability %q: %w", entry.Name, err)
		}

		schema := entry.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("capability %q: invalid input schema: %w", entry.Name, err)
		}

		caps = append(caps, Capability{
			Name:           entry.Name,
			Title:          entry.Title,
			Description:    strings.TrimSpace(entry.Description),
			InputSchema:    raw,
			RequiredScopes: entry.Scopes,
			ReadOnly:       entry.ReadOnly,
			Handler:        RESTHandler(entry.Request),
		})
	}
	return caps, nil
}

func (s RequestSpec) validate() error {
	switch s.Method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", s.Method)
	}
	if s.Path == "" {
		return fmt.Errorf("empty request path")
	}
	return nil
}

// NewDefaultRegistry builds the registry from the built-in catalog.
func NewDefaultRegistry() (*Registry, error) {
	caps, err := LoadCatalog(builtinCatalog)
	if err != nil {
		return nil, err
	}
	return NewRegistry(caps)
}
