// Package file provides a text file read/write tool.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/memora/internal/util"
	"github.com/hupe1980/memora/tool"
)

// Name is the registered tool name.
const Name = "file"

// DefaultMaxReadBytes bounds how much of a file is returned to the planner.
const DefaultMaxReadBytes = 64 * 1024

var binaryExt = map[string]bool{
	".xlsx": true, ".xls": true, ".docx": true, ".pptx": true,
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true,
}

// Options configures the file tool.
type Options struct {
	// Root confines all paths to this directory when set.
	Root string
	// MaxReadBytes truncates reads. Defaults to DefaultMaxReadBytes.
	MaxReadBytes int
	// ReadOnly rejects write operations.
	ReadOnly bool
}

// Tool reads and writes text files.
type Tool struct {
	opts Options
}

var _ tool.Tool = (*Tool)(nil)

// New creates the file tool.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{MaxReadBytes: DefaultMaxReadBytes}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxReadBytes <= 0 {
		opts.MaxReadBytes = DefaultMaxReadBytes
	}
	return &Tool{opts: opts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return Name }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Read or write text files (txt, md, json, csv, ...). Operations: read, write."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{"type": "string", "enum": []string{"read", "write"}, "description": "read | write"},
			"path":      map[string]any{"type": "string", "description": "file path"},
			"content":   map[string]any{"type": "string", "description": "text to write (write only)"},
		},
		"required": []string{"operation", "path"},
	}
}

// Call implements tool.Tool.
func (t *Tool) Call(_ context.Context, args map[string]any) (string, error) {
	op, _ := tool.StringArg(args, "operation")
	path, ok := tool.StringArg(args, "path")
	if !ok || strings.TrimSpace(path) == "" {
		return "", tool.NewToolError(Name, "argument 'path' is required", tool.CodeValidation)
	}
	path = strings.TrimSpace(path)

	switch strings.ToLower(strings.TrimSpace(op)) {
	case "read":
		return t.read(path)
	case "write":
		content, ok := tool.StringArg(args, "content")
		if !ok {
			return "", tool.NewToolError(Name, "'content' is required for write operation.", tool.CodeValidation)
		}
		return t.write(path, content)
	default:
		return "", tool.NewToolError(Name, fmt.Sprintf("Unknown operation '%s'. Use 'read' or 'write'.", op), tool.CodeValidation)
	}
}

func (t *Tool) resolve(path string) (string, error) {
	if t.opts.Root == "" {
		return filepath.Clean(path), nil
	}

	root, err := filepath.Abs(t.opts.Root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", tool.NewToolError(Name, fmt.Sprintf("Path '%s' is outside the allowed root.", path), tool.CodeForbidden)
	}
	return full, nil
}

func (t *Tool) read(path string) (string, error) {
	full, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	if binaryExt[strings.ToLower(filepath.Ext(full))] {
		return "", tool.NewToolError(Name, fmt.Sprintf("Unsupported file format '%s'.", filepath.Ext(full)), tool.CodeValidation)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", tool.NewToolError(Name, fmt.Sprintf("File '%s' not found.", path), tool.CodeNotFound)
		}
		return "", tool.NewToolError(Name, fmt.Sprintf("Error reading file '%s': %v", path, err), tool.CodeExecution)
	}

	if len(data) > t.opts.MaxReadBytes {
		cut := data[:t.opts.MaxReadBytes]
		for len(cut) > 0 && !utf8.Valid(cut) {
			cut = cut[:len(cut)-1]
		}
		return fmt.Sprintf("%s\n[truncated: showing %d of %d bytes]", cut, len(cut), len(data)), nil
	}
	return string(data), nil
}

func (t *Tool) write(path, content string) (string, error) {
	if t.opts.ReadOnly {
		return "", tool.NewToolError(Name, "write operations are disabled", tool.CodeForbidden)
	}
	full, err := t.resolve(path)
	if err != nil {
		return "", err
	}
	if binaryExt[strings.ToLower(filepath.Ext(full))] {
		return "", tool.NewToolError(Name, fmt.Sprintf("Unsupported file format '%s'.", filepath.Ext(full)), tool.CodeValidation)
	}

	if err := util.WriteFileAtomic(full, []byte(content), 0o644); err != nil {
		return "", tool.NewToolError(Name, fmt.Sprintf("Error writing file '%s': %v", path, err), tool.CodeExecution)
	}
	return fmt.Sprintf("Successfully wrote file to %s", path), nil
}
