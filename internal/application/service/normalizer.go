package service

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"kairos/internal/domain/entity"
)

const (
	DefaultMaxToolChars = 16000
	TruncationMarker    = "… [truncated]"
)

// Normalizer turns arbitrary tool results into JSON-safe values.
// Inline image bytes are written to temp files that belong to the normalizer
// until Cleanup is called; one normalizer serves exactly one agent session.
type Normalizer struct {
	dir string

	mu    sync.Mutex
	files []string
}

// NewNormalizer writes image artifacts under dir, or the system temp dir when empty.
func NewNormalizer(dir string) *Normalizer {
	return &Normalizer{dir: dir}
}

func (n *Normalizer) Normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}

	switch x := v.(type) {
	case string, bool, float64:
		return x
	case entity.TextContent:
		return x.Text
	case *entity.TextContent:
		return x.Text
	case entity.ImageContent:
		return n.image(x)
	case *entity.ImageContent:
		return n.image(*x)
	case json.RawMessage:
		return n.decodeJSON(x)
	case []byte:
		return string(x)
	case *bytes.Buffer:
		return x.String()
	case *url.URL:
		return x.String()
	case url.URL:
		return x.String()
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case json.Marshaler:
		data, err := x.MarshalJSON()
		if err != nil {
			return fmt.Sprint(x)
		}
		return n.decodeJSON(data)
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(text)
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = n.Normalize(val)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = n.Normalize(val)
		}
		return out
	}

	return n.normalizeValue(rv)
}

func (n *Normalizer) normalizeValue(rv reflect.Value) any {
	builtin := rv.Type().PkgPath() == ""

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return n.Normalize(rv.Elem().Interface())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if builtin {
			return rv.Interface()
		}
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if builtin {
			return rv.Interface()
		}
		return rv.Uint()

	case reflect.Float32, reflect.Float64:
		if builtin {
			return rv.Interface()
		}
		return rv.Float()

	case reflect.String:
		return rv.String()

	case reflect.Bool:
		return rv.Bool()

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = n.Normalize(rv.Index(i).Interface())
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if isSet(rv.Type()) {
			return n.setMembers(rv)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = n.Normalize(iter.Value().Interface())
		}
		return out

	case reflect.Struct:
		return n.structFields(rv)

	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Sprint(rv.Interface())
	}

	return rv.Interface()
}

// structFields walks exported fields using encoding/json naming rules.
// Embedded structs without a json name are flattened; outer fields win.
func (n *Normalizer) structFields(rv reflect.Value) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	var embedded []map[string]any

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := rv.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}

		if f.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				embedded = append(embedded, n.structFields(inner))
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		if name == "" {
			name = f.Name
		}
		if hasOption(opts, "omitempty") && fv.IsZero() {
			continue
		}
		out[name] = n.Normalize(fv.Interface())
	}

	for _, m := range embedded {
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func (n *Normalizer) decodeJSON(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(data)
	}
	return n.Normalize(out)
}

func (n *Normalizer) image(img entity.ImageContent) any {
	if img.URL != "" {
		return map[string]any{"type": "image", "url": img.URL}
	}
	if len(img.Data) == 0 {
		return map[string]any{"type": "image"}
	}
	path, err := n.persist(img)
	if err != nil {
		return map[string]any{"type": "image", "error": err.Error()}
	}
	return map[string]any{"type": "image", "path": path}
}

func (n *Normalizer) persist(img entity.ImageContent) (string, error) {
	f, err := os.CreateTemp(n.dir, "kairos-image-*"+imageExtension(img.MimeType))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	path := f.Name()

	n.mu.Lock()
	n.files = append(n.files, path)
	n.mu.Unlock()

	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	return path, nil
}

// Files returns the temp files written so far.
func (n *Normalizer) Files() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.files))
	copy(out, n.files)
	return out
}

// Cleanup deletes every recorded temp file and forgets them.
func (n *Normalizer) Cleanup() error {
	n.mu.Lock()
	files := n.files
	n.files = nil
	n.mu.Unlock()

	var errs []error
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render normalizes, serializes and truncates a tool result.
func (n *Normalizer) Render(v any, limit int) string {
	return Truncate(Serialize(n.Normalize(v)), limit)
}

// Serialize encodes v as JSON without HTML escaping. Values the encoder
// rejects are encoded through their fmt string form instead.
func Serialize(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		_ = enc.Encode(fmt.Sprint(v))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Truncate cuts s to limit characters and appends TruncationMarker.
// A non-positive limit disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + TruncationMarker
		}
		count++
	}
	return s
}

func isSet(t reflect.Type) bool {
	elem := t.Elem()
	return elem.Kind() == reflect.Struct && elem.NumField() == 0
}

func (n *Normalizer) setMembers(rv reflect.Value) []any {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return mapKey(keys[i]) < mapKey(keys[j])
	})
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = n.Normalize(k.Interface())
	}
	return out
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
