package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ManifestFile is the manifest's name under the output root.
const ManifestFile = "drawings_info.json"

//go:embed schema.json
var schemaJSON []byte

// Entry describes one exported region.
type Entry struct {
	Filename    string   `json:"filename"`
	Coordinates [4]int   `json:"coordinates"` // x, y, w, h in page pixels
	Formats     []string `json:"formats"`
}

// Manifest maps 1-based page numbers to their regions. Pages keep the
// order they were added in, and so do the entries of each page.
type Manifest struct {
	pages   []int
	entries map[int][]Entry
}

func NewManifest() *Manifest {
	return &Manifest{entries: make(map[int][]Entry)}
}

// AddPage records page n, with no regions yet. Adding a page twice is a
// no-op.
func (m *Manifest) AddPage(n int) {
	if m.entries == nil {
		m.entries = make(map[int][]Entry)
	}
	if _, ok := m.entries[n]; ok {
		return
	}
	m.pages = append(m.pages, n)
	m.entries[n] = []Entry{}
}

// Add appends e to page n.
func (m *Manifest) Add(n int, e Entry) {
	m.AddPage(n)
	m.entries[n] = append(m.entries[n], e)
}

// Pages returns the page numbers in insertion order.
func (m *Manifest) Pages() []int {
	return append([]int(nil), m.pages...)
}

func (m *Manifest) Entries(n int) []Entry {
	return m.entries[n]
}

// Regions is the number of entries across all pages.
func (m *Manifest) Regions() int {
	total := 0
	for _, n := range m.pages {
		total += len(m.entries[n])
	}
	return total
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range m.pages {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(n)))
		buf.WriteByte(':')
		b, err := json.Marshal(m.entries[n])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object key by key so page order survives.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("manifest must be a JSON object")
	}

	*m = Manifest{entries: make(map[int][]Entry)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid page key %q", key)
		}
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}
		m.AddPage(n)
		m.entries[n] = append(m.entries[n], entries...)
	}
	_, err = dec.Token()
	return err
}

// EncodeManifest writes m as JSON indented by two spaces.
func EncodeManifest(w io.Writer, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// ValidateManifest checks encoded manifest JSON against the embedded
// drawings_info schema.
func ValidateManifest(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal manifest: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

// WriteManifest validates m and writes it to drawings_info.json under the
// output root, returning the file's path.
func (w *Writer) WriteManifest(m *Manifest) (string, error) {
	start := time.Now()
	var buf bytes.Buffer
	if err := EncodeManifest(&buf, m); err != nil {
		return "", err
	}
	if err := ValidateManifest(buf.Bytes()); err != nil {
		return "", err
	}

	path := filepath.Join(w.root, ManifestFile)
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	w.logger.Info("manifest.written",
		"file", path,
		"pages", len(m.pages),
		"regions", m.Regions(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m := NewManifest()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
