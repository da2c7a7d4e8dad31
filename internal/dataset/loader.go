package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
)

const maxLineSize = 16 * 1024 * 1024

// Options controls how score records become a table.
type Options struct {
	// LabelField is the key holding the 0/1 ground-truth label, if any.
	LabelField string
	// Polarity tags each column; nil tags every column HigherIsBetter.
	Polarity PolarityRule
}

type field struct {
	name  string
	value float64
}

// Load reads a JSON-lines score file. When the records carry the label
// field, the labels are returned separately and removed from the columns;
// otherwise the returned label slice is nil.
func Load(path string, opts Options) (*Table, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open score file: %w", err)
	}
	defer file.Close()

	table, labels, err := Read(file, path, opts)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Str("file", path).
		Int("rows", table.Len()).
		Int("features", table.NumFeatures()).
		Bool("labeled", labels != nil).
		Msg("Scores loaded")

	return table, labels, nil
}

// Read parses JSON-lines records from r. name is used in error messages.
func Read(r io.Reader, name string, opts Options) (*Table, []int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		names    []string
		index    map[string]int
		rows     [][]float64
		labels   []int
		hasLabel bool
		lineNo   int
	)

	malformed := func(reason string, args ...any) error {
		return &MalformedRecordError{Path: name, Line: lineNo, Reason: fmt.Sprintf(reason, args...)}
	}

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		fields, err := parseRecord(line)
		if err != nil {
			return nil, nil, malformed("%v", err)
		}

		label, labeled, fields, err := extractLabel(fields, opts.LabelField)
		if err != nil {
			return nil, nil, malformed("%v", err)
		}

		if names == nil {
			names = make([]string, 0, len(fields))
			index = make(map[string]int, len(fields))
			for _, f := range fields {
				index[f.name] = len(names)
				names = append(names, f.name)
			}
			hasLabel = labeled
		}

		if labeled != hasLabel {
			return nil, nil, malformed("field %q present in some records but not others", opts.LabelField)
		}
		if len(fields) != len(names) {
			return nil, nil, malformed("record has %d features, expected %d", len(fields), len(names))
		}

		row := make([]float64, len(names))
		filled := make([]bool, len(names))
		for _, f := range fields {
			j, ok := index[f.name]
			if !ok {
				return nil, nil, malformed("unexpected feature %q", f.name)
			}
			if filled[j] {
				return nil, nil, malformed("duplicate feature %q", f.name)
			}
			row[j] = f.value
			filled[j] = true
		}

		rows = append(rows, row)
		if hasLabel {
			labels = append(labels, label)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if len(rows) == 0 {
		lineNo = 0
		return nil, nil, malformed("no records")
	}

	table, err := NewTable(names, rows, opts.Polarity)
	if err != nil {
		lineNo = 0
		return nil, nil, malformed("%v", err)
	}

	return table, labels, nil
}

func extractLabel(fields []field, labelField string) (int, bool, []field, error) {
	if labelField == "" {
		return 0, false, fields, nil
	}
	for i, f := range fields {
		if f.name != labelField {
			continue
		}
		if f.value != 0 && f.value != 1 {
			return 0, false, nil, fmt.Errorf("label must be 0 or 1, got %v", f.value)
		}
		rest := make([]field, 0, len(fields)-1)
		rest = append(rest, fields[:i]...)
		rest = append(rest, fields[i+1:]...)
		return int(f.value), true, rest, nil
	}
	return 0, false, fields, nil
}

// parseRecord decodes one JSON object, flattening nested objects into
// dot-separated names and keeping keys in document order.
func parseRecord(line []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("record is not a JSON object")
	}

	var fields []field
	if err := flattenObject(dec, "", &fields); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after record")
	}
	return fields, nil
}

func flattenObject(dec *json.Decoder, prefix string, out *[]field) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid JSON: unexpected %v", tok)
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		switch v := tok.(type) {
		case json.Delim:
			if v != '{' {
				return fmt.Errorf("field %q: arrays are not supported", name)
			}
			if err := flattenObject(dec, name, out); err != nil {
				return err
			}
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			*out = append(*out, field{name: name, value: f})
		default:
			return fmt.Errorf("field %q: expected a number, got %T", name, tok)
		}
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
