package dataio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func decode(f Format, data []byte) (any, error) {
	switch f {
	case FormatCSV:
		return decodeCSV(data)
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	}
	return string(data), nil
}

func encode(f Format, content any) ([]byte, error) {
	switch f {
	case FormatCSV:
		return encodeCSV(content)
	case FormatJSON:
		if err := checkNative(content); err != nil {
			return nil, err
		}
		data, err := json.MarshalIndent(jsonSafe(content), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		if err := checkNative(content); err != nil {
			return nil, err
		}
		data, err := yaml.Marshal(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return data, nil
	}
	return encodeText(content)
}

// decodeCSV reads rows of cells. A first row that is not entirely numeric is
// a header and is dropped.
func decodeCSV(data []byte) (any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	if len(records) > 0 && !numericRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return []any{}, nil
	}

	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, cell := range record {
			row[j] = parseCell(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

func numericRecord(record []string) bool {
	for _, cell := range record {
		switch parseCell(cell).(type) {
		case int64, float64:
		default:
			return false
		}
	}
	return true
}

// parseCell tries integer, float, then boolean, and falls back to the text.
func parseCell(value string) any {
	value = strings.TrimSpace(value)
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}

func encodeCSV(content any) ([]byte, error) {
	var rows [][]string
	switch v := content.(type) {
	case [][]any:
		for _, row := range v {
			cells, err := csvCells(row)
			if err != nil {
				return nil, err
			}
			rows = append(rows, cells)
		}
	case []any:
		// a flat list is one column
		for _, el := range v {
			if inner, ok := el.([]any); ok {
				cells, err := csvCells(inner)
				if err != nil {
					return nil, err
				}
				rows = append(rows, cells)
				continue
			}
			cells, err := csvCells([]any{el})
			if err != nil {
				return nil, err
			}
			rows = append(rows, cells)
		}
	default:
		cells, err := csvCells([]any{content})
		if err != nil {
			return nil, err
		}
		rows = append(rows, cells)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvCells(values []any) ([]string, error) {
	cells := make([]string, len(values))
	for i, v := range values {
		s, err := scalarText(v)
		if err != nil {
			return nil, err
		}
		cells[i] = s
	}
	return cells, nil
}

func scalarText(v any) (string, error) {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("cannot store %T in a cell: %w", v, ErrFormat)
}

// encodeText writes a string as is, a list one element per line and a
// matrix one space-separated row per line.
func encodeText(content any) ([]byte, error) {
	var b strings.Builder
	switch v := content.(type) {
	case string:
		return []byte(v), nil
	case [][]any:
		for _, row := range v {
			cells, err := csvCells(row)
			if err != nil {
				return nil, err
			}
			b.WriteString(strings.Join(cells, " "))
			b.WriteByte('\n')
		}
	case []any:
		for _, el := range v {
			if inner, ok := el.([]any); ok {
				cells, err := csvCells(inner)
				if err != nil {
					return nil, err
				}
				b.WriteString(strings.Join(cells, " "))
			} else {
				s, err := scalarText(el)
				if err != nil {
					return nil, err
				}
				b.WriteString(s)
			}
			b.WriteByte('\n')
		}
	default:
		s, err := scalarText(v)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return normalize(v)
}

func decodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return normalize(v)
}

// normalize maps decoded JSON and YAML onto the native value set. Objects
// and mappings have no counterpart and are rejected.
func normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", v, ErrFormat)
		}
		return f, nil
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			n, err := normalize(el)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		return nil, fmt.Errorf("objects are not supported: %w", ErrFormat)
	}
	return nil, fmt.Errorf("unsupported value %T: %w", v, ErrFormat)
}

// checkNative rejects content outside the native value set before encoding.
func checkNative(content any) error {
	switch v := content.(type) {
	case nil, string, bool, int64, float64:
		return nil
	case []any:
		for _, el := range v {
			if err := checkNative(el); err != nil {
				return err
			}
		}
		return nil
	case [][]any:
		for _, row := range v {
			if err := checkNative(row); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot store %T: %w", content, ErrFormat)
}

// jsonSafe replaces non-finite floats, which JSON cannot hold, with strings.
func jsonSafe(content any) any {
	switch v := content.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = jsonSafe(el)
		}
		return out
	case [][]any:
		out := make([][]any, len(v))
		for i, row := range v {
			out[i] = jsonSafe(row).([]any)
		}
		return out
	}
	return content
}
