package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrFormat indicates input that cannot be turned into a dataset.
var ErrFormat = errors.New("dataset: invalid input format")

// labelIndex assigns nominal class labels an index in order of appearance.
type labelIndex struct {
	labels []string
	index  map[string]int
}

func newLabelIndex() *labelIndex {
	return &labelIndex{index: make(map[string]int)}
}

func (l *labelIndex) lookup(label string) float64 {
	if i, ok := l.index[label]; ok {
		return float64(i)
	}

	l.index[label] = len(l.labels)
	l.labels = append(l.labels, label)

	return float64(len(l.labels) - 1)
}

func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "?"
}

func parseAttribute(s string) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}

	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// LoadCSV reads a CSV document with a header row. The column named className
// becomes the class; every other column must hold numbers. Empty cells and
// "?" are read as missing values.
func LoadCSV(r io.Reader, className string, classType ClassType) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrFormat, err)
	}

	classCol := -1
	attributes := make([]string, 0, len(header))

	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == className {
			classCol = i
			continue
		}

		attributes = append(attributes, name)
	}

	if classCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoClass, className)
	}

	var (
		x      [][]float64
		y      []float64
		labels = newLabelIndex()
	)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, line, err)
		}

		row := make([]float64, 0, len(attributes))
		for i, cell := range record {
			if i == classCol {
				continue
			}

			v, err := parseAttribute(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %w", ErrFormat, line, header[i], err)
			}

			row = append(row, v)
		}

		cv, err := parseClass(record[classCol], classType, labels)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrFormat, line, err)
		}

		x = append(x, row)
		y = append(y, cv)
	}

	if classType == Nominal {
		return NewNominal(attributes, className, labels.labels, x, y)
	}

	return NewNumeric(attributes, className, x, y)
}

func parseClass(s string, classType ClassType, labels *labelIndex) (float64, error) {
	if isMissing(s) {
		return math.NaN(), nil
	}

	if classType == Nominal {
		return labels.lookup(strings.TrimSpace(s)), nil
	}

	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// LoadJSON reads a JSON array of flat objects. Attribute names and their
// order are taken from the first object; the field named className becomes
// the class. Null or absent fields are read as missing values.
//
// Example input:
//
//	[{"a": 1.5, "b": 2, "target": "yes"}, {"a": 0.3, "b": null, "target": "no"}]
func LoadJSON(data []byte, className string, classType ClassType) (*Dataset, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrFormat)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array of objects", ErrFormat)
	}

	records := doc.Array()
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	var attributes []string

	hasClass := false

	records[0].ForEach(func(key, _ gjson.Result) bool {
		if key.String() == className {
			hasClass = true
		} else {
			attributes = append(attributes, key.String())
		}

		return true
	})

	if !hasClass {
		return nil, fmt.Errorf("%w: %q", ErrNoClass, className)
	}

	var (
		x      = make([][]float64, 0, len(records))
		y      = make([]float64, 0, len(records))
		labels = newLabelIndex()
	)

	for i, rec := range records {
		if !rec.IsObject() {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrFormat, i)
		}

		row := make([]float64, len(attributes))
		for j, name := range attributes {
			v, err := jsonNumber(rec.Get(gjson.Escape(name)))
			if err != nil {
				return nil, fmt.Errorf("%w: element %d field %q: %w", ErrFormat, i, name, err)
			}

			row[j] = v
		}

		cv, err := jsonClass(rec.Get(gjson.Escape(className)), classType, labels)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrFormat, i, err)
		}

		x = append(x, row)
		y = append(y, cv)
	}

	if classType == Nominal {
		return NewNominal(attributes, className, labels.labels, x, y)
	}

	return NewNumeric(attributes, className, x, y)
}

func jsonNumber(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Null:
		return math.NaN(), nil
	case gjson.Number:
		return v.Float(), nil
	case gjson.True:
		return 1, nil
	case gjson.False:
		return 0, nil
	case gjson.String:
		return parseAttribute(v.String())
	default:
		return 0, fmt.Errorf("unsupported value %s", v.Raw)
	}
}

func jsonClass(v gjson.Result, classType ClassType, labels *labelIndex) (float64, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return math.NaN(), nil
	}

	if classType == Nominal {
		if v.Type == gjson.String && isMissing(v.String()) {
			return math.NaN(), nil
		}

		// Numbers and booleans are labels too.
		return labels.lookup(v.String()), nil
	}

	return jsonNumber(v)
}
