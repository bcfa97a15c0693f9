package data

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Converter rewrites a raw data file as "outputs:inputs" lines and returns the
// number of instances written.
type Converter func(r io.Reader, w io.Writer) (int, error)

// Converters maps format names to converters.
var Converters = map[string]Converter{
	"iris":     ConvertIris,
	"mushroom": ConvertMushroom,
}

var irisClasses = map[string]string{
	"Iris-setosa":     "0",
	"Iris-versicolor": "1",
	"Iris-virginica":  "2",
}

// mushroomColumns lists the symbols of each attribute of agaricus-lepiota.data
// in one-hot order. The class column comes first in the file and is not listed.
var mushroomColumns = [][]string{
	{"b", "c", "x", "f", "k", "s"},
	{"f", "g", "y", "s"},
	{"n", "b", "c", "g", "r", "p", "u", "e", "w", "y"},
	{"t", "f"},
	{"a", "l", "c", "y", "f", "m", "n", "p", "s"},
	{"a", "d", "f", "n"},
	{"c", "w", "d"},
	{"b", "n"},
	{"k", "n", "b", "h", "g", "r", "o", "p", "u", "e", "w", "y"},
	{"e", "t"},
	{"b", "c", "u", "e", "z", "r", "?"},
	{"f", "y", "k", "s"},
	{"f", "y", "k", "s"},
	{"n", "b", "c", "g", "o", "p", "e", "w", "y"},
	{"n", "b", "c", "g", "o", "p", "e", "w", "y"},
	{"p", "u"},
	{"n", "o", "w", "y"},
	{"n", "o", "t"},
	{"c", "e", "f", "l", "n", "p", "s", "z"},
	{"k", "n", "b", "h", "r", "o", "u", "w", "y"},
	{"a", "c", "n", "s", "v", "y"},
	{"g", "l", "m", "p", "u", "w", "d"},
}

// convertLines feeds every non-empty, non-comment line of r, split on commas,
// to convert and writes the returned line to w.
func convertLines(r io.Reader, w io.Writer, convert func(values []string) (string, error)) (int, error) {
	scanner := bufio.NewScanner(r)
	out := bufio.NewWriter(w)
	lineCount, written := 0, 0
	for scanner.Scan() {
		lineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		converted, err := convert(strings.Split(line, ","))
		if err != nil {
			return written, errors.Wrapf(err, "line %d", lineCount)
		}
		if _, err := out.WriteString(converted + "\n"); err != nil {
			return written, errors.Wrap(err, "failed to write converted data")
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return written, errors.Wrap(err, "failed to read raw data")
	}
	if err := out.Flush(); err != nil {
		return written, errors.Wrap(err, "failed to write converted data")
	}
	return written, nil
}

// ConvertIris converts the UCI iris.data format ("f1,f2,f3,f4,Iris-name") to
// "class:f1,f2,f3,f4" with classes setosa=0, versicolor=1 and virginica=2.
func ConvertIris(r io.Reader, w io.Writer) (int, error) {
	return convertLines(r, w, func(values []string) (string, error) {
		if len(values) < 2 {
			return "", errors.Wrapf(ErrFormat, "got %d fields", len(values))
		}
		name := strings.TrimSpace(values[len(values)-1])
		class, ok := irisClasses[name]
		if !ok {
			return "", errors.Wrapf(ErrFormat, "unknown iris class %q", name)
		}

		features := values[:len(values)-1]
		for i, f := range features {
			features[i] = strings.TrimSpace(f)
			if _, err := strconv.ParseFloat(features[i], 64); err != nil {
				return "", errors.Wrapf(ErrFormat, "feature %d: %v", i, err)
			}
		}
		return class + ":" + strings.Join(features, ","), nil
	})
}

// ConvertMushroom converts the UCI agaricus-lepiota.data format (class letter
// then 22 categorical attributes) to "class:onehot...". Poisonous is 1 and
// edible is 0; every attribute becomes one 0/1 input per possible symbol.
func ConvertMushroom(r io.Reader, w io.Writer) (int, error) {
	return convertLines(r, w, func(values []string) (string, error) {
		if len(values) != len(mushroomColumns)+1 {
			return "", errors.Wrapf(ErrFormat, "got %d fields, want %d", len(values), len(mushroomColumns)+1)
		}

		var b strings.Builder
		switch strings.TrimSpace(values[0]) {
		case "p":
			b.WriteString("1:")
		case "e":
			b.WriteString("0:")
		default:
			return "", errors.Wrapf(ErrFormat, "unknown mushroom class %q", values[0])
		}

		for i, symbols := range mushroomColumns {
			v := strings.TrimSpace(values[i+1])
			hot := slices.Index(symbols, v)
			if hot < 0 {
				return "", errors.Wrapf(ErrFormat, "attribute %d: unknown symbol %q", i+1, v)
			}
			for j := range symbols {
				if i > 0 || j > 0 {
					b.WriteByte(',')
				}
				if j == hot {
					b.WriteByte('1')
				} else {
					b.WriteByte('0')
				}
			}
		}
		return b.String(), nil
	})
}
