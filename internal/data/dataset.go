package data

import (
	"bufio"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ErrFormat is returned for malformed data files.
var ErrFormat = errors.New("malformed data set")

// DataSet is an ordered collection of instances with consistent widths.
type DataSet struct {
	name          string
	instances     []Instance
	numberInputs  int
	numberOutputs int
	numberClasses int
}

// Load reads a data set file. Each non-empty line that does not start with
// '#' has the form "out1,out2,...:in1,in2,...".
func Load(name, filename string) (*DataSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open data set")
	}
	defer file.Close()

	return Parse(name, file)
}

// Parse reads a data set from r using the same format as Load.
func Parse(name string, r io.Reader) (*DataSet, error) {
	d := &DataSet{name: name, numberInputs: -1, numberOutputs: -1}
	classes := make(map[float64]struct{})

	scanner := bufio.NewScanner(r)
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		outputPart, inputPart, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.Wrapf(ErrFormat, "line %d is not properly formatted", lineCount)
		}

		outputs, err := parseValues(outputPart)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d outputs", lineCount)
		}
		inputs, err := parseValues(inputPart)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d inputs", lineCount)
		}

		if d.numberOutputs == -1 {
			d.numberOutputs = len(outputs)
		} else if len(outputs) != d.numberOutputs {
			return nil, errors.Wrapf(ErrFormat, "inconsistent number of outputs on line %d", lineCount)
		}
		if d.numberInputs == -1 {
			d.numberInputs = len(inputs)
		} else if len(inputs) != d.numberInputs {
			return nil, errors.Wrapf(ErrFormat, "inconsistent number of inputs on line %d", lineCount)
		}

		for _, o := range outputs {
			classes[o] = struct{}{}
		}
		d.instances = append(d.instances, Instance{ExpectedOutputs: outputs, Inputs: inputs})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read data set")
	}
	if len(d.instances) == 0 {
		return nil, errors.Wrap(ErrFormat, "data set has no instances")
	}

	d.numberClasses = len(classes)
	return d, nil
}

func parseValues(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	values := make([]float64, 0, len(fields))
	for j, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "value %d: %v", j, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// New builds a data set from instances already in memory.
func New(name string, instances []Instance) (*DataSet, error) {
	if len(instances) == 0 {
		return nil, errors.Wrap(ErrFormat, "data set has no instances")
	}
	d := &DataSet{
		name:          name,
		numberInputs:  len(instances[0].Inputs),
		numberOutputs: len(instances[0].ExpectedOutputs),
	}
	classes := make(map[float64]struct{})
	for i, inst := range instances {
		if len(inst.Inputs) != d.numberInputs || len(inst.ExpectedOutputs) != d.numberOutputs {
			return nil, errors.Wrapf(ErrFormat, "instance %d has inconsistent width", i)
		}
		for _, o := range inst.ExpectedOutputs {
			classes[o] = struct{}{}
		}
		d.instances = append(d.instances, NewInstance(inst.ExpectedOutputs, inst.Inputs))
	}
	d.numberClasses = len(classes)
	return d, nil
}

// Name returns the data set name.
func (d *DataSet) Name() string { return d.name }

// Len returns the number of instances.
func (d *DataSet) Len() int { return len(d.instances) }

// NumberInputs returns the width of every input vector.
func (d *DataSet) NumberInputs() int { return d.numberInputs }

// NumberOutputs returns the width of every expected output vector.
func (d *DataSet) NumberOutputs() int { return d.numberOutputs }

// NumberClasses returns the number of distinct expected output values.
func (d *DataSet) NumberClasses() int { return d.numberClasses }

// Instance returns the instance at position i.
func (d *DataSet) Instance(i int) Instance { return d.instances[i] }

// Instances returns all instances in their current order.
func (d *DataSet) Instances() []Instance { return d.instances }

// Slice returns up to n instances starting at pos; the final slice may be short.
func (d *DataSet) Slice(pos, n int) []Instance {
	if pos >= len(d.instances) || n <= 0 {
		return nil
	}
	end := min(pos+n, len(d.instances))
	return d.instances[pos:end]
}

// Shuffle permutes the instances in place.
func (d *DataSet) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.instances), func(i, j int) {
		d.instances[i], d.instances[j] = d.instances[j], d.instances[i]
	})
}

// column gathers input feature j across all instances.
func (d *DataSet) column(j int) []float64 {
	col := make([]float64, len(d.instances))
	for i, inst := range d.instances {
		col[i] = inst.Inputs[j]
	}
	return col
}

// InputMeans returns the per-feature mean of the inputs.
func (d *DataSet) InputMeans() []float64 {
	means := make([]float64, d.numberInputs)
	for j := range means {
		means[j] = stat.Mean(d.column(j), nil)
	}
	return means
}

// InputStandardDeviations returns the per-feature sample standard deviation
// (n-1 denominator) of the inputs.
func (d *DataSet) InputStandardDeviations() []float64 {
	stds := make([]float64, d.numberInputs)
	for j := range stds {
		stds[j] = stat.StdDev(d.column(j), nil)
	}
	return stds
}

// Normalize rescales every input feature to (x - mean) / std. Features with a
// zero standard deviation are only centred.
func (d *DataSet) Normalize(means, stds []float64) error {
	if len(means) != d.numberInputs || len(stds) != d.numberInputs {
		return errors.Wrapf(ErrFormat, "normalization needs %d means and deviations", d.numberInputs)
	}
	for _, inst := range d.instances {
		for j := range inst.Inputs {
			inst.Inputs[j] -= means[j]
			if stds[j] != 0 {
				inst.Inputs[j] /= stds[j]
			}
		}
	}
	return nil
}

// Split splits the data set into two based on the given ratio (0.0 to 1.0).
// The halves share instance storage with d.
func (d *DataSet) Split(ratio float64) (*DataSet, *DataSet) {
	splitIdx := int(float64(len(d.instances)) * ratio)
	splitIdx = max(0, min(splitIdx, len(d.instances)))

	head := *d
	head.instances = d.instances[:splitIdx]
	tail := *d
	tail.instances = d.instances[splitIdx:]
	return &head, &tail
}
