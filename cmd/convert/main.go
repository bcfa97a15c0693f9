// Command convert rewrites raw UCI data files into the "outputs:inputs" data
// set format read by ffnet.
//
//	convert -format iris -in iris.data -out iris.txt
//	convert -format mushroom -in agaricus-lepiota.data -out agaricus-lepiota.txt
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
)

func main() {
	var (
		format = flag.String("format", "", "raw format: "+strings.Join(formats(), ", "))
		in     = flag.String("in", "", "raw input file (required)")
		out    = flag.String("out", "", "converted output file (stdout when empty)")
	)
	flag.Parse()

	convert, ok := data.Converters[*format]
	if !ok || *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	n, err := run(convert, *in, *out)
	if err != nil {
		log.Fatalf("converting %s: %v", *in, err)
	}
	log.Printf("converted %d instances from %s", n, *in)
}

func run(convert data.Converter, in, out string) (int, error) {
	r, err := os.Open(in)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		w = f
	}
	return convert(r, w)
}

func formats() []string {
	names := make([]string, 0, len(data.Converters))
	for name := range data.Converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
