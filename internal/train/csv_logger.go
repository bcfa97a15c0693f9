package train

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
)

// CSVLogger logs training progress to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(initial Metrics, n *net.Network) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		log.Printf("csv logger: failed to open file %s: %v", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.writeRecord("header", []string{"epoch", "loss", "best_loss", "accuracy", "time_seconds"})
	}
	c.OnEpochEnd(initial, n)
}

func (c *CSVLogger) OnEpochEnd(m Metrics, n *net.Network) {
	if c.writer == nil {
		return
	}

	elapsed := time.Since(c.start).Seconds()
	record := []string{
		strconv.Itoa(m.Epoch),
		fmt.Sprintf("%.6f", m.Loss),
		fmt.Sprintf("%.6f", m.BestLoss),
		fmt.Sprintf("%.4f", m.Accuracy),
		fmt.Sprintf("%.2f", elapsed),
	}

	c.writeRecord("record", record)
}

// writeRecord writes and flushes one line, logging any failure.
func (c *CSVLogger) writeRecord(what string, record []string) {
	if err := c.writer.Write(record); err != nil {
		log.Printf("csv logger: failed to write %s: %v", what, err)
		return
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		log.Printf("csv logger: failed to write %s: %v", what, err)
	}
}

func (c *CSVLogger) OnTrainEnd(n *net.Network) {
	if c.file != nil {
		c.writer.Flush()
		c.file.Close()
		c.file = nil
		c.writer = nil
	}
}
