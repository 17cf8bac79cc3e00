// Package export writes training labels in the darknet/YOLO text format
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/mark"
)

// WriteYOLO writes one "class cx cy w h" line per confirmed mark.
// Provisional marks are skipped. It returns the number of lines written.
func WriteYOLO(w io.Writer, marks []*mark.Mark) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, m := range marks {
		if m.Provisional {
			continue
		}
		b := m.NormalizedRect()
		c := b.Center()
		if _, err := fmt.Fprintf(bw, "%d %.10f %.10f %.10f %.10f\n", m.ClassID, c.X, c.Y, b.W, b.H); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// SaveYOLO writes the label file next to the image at imagePath.
// An image without confirmed marks gets an empty label file.
func SaveYOLO(imagePath string, marks []*mark.Mark) (int, error) {
	path := utils.LabelPath(imagePath)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := WriteYOLO(f, marks)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
