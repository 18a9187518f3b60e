package devserver

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// WriteBanner prints the two startup lines: where the server listens and
// which directory it serves.
func WriteBanner(w io.Writer, url, root string) error {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	if _, err := fmt.Fprintf(w, "%s started on %s\n", bold.Sprint("devserve"), cyan.Sprint(url)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Serving files from: %s\n", root)
	return err
}
