package cli

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// NewProgressBar builds the progress bar shown during batch operations
// like receipt ingestion and backlog classification.
func NewProgressBar(writer io.Writer, total int, description string) *progressbar.ProgressBar {
	if writer == nil {
		writer = os.Stdout
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
