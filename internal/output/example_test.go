package output_test

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/dirwatcher/internal/output"
	"github.com/blackwell-systems/dirwatcher/internal/store"
)

// Example showing how to render recorded matches
func ExampleRenderMatches() {
	matches := []*store.Match{
		{File: "a.txt", Line: 2, Text: "the magic word", FoundAt: time.Now()},
	}
	fmt.Print(output.RenderMatches(matches))
}

// Example showing how to wait on a background process with a spinner
func ExampleSpinner() {
	spinner := output.NewSpinner("Waiting for daemon to stop").WithTimeout(10 * time.Second)
	spinner.Start()

	// Poll the daemon here...

	spinner.StopWithMessage("Daemon stopped")
}
