package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mos-project/mos-core/cmd/framectl/logger"
	"github.com/mos-project/mos-core/mm/frame"
)

var (
	replayGeom   geometryFlags
	replayStrict bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace>",
	Short: "Replay an alloc/free trace against a fresh allocator",
	Long: `Replay reads a trace file and applies it to an allocator over
[0, size). Each line is one of:

  alloc <size>     e.g. alloc 4K, alloc 0x3000
  free <addr>      e.g. free 0x1000
  free #<n>        free the result of the n-th alloc line

Lines starting with '#' are comments.

Example:
  framectl replay boot.trace --size 16M --check`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := replayGeom.resolve(cmd, profile)
		if err != nil {
			return err
		}
		return runReplay(args[0], g)
	},
}

func init() {
	replayGeom.register(replayCmd, "1M")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "Fail if any operation fails")
	rootCmd.AddCommand(replayCmd)
}

// loadAndReplay parses path and replays it on a new allocator.
func loadAndReplay(path string, g geometry) (*frame.BuddyAllocator, []stepResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ops, err := parseTrace(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	fa, err := newAllocator(g)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("replay started", "trace", path, "ops", len(ops))
	results, err := replayTrace(fa, ops, g.Check)
	if err != nil {
		logger.Error("replay aborted", "trace", path, "error", err)
	}
	return fa, results, err
}

func runReplay(path string, g geometry) error {
	fa, results, err := loadAndReplay(path, g)
	if fa == nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.ok() {
			failed++
		}
	}

	if jsonOut {
		if jerr := printJSON(struct {
			Steps       []stepResult `json:"steps"`
			Failed      int          `json:"failed"`
			Outstanding int          `json:"outstanding"`
			Stats       frame.Stats  `json:"stats"`
		}{results, failed, fa.Outstanding(), fa.Stats()}); jerr != nil {
			return jerr
		}
	} else if !quiet {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Line", "Op", "Arg", "Addr", "Size", "Result"})
		table.SetAutoWrapText(false)
		for _, r := range results {
			size := ""
			if r.Size > 0 {
				size = formatSize(r.Size)
			}
			result := status(r.ok())
			if !r.ok() {
				result += " " + r.Error
			}
			table.Append([]string{strconv.Itoa(r.Line), r.Op, r.Arg, r.Addr, size, result})
		}
		table.Render()
		printInfo("\n%d operations, %d failed, %d allocations outstanding\n",
			len(results), failed, fa.Outstanding())
	}

	if err != nil {
		return err
	}
	if replayStrict && failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(results))
	}
	return nil
}
