package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mos-project/mos-core/mm/frame"
)

var dumpGeom geometryFlags

var dumpCmd = &cobra.Command{
	Use:   "dump [trace]",
	Short: "Print the block map, optionally after replaying a trace",
	Long: `Dump prints every block of the region in address order, the free
lists per level, and allocator statistics. With a trace argument the
trace is replayed first.

Example:
  framectl dump boot.trace --size 16M
  framectl dump --size 48K --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkMaxArgs(args, 1, "framectl dump [trace]"); err != nil {
			return err
		}
		g, err := dumpGeom.resolve(cmd, profile)
		if err != nil {
			return err
		}

		var fa *frame.BuddyAllocator
		if len(args) == 1 {
			fa, _, err = loadAndReplay(args[0], g)
			if fa == nil || (err != nil && isInvariantError(err)) {
				return err
			}
		} else {
			fa, err = newAllocator(g)
			if err != nil {
				return err
			}
		}
		return printDump(fa)
	},
}

func init() {
	dumpGeom.register(dumpCmd, "1M")
	rootCmd.AddCommand(dumpCmd)
}

type freeListJSON struct {
	Level int      `json:"level"`
	Size  uint64   `json:"size"`
	Addrs []string `json:"addrs"`
}

type blockJSON struct {
	Addr  string `json:"addr"`
	Size  uint64 `json:"size"`
	Level int    `json:"level"`
	Free  bool   `json:"free"`
}

func printDump(fa *frame.BuddyAllocator) error {
	blocks := fa.Blocks()

	var lists []freeListJSON
	for l := frame.Level(0); l <= fa.MaxLevel(); l++ {
		addrs := fa.FreeBlocks(l)
		if len(addrs) == 0 {
			continue
		}
		fl := freeListJSON{Level: int(l), Size: fa.PageSize() << l}
		for _, a := range addrs {
			fl.Addrs = append(fl.Addrs, hex(a))
		}
		lists = append(lists, fl)
	}

	if jsonOut {
		out := struct {
			Base      string         `json:"base"`
			Size      uint64         `json:"size"`
			PageSize  uint64         `json:"page_size"`
			Blocks    []blockJSON    `json:"blocks"`
			FreeLists []freeListJSON `json:"free_lists"`
			Stats     frame.Stats    `json:"stats"`
		}{
			Base:      hex(fa.Base()),
			Size:      fa.Size(),
			PageSize:  fa.PageSize(),
			FreeLists: lists,
			Stats:     fa.Stats(),
		}
		for _, b := range blocks {
			out.Blocks = append(out.Blocks, blockJSON{hex(b.Addr), b.Size, int(b.Level), b.Free})
		}
		return printJSON(out)
	}
	if quiet {
		return nil
	}

	p := message.NewPrinter(language.English)

	printInfo("%s\n", paint(headerStyle, "Block map"))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Addr", "End", "Size", "Level", "State"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, b := range blocks {
		table.Append([]string{
			hex(b.Addr),
			hex(b.Addr + frame.Addr(b.Size)),
			formatSize(b.Size),
			strconv.Itoa(int(b.Level)),
			blockState(b.Free),
		})
	}
	table.Render()

	printInfo("\n%s\n", paint(headerStyle, "Free lists"))
	for _, fl := range lists {
		printInfo("  L%-2d %-8s %v\n", fl.Level, formatSize(fl.Size), fl.Addrs)
	}

	st := fa.Stats()
	printInfo("\n%s\n", paint(headerStyle, "Usage"))
	printInfo("%s", p.Sprintf("  used %d bytes in %d blocks, free %d bytes\n",
		st.UsedBytes, st.Outstanding, st.FreeBytes))
	return nil
}
