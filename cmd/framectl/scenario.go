package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mos-project/mos-core/cmd/framectl/logger"
	"github.com/mos-project/mos-core/mm/frame"
)

const scenarioRegion = 1 << 20

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the reference allocation scenario on a 1 MiB region",
	Long: `Scenario initializes an allocator over [0x0, 0x100000), allocates
two pages, frees both and verifies that the region coalesces back into
a single free block and that nothing leaked.

Use --verbose to see every split and merge.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario()
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

type scenarioStep struct {
	Step   string `json:"step"`
	Want   string `json:"want"`
	Got    string `json:"got"`
	Passed bool   `json:"passed"`
}

func runScenario() error {
	fa, err := newAllocator(geometry{Size: scenarioRegion, PageSize: frame.DefaultPageSize})
	if err != nil {
		return err
	}
	initial := fa.Blocks()

	var steps []scenarioStep
	record := func(step, want, got string) {
		s := scenarioStep{Step: step, Want: want, Got: got, Passed: want == got}
		steps = append(steps, s)
		if !jsonOut {
			printInfo("%-28s want %-10s got %-10s %s\n", step, want, got, status(s.Passed))
		}
		logger.Debug("scenario step", "step", step, "want", want, "got", got)
	}
	allocStep := func(want frame.Addr) frame.Addr {
		printVerbose("  allocate 4096\n")
		addr, err := fa.Allocate(4096)
		got := hex(addr)
		if err != nil {
			got = err.Error()
		}
		record("allocate(4096)", hex(want), got)
		return addr
	}
	freeStep := func(addr frame.Addr) {
		printVerbose("  free %s\n", hex(addr))
		got := "ok"
		if err := fa.Free(addr); err != nil {
			got = err.Error()
		}
		record("free("+hex(addr)+")", "ok", got)
	}

	a := allocStep(0x0)
	b := allocStep(0x1000)
	freeStep(a)
	freeStep(b)

	record("cleanup()", "0", fmt.Sprint(fa.Cleanup()))
	record("coalesced to initial map", "true", fmt.Sprint(slices.Equal(initial, fa.Blocks())))

	bad := fa.Base() - frame.Addr(fa.PageSize())
	got := "ok"
	if err := fa.Free(bad); err != nil {
		got = "rejected"
	}
	record("free(base-4096)", "rejected", got)

	checkGot := "ok"
	if err := fa.Check(); err != nil {
		checkGot = err.Error()
	}
	record("check()", "ok", checkGot)

	failed := 0
	for _, s := range steps {
		if !s.Passed {
			failed++
		}
	}

	if jsonOut {
		if err := printJSON(struct {
			Steps  []scenarioStep `json:"steps"`
			Failed int            `json:"failed"`
		}{steps, failed}); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("scenario: %d of %d steps failed", failed, len(steps))
	}
	if !jsonOut {
		printInfo("\nscenario passed (%d steps)\n", len(steps))
	}
	return nil
}
