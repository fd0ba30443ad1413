package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mos-project/mos-core/cmd/framectl/logger"
	"github.com/mos-project/mos-core/mm/frame"
	"github.com/mos-project/mos-core/pkg/pmm"
)

var (
	stressGeom     geometryFlags
	stressOps      int
	stressSeed     int64
	stressMaxAlloc string
	stressImage    string
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run randomized alloc/free against real mapped memory",
	Long: `Stress maps a region (anonymous memory, or --image for a file
mapping), performs random allocations and frees, stamps every frame
with a tag and verifies the tag before the frame is released. Any
overlap between live frames shows up as a corrupted tag.

With --check the allocator invariants are validated after every step.

Example:
  framectl stress --ops 100000 --seed 7 --size 64M --check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := stressGeom.resolve(cmd, profile)
		if err != nil {
			return err
		}
		maxAlloc, err := parseSize(stressMaxAlloc)
		if err != nil {
			return fmt.Errorf("--max-alloc: %w", err)
		}
		report, err := runStress(stressOptions{
			geometry: g,
			Ops:      stressOps,
			Seed:     stressSeed,
			MaxAlloc: maxAlloc,
			Image:    stressImage,
		})
		if err != nil {
			return err
		}
		return printStressReport(report)
	},
}

func init() {
	stressGeom.register(stressCmd, "4M")
	stressCmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of operations")
	stressCmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	stressCmd.Flags().StringVar(&stressMaxAlloc, "max-alloc", "64K", "Largest single request")
	stressCmd.Flags().StringVar(&stressImage, "image", "", "Map this RAM image file instead of anonymous memory")
	rootCmd.AddCommand(stressCmd)
}

type stressOptions struct {
	geometry
	Ops      int
	Seed     int64
	MaxAlloc uint64
	Image    string
}

type stressReport struct {
	Seed            int64       `json:"seed"`
	Ops             int         `json:"ops"`
	Allocs          int         `json:"allocs"`
	Frees           int         `json:"frees"`
	OutOfMemory     int         `json:"out_of_memory"`
	PeakOutstanding int         `json:"peak_outstanding"`
	PeakUsedBytes   uint64      `json:"peak_used_bytes"`
	Stats           frame.Stats `json:"stats"`
}

type liveFrame struct {
	f   pmm.Frames
	tag byte
}

func runStress(opts stressOptions) (stressReport, error) {
	if opts.Ops < 0 {
		return stressReport{}, fmt.Errorf("--ops must not be negative")
	}
	if opts.MaxAlloc == 0 {
		return stressReport{}, fmt.Errorf("--max-alloc must be positive")
	}

	mem, err := pmm.Open(pmm.Options{
		Size:      opts.Size,
		PageSize:  opts.PageSize,
		MaxPages:  opts.MaxPages,
		ImagePath: opts.Image,
		Logger:    logger.L,
		Observer:  commandObserver(),
	})
	if err != nil {
		return stressReport{}, err
	}
	initial := mem.Blocks()

	report := stressReport{Seed: opts.Seed, Ops: opts.Ops}
	rng := rand.New(rand.NewSource(opts.Seed))
	var live []liveFrame

	release := func(i int) error {
		lf := live[i]
		for j, b := range lf.f.Data {
			if b != lf.tag {
				return fmt.Errorf("frame 0x%x corrupted at +0x%x: tag 0x%02x, found 0x%02x",
					uint64(lf.f.Addr), j, lf.tag, b)
			}
		}
		if err := mem.Free(lf.f.Addr); err != nil {
			return err
		}
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
		report.Frees++
		return nil
	}

	fail := func(err error) (stressReport, error) {
		_, cerr := mem.Close()
		return report, errors.Join(err, cerr)
	}

	for op := range opts.Ops {
		if len(live) == 0 || rng.Intn(100) < 55 {
			size := uint64(rng.Int63n(int64(opts.MaxAlloc))) + 1
			f, err := mem.Alloc(size)
			switch {
			case errors.Is(err, frame.ErrOutOfMemory):
				report.OutOfMemory++
			case err != nil:
				return fail(fmt.Errorf("op %d: alloc %d: %w", op, size, err))
			default:
				tag := byte(op) | 1
				for j := range f.Data {
					f.Data[j] = tag
				}
				live = append(live, liveFrame{f: f, tag: tag})
				report.Allocs++
			}
		} else if err := release(rng.Intn(len(live))); err != nil {
			return fail(fmt.Errorf("op %d: %w", op, err))
		}

		if opts.Check {
			if err := mem.Check(); err != nil {
				return fail(fmt.Errorf("op %d: %w", op, err))
			}
		}
		st := mem.Stats()
		report.PeakOutstanding = max(report.PeakOutstanding, st.Outstanding)
		report.PeakUsedBytes = max(report.PeakUsedBytes, st.UsedBytes)
	}

	for len(live) > 0 {
		if err := release(len(live) - 1); err != nil {
			return fail(err)
		}
	}
	if err := mem.Check(); err != nil {
		return fail(err)
	}
	if got := mem.Blocks(); len(got) != len(initial) {
		return fail(fmt.Errorf("region did not coalesce: %d blocks, started with %d", len(got), len(initial)))
	}

	report.Stats = mem.Stats()
	leaks, err := mem.Close()
	if err != nil {
		return report, err
	}
	if leaks != 0 {
		return report, fmt.Errorf("%d frames leaked", leaks)
	}

	logger.Info("stress finished",
		"seed", opts.Seed,
		"ops", opts.Ops,
		"allocs", report.Allocs,
		"oom", report.OutOfMemory,
	)
	return report, nil
}

func printStressReport(r stressReport) error {
	if jsonOut {
		return printJSON(r)
	}
	if quiet {
		return nil
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(os.Stdout, "%s\n", paint(headerStyle, "Stress run"))
	p.Fprintf(os.Stdout, "  seed:             %d\n", r.Seed)
	p.Fprintf(os.Stdout, "  operations:       %d\n", r.Ops)
	p.Fprintf(os.Stdout, "  allocations:      %d (%d out of memory)\n", r.Allocs, r.OutOfMemory)
	p.Fprintf(os.Stdout, "  frees:            %d\n", r.Frees)
	p.Fprintf(os.Stdout, "  peak outstanding: %d blocks, %d bytes\n", r.PeakOutstanding, r.PeakUsedBytes)
	p.Fprintf(os.Stdout, "  splits / merges:  %d / %d\n", r.Stats.Splits, r.Stats.Merges)
	p.Fprintf(os.Stdout, "  %s\n", status(true))
	return nil
}
