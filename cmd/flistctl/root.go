/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cloudwego/memkit/allocx"
	"github.com/cloudwego/memkit/arena"
	"github.com/cloudwego/memkit/freelist"
	"github.com/cloudwego/memkit/internal/logger"
)

// globalFlags are shared by all subcommands.
type globalFlags struct {
	verbose bool
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "flistctl",
		Short: "Drive the freelist allocator from the command line",
		Long: `flistctl runs random alloc/free workloads and replays recorded traces
against a freelist allocator, then reports usage and fragmentation.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				allocx.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
					&slog.HandlerOptions{Level: slog.LevelDebug})))
			} else {
				allocx.SetLogger(nil)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log allocator events to stderr")
	cmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(newSimCmd(g), newReplayCmd(g))
	return cmd
}

// bookkeepingArenaSize bounds the block tables when they live in an arena.
const bookkeepingArenaSize = 4 << 20

// allocFlags select where the region and the block tables come from.
type allocFlags struct {
	backing     string
	bookkeeping string
}

func (a *allocFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&a.backing, "backing", "heap", "Region backing: heap or mmap")
	fs.StringVar(&a.bookkeeping, "bookkeeping", "heap", "Block table allocator: heap, span or arena")
}

// newFreeList creates a FreeList as selected by a. The returned func releases it.
func newFreeList(size int, a allocFlags) (*freelist.FreeList, func(), error) {
	o := freelist.DefaultOptions()
	var ar *arena.Arena
	switch a.bookkeeping {
	case "", "heap":
	case "span":
		o.Bookkeeping = allocx.NewSpanAllocator(0)
	case "arena":
		var err error
		if ar, err = arena.New(bookkeepingArenaSize, false); err != nil {
			return nil, nil, err
		}
		o.Bookkeeping = arena.AsAllocator(ar)
	default:
		return nil, nil, errors.Newf("unknown bookkeeping %q, want heap, span or arena", a.bookkeeping)
	}
	switch a.backing {
	case "", "heap":
	case "mmap":
		mm, err := allocx.NewMmapAllocator()
		if err != nil {
			return nil, nil, err
		}
		o.Backing = mm
	default:
		return nil, nil, errors.Newf("unknown backing %q, want heap or mmap", a.backing)
	}
	fl, err := freelist.NewWithOptions(size, o)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := fl.Release(); err != nil {
			logger.L().Warn("flistctl: release", "error", err)
		}
		if ar != nil {
			releaseArena(ar)
		}
	}
	return fl, release, nil
}

func releaseArena(ar *arena.Arena) {
	if err := ar.Release(); err != nil {
		logger.L().Warn("flistctl: release bookkeeping arena", "error", err)
	}
}

// report is the outcome of a sim or replay run.
type report struct {
	Ops          int    `json:"ops"`
	Allocs       int    `json:"allocs"`
	Frees        int    `json:"frees"`
	Failures     int    `json:"failures"`
	FirstFailure string `json:"first_failure,omitempty"`

	Total       int `json:"total"`
	Used        int `json:"used"`
	UsedBlocks  int `json:"used_blocks"`
	FreeBlocks  int `json:"free_blocks"`
	LargestFree int `json:"largest_free"`
}

func (r *report) fail(err error) {
	r.Failures++
	if r.FirstFailure == "" {
		r.FirstFailure = err.Error()
	}
}

func (r *report) setStats(s freelist.Stats) {
	r.Total = s.Total
	r.Used = s.Used
	r.UsedBlocks = s.UsedBlocks
	r.FreeBlocks = s.FreeBlocks
	r.LargestFree = s.LargestFree
}

func (r *report) print(w io.Writer, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	pct := 0.0
	if r.Total > 0 {
		pct = 100 * float64(r.Used) / float64(r.Total)
	}
	// fragmentation: share of free bytes outside the largest free block
	frag := 0.0
	if free := r.Total - r.Used; free > 0 {
		frag = 100 * float64(free-r.LargestFree) / float64(free)
	}
	var err error
	p := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	p("ops:           %d\n", r.Ops)
	p("allocs:        %d\n", r.Allocs)
	p("frees:         %d\n", r.Frees)
	p("failures:      %d\n", r.Failures)
	p("used:          %d / %d (%.1f%%)\n", r.Used, r.Total, pct)
	p("used blocks:   %d\n", r.UsedBlocks)
	p("free blocks:   %d\n", r.FreeBlocks)
	p("largest free:  %d\n", r.LargestFree)
	p("fragmentation: %.1f%%\n", frag)
	if r.FirstFailure != "" {
		p("first failure: %s\n", r.FirstFailure)
	}
	return err
}
