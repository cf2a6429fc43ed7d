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
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/memkit/freelist"
	"github.com/cloudwego/memkit/internal/logger"
)

type replayConfig struct {
	size int
	allocFlags
}

func newReplayCmd(g *globalFlags) *cobra.Command {
	cfg := replayConfig{}
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Replay an alloc/free trace",
		Long: `The replay command runs the operations of a trace file, "-" for stdin.
Each line is one of:

  alloc <id> <size>
  free <id>

Blank lines and lines starting with # are ignored. Failed operations are
counted and the first one is reported.

Example:
  flistctl replay --size 4096 trace.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errors.Wrap(err, "open trace")
				}
				defer f.Close()
				in = f
			}
			rep, err := runReplay(cfg, in)
			if err != nil {
				return err
			}
			return rep.print(cmd.OutOrStdout(), g.jsonOut)
		},
	}
	cmd.Flags().IntVar(&cfg.size, "size", 1<<20, "Size of the managed region in bytes")
	cfg.allocFlags.register(cmd.Flags())
	return cmd
}

func runReplay(cfg replayConfig, in io.Reader) (*report, error) {
	fl, release, err := newFreeList(cfg.size, cfg.allocFlags)
	if err != nil {
		return nil, err
	}
	defer release()

	rep := &report{}
	live := map[string]freelist.Block{}
	sc := bufio.NewScanner(in)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		rep.Ops++
		switch {
		case fields[0] == "alloc" && len(fields) == 3:
			id := fields[1]
			size, err := strconv.Atoi(fields[2])
			if err != nil {
				return rep, errors.Wrapf(err, "line %d: bad size", line)
			}
			if _, ok := live[id]; ok {
				rep.fail(errors.Newf("line %d: %s is already allocated", line, id))
				continue
			}
			b, err := fl.AllocBlock(size)
			if err != nil {
				rep.fail(errors.Wrapf(err, "line %d", line))
				continue
			}
			live[id] = b
			rep.Allocs++
			logger.L().Debug("replay: alloc", "line", line, "id", id, "block", b.String())

		case fields[0] == "free" && len(fields) == 2:
			id := fields[1]
			b, ok := live[id]
			if !ok {
				rep.fail(errors.Newf("line %d: %s is not allocated", line, id))
				continue
			}
			if err := fl.FreeBlock(b); err != nil {
				rep.fail(errors.Wrapf(err, "line %d", line))
				continue
			}
			delete(live, id)
			rep.Frees++
			logger.L().Debug("replay: free", "line", line, "id", id, "block", b.String())

		default:
			return rep, errors.Newf("line %d: cannot parse %q", line, sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		return rep, errors.Wrap(err, "read trace")
	}
	if err := fl.Validate(); err != nil {
		return rep, err
	}
	rep.setStats(fl.Stats())
	return rep, nil
}
