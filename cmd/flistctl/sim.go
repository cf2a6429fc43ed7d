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
	"math/rand"

	"github.com/bytedance/gopkg/util/xxhash3"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/memkit/freelist"
	"github.com/cloudwego/memkit/internal/logger"
)

type simConfig struct {
	size      int
	ops       int
	maxBlock  int
	seed      int64
	freeRatio float64
	verify    bool
	allocFlags
}

func newSimCmd(g *globalFlags) *cobra.Command {
	cfg := simConfig{}
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a random alloc/free workload",
		Long: `The sim command allocates and frees random blocks. Every block is filled
with random bytes when allocated, and its checksum is verified when it's freed,
so blocks handed out twice are detected.

Example:
  flistctl sim --size 1048576 --ops 100000 --max-block 4096
  flistctl sim --size 65536 --ops 10000 --verify --json
  flistctl sim --backing mmap --bookkeeping arena`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runSim(cfg)
			if err != nil {
				return err
			}
			return rep.print(cmd.OutOrStdout(), g.jsonOut)
		},
	}
	cmd.Flags().IntVar(&cfg.size, "size", 1<<20, "Size of the managed region in bytes")
	cmd.Flags().IntVar(&cfg.ops, "ops", 10000, "Number of operations")
	cmd.Flags().IntVar(&cfg.maxBlock, "max-block", 4096, "Max size of an allocation")
	cmd.Flags().Int64Var(&cfg.seed, "seed", 1, "Random seed")
	cmd.Flags().Float64Var(&cfg.freeRatio, "free-ratio", 0.45, "Probability of a free when blocks are live")
	cmd.Flags().BoolVar(&cfg.verify, "verify", false, "Validate the allocator after every operation")
	cfg.allocFlags.register(cmd.Flags())
	return cmd
}

type liveBlock struct {
	b   freelist.Block
	sum uint64
}

func runSim(cfg simConfig) (*report, error) {
	if cfg.maxBlock <= 0 {
		return nil, errors.Newf("max-block must be positive, got %d", cfg.maxBlock)
	}
	if cfg.freeRatio < 0 || cfg.freeRatio > 1 {
		return nil, errors.Newf("free-ratio must be in [0, 1], got %g", cfg.freeRatio)
	}
	fl, release, err := newFreeList(cfg.size, cfg.allocFlags)
	if err != nil {
		return nil, err
	}
	defer release()

	r := rand.New(rand.NewSource(cfg.seed))
	rep := &report{}
	var live []liveBlock
	for i := 0; i < cfg.ops; i++ {
		rep.Ops++
		if len(live) > 0 && r.Float64() < cfg.freeRatio {
			k := r.Intn(len(live))
			lb := live[k]
			if sum := xxhash3.Hash(fl.Bytes(lb.b)); sum != lb.sum {
				return rep, errors.Newf("op %d: block %v was overwritten", i, lb.b)
			}
			if err := fl.FreeBlock(lb.b); err != nil {
				return rep, errors.Wrapf(err, "op %d", i)
			}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
			rep.Frees++
			logger.L().Debug("sim: free", "op", i, "block", lb.b.String())
		} else {
			size := 1 + r.Intn(cfg.maxBlock)
			b, err := fl.AllocBlock(size)
			if errors.Is(err, freelist.ErrNoSpace) {
				rep.fail(errors.Wrapf(err, "op %d", i))
				continue
			}
			if err != nil {
				return rep, errors.Wrapf(err, "op %d", i)
			}
			buf := fl.Bytes(b)
			_, _ = r.Read(buf)
			live = append(live, liveBlock{b: b, sum: xxhash3.Hash(buf)})
			rep.Allocs++
			logger.L().Debug("sim: alloc", "op", i, "block", b.String())
		}
		if cfg.verify {
			if err := fl.Validate(); err != nil {
				return rep, errors.Wrapf(err, "op %d", i)
			}
		}
	}
	rep.setStats(fl.Stats())
	return rep, nil
}
