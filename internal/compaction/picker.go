// Package compaction implements the compaction-strategy pickers and the
// merge job that carries out a picked compaction (spec.md §4.6–§4.7).
//
// Reference: original_source's storage/lsm/compaction_pick.cpp,
// transcribed strategy by strategy (the fewest-overlap single-SST pick
// for leveled compaction, the whole-run trivial move when the target
// level is empty, the per-level k_i thresholds for the fluid
// strategy). Style follows aalhour/rockyardkv's
// internal/compaction/picker.go: one picker type per strategy behind a
// shared interface.
package compaction

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/Megumi-X/wing/internal/version"
)

// Strategy names a compaction policy, configurable via the database's
// Options.CompactionStrategy.
type Strategy string

const (
	StrategyLeveled      Strategy = "leveled"
	StrategyLazyLeveling Strategy = "lazy_leveling"
	StrategyFluid        Strategy = "fluid"
	StrategyTiered       Strategy = "tiered"
)

// ErrTieredNotImplemented is returned by NewPicker when asked to build
// a tiered-strategy picker. spec.md §4.7 leaves tiered compaction
// unimplemented; rather than let the engine run with a strategy that
// would panic the moment it had a reason to pick a compaction, Open
// refuses to start in tiered mode at construction time.
var ErrTieredNotImplemented = errors.New("compaction: tiered strategy is not implemented")

// Compaction describes one picked compaction: its input tables and runs,
// the source and target levels, and the run it merges into, if any.
type Compaction struct {
	InputTables []*version.Table
	InputRuns   []*version.SortedRun
	SourceLevel int
	TargetLevel int
	// TargetRun is the sorted run the picker chose to merge into, or
	// nil for a trivial move into an empty level.
	TargetRun *version.SortedRun
	// TrivialMove means the input run can simply be relinked into the
	// target level without rewriting any bytes, because the target
	// level currently holds nothing.
	TrivialMove bool
	Strategy    string
}

// Picker chooses the next compaction to run, or returns nil when the
// version satisfies the strategy's shape invariants and no compaction
// is needed.
type Picker interface {
	Pick(v *version.Version) *Compaction
}

// Options configures every picker strategy. Not every field is used by
// every strategy: Level0CompactionTrigger only matters to LeveledPicker
// (the fluid and lazy-leveling strategies fold L0 into their general
// run-count rule at level 0).
type Options struct {
	BaseLevelSize           uint64
	Ratio                   float64
	Level0CompactionTrigger int
}

// NewPicker builds the Picker for the named strategy.
func NewPicker(strategy Strategy, opts Options) (Picker, error) {
	switch strategy {
	case StrategyLeveled:
		return &LeveledPicker{opts: opts}, nil
	case StrategyLazyLeveling:
		return &LazyLevelingPicker{opts: opts}, nil
	case StrategyFluid:
		return &FluidPicker{opts: opts}, nil
	case StrategyTiered:
		return nil, ErrTieredNotImplemented
	default:
		return nil, fmt.Errorf("compaction: unknown strategy %q", strategy)
	}
}

// LeveledPicker implements classic leveled compaction: walk levels from
// the bottom up looking for one whose size exceeds its target, then
// merge the single SSTable with the fewest overlapping SSTables in the
// level below; fall back to an L0-to-L1 compaction when L0 has
// accumulated too many runs.
type LeveledPicker struct {
	opts Options
}

func (p *LeveledPicker) Pick(v *version.Version) *Compaction {
	levels := v.Levels
	if len(levels) == 0 {
		return nil
	}
	for i := len(levels) - 1; i >= 1; i-- {
		threshold := float64(p.opts.BaseLevelSize) * math.Pow(p.opts.Ratio, float64(i))
		if float64(levels[i].TotalSize()) <= threshold {
			continue
		}
		inputRuns := levels[i].Runs
		if i == len(levels)-1 || levelEmpty(levels[i+1]) {
			return &Compaction{
				InputTables: append([]*version.Table(nil), inputRuns[0].Tables...),
				InputRuns:   inputRuns,
				SourceLevel: i,
				TargetLevel: i + 1,
				TrivialMove: true,
				Strategy:    string(StrategyLeveled),
			}
		}
		targetRuns := levels[i+1].Runs
		chosen := smallestOverlapTable(inputRuns[0].Tables, targetRuns[0].Tables)
		return &Compaction{
			InputTables: []*version.Table{chosen},
			InputRuns:   inputRuns,
			SourceLevel: i,
			TargetLevel: i + 1,
			TargetRun:   targetRuns[0],
			Strategy:    string(StrategyLeveled),
		}
	}
	if len(levels[0].Runs) > p.opts.Level0CompactionTrigger {
		inputRuns := levels[0].Runs
		tables := flattenTables(inputRuns)
		if len(levels) == 1 || levelEmpty(levels[1]) {
			// L0 can hold several overlapping runs, so unlike every other
			// level a trivial move would relink them into the target level
			// as separate runs and never merge again. Always run them
			// through a CompactionJob instead, even with nothing to merge
			// against (original_source's lsm.cpp special-cases
			// src_level() == 0 the same way).
			return &Compaction{
				InputTables: tables,
				InputRuns:   inputRuns,
				SourceLevel: 0,
				TargetLevel: 1,
				Strategy:    string(StrategyLeveled),
			}
		}
		return &Compaction{
			InputTables: tables,
			InputRuns:   inputRuns,
			SourceLevel: 0,
			TargetLevel: 1,
			TargetRun:   levels[1].Runs[0],
			Strategy:    string(StrategyLeveled),
		}
	}
	return nil
}

// LazyLevelingPicker keeps every level but the last as a tiered run
// list (merging only once a level accumulates Ratio runs) and reserves
// leveled merging for the last level, per spec.md §4.6's "lazy
// leveling" strategy.
type LazyLevelingPicker struct {
	opts Options
}

func (p *LazyLevelingPicker) Pick(v *version.Version) *Compaction {
	levels := v.Levels
	if len(levels) == 0 {
		return nil
	}
	if len(levels) == 1 {
		return mergeWholeLevel(levels, 0, nil, string(StrategyLazyLeveling))
	}
	lastLevel := levels[len(levels)-1]
	threshold := math.Pow(p.opts.Ratio, float64(len(levels)-1)) * float64(p.opts.BaseLevelSize)
	if float64(lastLevel.TotalSize()) >= threshold {
		return trivialMoveWholeLevel(levels, len(levels)-1, string(StrategyLazyLeveling))
	}
	if len(levels) >= 3 {
		for i := 0; i <= len(levels)-3; i++ {
			if len(levels[i].Runs) >= int(p.opts.Ratio) {
				return mergeWholeLevel(levels, i, nil, string(StrategyLazyLeveling))
			}
		}
	}
	if len(levels) >= 2 && len(levels[len(levels)-2].Runs) >= int(p.opts.Ratio) {
		return mergeWholeLevel(levels, len(levels)-2, lastLevel.Runs[0], string(StrategyLazyLeveling))
	}
	return nil
}

// FluidPicker generalizes lazy leveling with a per-level fan-out k_i
// instead of one global ratio, per spec.md §4.6's "fluid" strategy.
// The k_i slice grows lazily and defaults new entries to 2, matching
// the picker's grounding source.
type FluidPicker struct {
	opts Options
	kI   []int
}

func (p *FluidPicker) Pick(v *version.Version) *Compaction {
	levels := v.Levels
	if len(levels) == 0 {
		return nil
	}
	if len(levels) == 1 {
		return mergeWholeLevel(levels, 0, nil, string(StrategyFluid))
	}
	for len(p.kI) < len(levels)-1 {
		p.kI = append(p.kI, 2)
	}
	lastSize := p.opts.Ratio * float64(p.opts.BaseLevelSize)
	for i := 1; i < len(levels)-1; i++ {
		lastSize *= float64(p.kI[i])
	}
	lastLevel := levels[len(levels)-1]
	if float64(lastLevel.TotalSize()) >= lastSize {
		return trivialMoveWholeLevel(levels, len(levels)-1, string(StrategyFluid))
	}
	if len(levels) >= 3 {
		for i := 0; i <= len(levels)-3; i++ {
			if len(levels[i].Runs) >= p.kI[i] {
				return mergeWholeLevel(levels, i, nil, string(StrategyFluid))
			}
		}
	}
	if len(levels) >= 2 && len(levels[len(levels)-2].Runs) >= p.kI[len(levels)-2] {
		return mergeWholeLevel(levels, len(levels)-2, lastLevel.Runs[0], string(StrategyFluid))
	}
	return nil
}

func trivialMoveWholeLevel(levels []*version.Level, i int, strategy string) *Compaction {
	run := levels[i].Runs[0]
	return &Compaction{
		InputTables: append([]*version.Table(nil), run.Tables...),
		InputRuns:   []*version.SortedRun{run},
		SourceLevel: i,
		TargetLevel: i + 1,
		TrivialMove: true,
		Strategy:    strategy,
	}
}

func mergeWholeLevel(levels []*version.Level, i int, targetRun *version.SortedRun, strategy string) *Compaction {
	inputRuns := levels[i].Runs
	return &Compaction{
		InputTables: flattenTables(inputRuns),
		InputRuns:   inputRuns,
		SourceLevel: i,
		TargetLevel: i + 1,
		TargetRun:   targetRun,
		Strategy:    strategy,
	}
}

func levelEmpty(l *version.Level) bool {
	return len(l.Runs) == 0 || len(l.Runs[0].Tables) == 0
}

func flattenTables(runs []*version.SortedRun) []*version.Table {
	var tables []*version.Table
	for _, r := range runs {
		tables = append(tables, r.Tables...)
	}
	return tables
}

// smallestOverlapTable picks the source table whose key range overlaps
// the fewest tables in target. A source table that falls entirely
// outside the target run's key range overlaps nothing and is returned
// immediately. Both slices must already be sorted by key range.
func smallestOverlapTable(source, target []*version.Table) *version.Table {
	targetSmallest := target[0].SmallestKey().UserKey()
	targetLargest := target[len(target)-1].LargestKey().UserKey()

	best := source[0]
	bestOverlap := math.MaxInt
	cursor := 0
	for _, sst := range source {
		if bytes.Compare(sst.LargestKey().UserKey(), targetSmallest) < 0 ||
			bytes.Compare(sst.SmallestKey().UserKey(), targetLargest) > 0 {
			return sst
		}
		overlap := 0
		for i := cursor; i < len(target); i++ {
			if bytes.Compare(sst.SmallestKey().UserKey(), target[i].LargestKey().UserKey()) > 0 {
				cursor++
				continue
			}
			if bytes.Compare(sst.LargestKey().UserKey(), target[i].SmallestKey().UserKey()) < 0 {
				break
			}
			overlap++
		}
		if overlap < bestOverlap {
			bestOverlap = overlap
			best = sst
		}
	}
	return best
}
