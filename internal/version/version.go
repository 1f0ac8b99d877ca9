package version

// Version is the ordered sequence of levels at a point in time
// (spec.md §3). Versions are immutable once built — the flush and
// compaction workers build a new Version from the previous one plus
// their changes and publish it as part of a new SuperVersion.
type Version struct {
	Levels []*Level
}

// New creates an empty Version with no levels.
func New() *Version {
	return &Version{}
}

// ensureLevel lazily extends Levels to accommodate index i, per
// spec.md §4.5 ("Version::Append... extends levels_ lazily").
func (v *Version) ensureLevel(i int) {
	for len(v.Levels) <= i {
		v.Levels = append(v.Levels, &Level{})
	}
}

// Append extends the version's level i with run.
func (v *Version) Append(levelIndex int, run *SortedRun) {
	v.ensureLevel(levelIndex)
	v.Levels[levelIndex].Append(run)
}

// NumLevels returns the number of levels currently in the version.
func (v *Version) NumLevels() int { return len(v.Levels) }

// Level returns the level at index i, or nil if the version has not
// grown that deep yet.
func (v *Version) Level(i int) *Level {
	if i < 0 || i >= len(v.Levels) {
		return nil
	}
	return v.Levels[i]
}

// Get walks levels in order; the first level returning Found or
// Deleted stops the search (spec.md §4.5).
func (v *Version) Get(userKey []byte, seq uint64) ([]byte, GetResult, error) {
	for _, l := range v.Levels {
		val, res, err := l.Get(userKey, seq)
		if err != nil {
			return nil, NotFound, err
		}
		if res != NotFound {
			return val, res, nil
		}
	}
	return nil, NotFound, nil
}

// Iterators returns one RunIterator per sorted run across every level,
// in level order, for the SuperVersionIterator to merge.
func (v *Version) Iterators() []*RunIterator {
	var its []*RunIterator
	for _, l := range v.Levels {
		its = append(its, l.Iterators()...)
	}
	return its
}

// AllTables returns every table referenced by the version, used when
// building a SuperVersion to bump reference counts and when tearing
// one down to drop them.
func (v *Version) AllTables() []*Table {
	var tables []*Table
	for _, l := range v.Levels {
		for _, r := range l.Runs {
			tables = append(tables, r.Tables...)
		}
	}
	return tables
}
