package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/HamletTheHamster/PWB-Calibration-in-Go/internal/calib"
)

// DefaultFolderMatch selects bond folders of a calibration run.
const DefaultFolderMatch = "calibration_ST2ST"

// Source is one measurement file of a bond.
type Source struct {
	Bond   int
	Folder string
	Path   string
}

// Groups maps a bond id to its spectra, ordered by file name.
type Groups map[int][]calib.Spectrum

// Bonds returns the bond ids in ascending order.
func (g Groups) Bonds() []int {
	bonds := make([]int, 0, len(g))
	for b := range g {
		bonds = append(bonds, b)
	}
	sort.Ints(bonds)
	return bonds
}

// Len returns the total number of spectra.
func (g Groups) Len() int {
	n := 0
	for _, s := range g {
		n += len(s)
	}
	return n
}

// BondID extracts the bond number from a folder name: the second-to-last
// '_'-separated token.
func BondID(folder string) (int, error) {
	parts := strings.Split(folder, "_")
	if len(parts) < 2 {
		return 0, fmt.Errorf("folder %q: expected <name>_<bond>_<run>", folder)
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, fmt.Errorf("folder %q: bond id %q is not an integer", folder, parts[len(parts)-2])
	}
	return id, nil
}

// Discover lists the CSV files of every bond folder directly under base
// whose name contains match. An empty match accepts every folder. Folders
// without a parsable bond id are skipped with a warning.
func Discover(
	base, match string,
	logger log.Interface,
) (
	[]Source, error,
) {

	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("listing bond folders: %w", err)
	}

	var sources []Source
	for _, e := range entries {
		if !e.IsDir() || !strings.Contains(e.Name(), match) {
			continue
		}

		bond, err := BondID(e.Name())
		if err != nil {
			logger.WithField("folder", e.Name()).Warnf("skipping folder: %v", err)
			continue
		}

		folder := filepath.Join(base, e.Name())
		files, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", folder, err)
		}

		n := 0
		for _, f := range files {
			if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".csv") {
				continue
			}
			sources = append(sources, Source{
				Bond:   bond,
				Folder: e.Name(),
				Path:   filepath.Join(folder, f.Name()),
			})
			n++
		}
		if n == 0 {
			logger.WithField("folder", e.Name()).Warn("bond folder holds no CSV files")
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Bond != sources[j].Bond {
			return sources[i].Bond < sources[j].Bond
		}
		return sources[i].Path < sources[j].Path
	})

	return sources, nil
}

// Load reads every source on a pool of workers (NumCPU when workers < 1)
// and groups the spectra by bond. Unreadable files are skipped with a
// warning.
func Load(
	ctx context.Context,
	sources []Source,
	channel string,
	workers int,
	logger log.Interface,
) (
	Groups, error,
) {

	if workers < 1 {
		workers = runtime.NumCPU()
	}

	spectra := make([]calib.Spectrum, len(sources))
	failed := make([]error, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spectra[i], failed[i] = ReadSpectrum(src.Path, channel, src.Bond)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make(Groups)
	for i, src := range sources {
		if failed[i] != nil {
			logger.WithFields(log.Fields{
				"bond":     src.Bond,
				"spectrum": filepath.Base(src.Path),
			}).Warnf("skipping unreadable spectrum: %v", failed[i])
			continue
		}
		groups[src.Bond] = append(groups[src.Bond], spectra[i])
	}

	return groups, nil
}
