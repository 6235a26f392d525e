// Package resolve implements deft's dependency resolver: Minimum Version
// Selection over production and dev dependencies, with cycle detection
// and conflict classification.
//
// deft is not a general-purpose SAT-style solver: it always takes the
// oldest version compatible with every stated minimum. Params carries
// the run's inputs, trace output goes through a *log.Logger, and
// errors are *deferr.Error values classified by one Kind per failure.
package resolve

import (
	"fmt"
	"log"

	"github.com/cgay/deft/internal/catalog"
	"github.com/cgay/deft/internal/deferr"
	"github.com/cgay/deft/internal/semver"
)

// Root is one active package's own declared dependencies -- the seeds of
// the resolver's worklist.
type Root struct {
	Name     string
	ProdDeps []semver.Dep
	DevDeps  []semver.Dep
}

// Params holds the inputs to a single resolve run.
type Params struct {
	// Roots are the active packages' own prod/dev deps.
	Roots []Root
	// Active shadows the catalog: any name present here is resolved to
	// this release regardless of what the catalog says.
	Active map[string]catalog.Release
	// Catalog is consulted for every non-active name.
	Catalog catalog.Catalog

	// Trace enables progress logging to TraceLogger.
	Trace       bool
	TraceLogger *log.Logger
}

// Warning is a non-fatal condition surfaced for end-of-run reporting.
type Warning struct {
	Message string
}

// Solution is the resolved transitive closure: name -> chosen release.
type Solution map[string]catalog.Release

type chosenEntry struct {
	release catalog.Release
	pinned  bool // true if this entry came from Params.Active
}

type workItem struct {
	depender string
	dep      semver.Dep
}

// Resolve runs Minimum Version Selection over p and returns the resolved
// release set, any non-fatal warnings, and a *deferr.Error classified by
// failure kind.
//
// Resolution is two-phase. Phase one computes the full prod-dep closure
// of the roots. Phase two layers the roots' dev-deps on top: a dev-dep
// on a package the prod closure already requires never raises (or
// lowers) the prod choice -- the prod minimum wins and a warning is
// recorded when the dev minimum was higher -- while a dev-dep on a new
// package is selected normally and its own prod-deps expanded, since
// building the dev dependency still needs them. Dev-deps of anything
// other than a root are never consulted.
func Resolve(p Params) (Solution, []Warning, error) {
	r := &run{
		params: p,
		chosen: make(map[string]*chosenEntry),
	}

	// Active releases are pinned choices, but their prod-deps still
	// contribute minimums like anyone else's.
	for name, rel := range p.Active {
		r.chosen[name] = &chosenEntry{release: rel, pinned: true}
		for _, pd := range rel.ProdDeps {
			r.worklist = append(r.worklist, workItem{depender: name, dep: pd})
		}
	}

	for _, root := range p.Roots {
		for _, pd := range root.ProdDeps {
			r.worklist = append(r.worklist, workItem{depender: root.Name, dep: pd})
		}
	}
	if err := r.drain(); err != nil {
		return nil, nil, err
	}

	warnings, err := r.applyDevDeps()
	if err != nil {
		return nil, nil, err
	}
	if err := r.drain(); err != nil {
		return nil, nil, err
	}

	if err := r.checkCycles(); err != nil {
		return nil, nil, err
	}

	sol := make(Solution, len(r.chosen))
	for name, ce := range r.chosen {
		sol[name] = ce.release
	}
	return sol, warnings, nil
}

type run struct {
	params   Params
	chosen   map[string]*chosenEntry
	worklist []workItem
}

func (r *run) trace(format string, args ...interface{}) {
	if r.params.Trace && r.params.TraceLogger != nil {
		r.params.TraceLogger.Printf(format, args...)
	}
}

// applyDevDeps reconciles each root's dev-deps against the completed
// prod closure. A dev-dep naming an already-chosen package must be
// major-compatible with the choice; a higher dev minimum is discarded
// with a warning rather than upgrading anything. Dev-deps on packages
// the closure does not contain are pushed for normal selection.
func (r *run) applyDevDeps() ([]Warning, error) {
	var warnings []Warning

	for _, root := range r.params.Roots {
		for _, dd := range root.DevDeps {
			ce, ok := r.chosen[dd.Name]
			if !ok {
				r.worklist = append(r.worklist, workItem{depender: root.Name, dep: dd})
				continue
			}
			if dd.Version.Zero() {
				continue
			}
			if !semver.Compatible(ce.release.Version, dd.Version) {
				return nil, deferr.New(deferr.DepConflict,
					"%s: dev-dep %s conflicts with selected %s", root.Name, dd, ce.release.ID())
			}
			if semver.Less(ce.release.Version, dd.Version) {
				warnings = append(warnings, Warning{Message: fmt.Sprintf(
					"%s: dev-dep %s discarded: %s is already required at %s (prod wins)",
					root.Name, dd, dd.Name, ce.release.Version)})
			}
		}
	}

	return warnings, nil
}

func (r *run) drain() error {
	for len(r.worklist) > 0 {
		item := r.worklist[0]
		r.worklist = r.worklist[1:]

		if err := r.apply(item); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) apply(item workItem) error {
	dep := item.dep
	existing, ok := r.chosen[dep.Name]

	if ok {
		return r.reconcile(existing, item)
	}

	rel, err := r.candidate(dep)
	if err != nil {
		return err
	}
	ce := &chosenEntry{release: rel}
	r.chosen[dep.Name] = ce
	r.trace("selected %s for %s (wanted by %s)", rel.ID(), dep, item.depender)

	for _, pd := range rel.ProdDeps {
		r.worklist = append(r.worklist, workItem{depender: rel.Name, dep: pd})
	}
	return nil
}

// reconcile handles a dep whose target is already chosen: either the
// existing choice already satisfies the new minimum, or it must be
// upgraded via the candidate rule, or the two are incompatible.
func (r *run) reconcile(existing *chosenEntry, item workItem) error {
	dep := item.dep
	if dep.Version.Zero() {
		return nil // unconstrained; existing choice always satisfies it
	}

	if !semver.Compatible(existing.release.Version, dep.Version) {
		return deferr.New(deferr.DepConflict,
			"%s wants %s, but %s is already selected at an incompatible version (wanted by %s)",
			item.depender, dep, existing.release.ID(), item.depender)
	}

	if existing.pinned {
		// Active packages are fixed; compatibility has already been
		// confirmed above, so there is nothing further to do.
		return nil
	}

	if !semver.Less(existing.release.Version, dep.Version) {
		return nil // existing choice already meets or exceeds the new minimum
	}

	upgraded, err := r.candidate(dep)
	if err != nil {
		return err
	}
	// The candidate rule already picks the smallest version satisfying
	// both the existing minimum (since dep.Version > existing, and the
	// catalog is searched from dep.Version upward) and the new one, but
	// guard explicitly in case the new minimum is itself satisfied by an
	// even older release than the one previously chosen would suggest.
	if semver.Less(upgraded.Version, existing.release.Version) {
		upgraded = existing.release
	}
	existing.release = upgraded
	r.trace("upgraded %s to %s (wanted by %s)", dep.Name, upgraded.ID(), item.depender)

	for _, pd := range upgraded.ProdDeps {
		r.worklist = append(r.worklist, workItem{depender: upgraded.Name, dep: pd})
	}
	return nil
}

// candidate picks the smallest version satisfying compatible?(V,
// dep.Version) and V >= dep.Version, or the exact branch release.
func (r *run) candidate(dep semver.Dep) (catalog.Release, error) {
	releases, err := r.params.Catalog.Releases(dep.Name)
	if err != nil {
		return catalog.Release{}, deferr.Wrap(deferr.DepError, err, "looking up %s in catalog", dep.Name)
	}
	if len(releases) == 0 {
		return catalog.Release{}, deferr.New(deferr.DepError, "no catalog entry for package %q", dep.Name)
	}

	if dep.Version.Zero() {
		return releases[0], nil // smallest known release satisfies "any"
	}

	for _, rel := range releases {
		if !semver.Compatible(rel.Version, dep.Version) {
			continue
		}
		if rel.Version.IsBranch() {
			return rel, nil // exact branch match (Compatible already checked identifier equality)
		}
		if !semver.Less(rel.Version, dep.Version) {
			return rel, nil
		}
	}

	return catalog.Release{}, deferr.New(deferr.DepError, "no release of %q satisfies minimum %s", dep.Name, dep.Version)
}

// checkCycles runs a single DFS coloring pass over the prod-dep graph
// induced by the final chosen set. Cycles are defined over package
// names; dev-dep edges never appear here because they were never
// recorded against a chosen release's ProdDeps.
func (r *run) checkCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(r.chosen))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		stack = append(stack, name)

		ce, ok := r.chosen[name]
		if ok {
			for _, pd := range ce.release.ProdDeps {
				if _, ok := r.chosen[pd.Name]; !ok {
					continue
				}
				switch color[pd.Name] {
				case white:
					if err := visit(pd.Name); err != nil {
						return err
					}
				case gray:
					return deferr.New(deferr.DepError, "dependency cycle detected: %s", cyclePath(stack, pd.Name))
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for name := range r.chosen {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath(stack []string, closingName string) string {
	start := 0
	for i, n := range stack {
		if n == closingName {
			start = i
			break
		}
	}
	path := append([]string{}, stack[start:]...)
	path = append(path, closingName)
	out := path[0]
	for _, n := range path[1:] {
		out += " -> " + n
	}
	return out
}
