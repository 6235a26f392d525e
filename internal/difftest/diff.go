// Package difftest provides a pretty string diff for test failure output.
package difftest

import "github.com/sergi/go-diff/diffmatchpatch"

// Diff compares two strings and returns a human-readable diff plus
// whether they were equal, for use in test failure messages that compare
// generated file contents (e.g. registry entries) across runs.
func Diff(a, b string) (diff string, equal bool) {
	dmp := diffmatchpatch.New()
	d := dmp.DiffMain(a, b, false)
	return dmp.DiffPrettyText(d), a == b
}
