// Package testutil holds shared test helpers: golden-file comparison of
// recorded backend calls, a deterministic clock and fixture rows.
package testutil

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tabula/datasource"
	"github.com/roach88/tabula/datasource/recorder"
)

// AssertGolden compares data against testdata/golden/{name}.golden in the
// calling package.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// AssertCallsGolden renders calls one per line and compares them against
// a golden file.
func AssertCallsGolden(t *testing.T, name string, calls []datasource.Call) {
	t.Helper()
	AssertGolden(t, name, []byte(strings.Join(recorder.Lines(calls), "\n")+"\n"))
}
