package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteResult aggregates a directory of scenario runs.
type SuiteResult struct {
	Total   int
	Passed  int
	Failed  int
	Results map[string]*Result
}

// RunDir loads and runs every *.yaml scenario under dir, in name order.
// A scenario that fails to load or run counts as failed with its error
// recorded in a synthetic result.
func RunDir(ctx context.Context, dir string) (*SuiteResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".yaml" || filepath.Ext(entry.Name()) == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	suite := &SuiteResult{Results: make(map[string]*Result)}
	for _, path := range paths {
		suite.Total++
		name := filepath.Base(path)

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.Failed++
			suite.Results[name] = &Result{Errors: []string{err.Error()}}
			continue
		}

		result, err := Run(ctx, scenario)
		if err != nil {
			suite.Failed++
			suite.Results[scenario.Name] = &Result{Errors: []string{err.Error()}}
			continue
		}

		suite.Results[scenario.Name] = result
		if result.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}
	return suite, nil
}
