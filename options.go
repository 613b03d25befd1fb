package drawpipe

import (
	"fmt"
	"sort"
)

// clone creates a deep copy of the config.
func (c Config) clone() Config {
	newCfg := c
	if c.Formats != nil {
		newCfg.Formats = make([]string, len(c.Formats))
		copy(newCfg.Formats, c.Formats)
	}
	if c.Pages != nil {
		newCfg.Pages = make([]int, len(c.Pages))
		copy(newCfg.Pages, c.Pages)
	}
	return newCfg
}

// resolvePages turns the 1-indexed selection into sorted, distinct 0-based
// page indices. An empty selection means every page.
func resolvePages(selected []int, pageCount int) ([]int, error) {
	if len(selected) == 0 {
		pageIndices := make([]int, pageCount)
		for i := 0; i < pageCount; i++ {
			pageIndices[i] = i
		}
		return pageIndices, nil
	}

	seen := make(map[int]bool)
	var pageIndices []int
	for _, p := range selected {
		if p < 1 || p > pageCount {
			return nil, fmt.Errorf("page %d out of range (1-%d)", p, pageCount)
		}
		zeroIndexed := p - 1
		if !seen[zeroIndexed] {
			seen[zeroIndexed] = true
			pageIndices = append(pageIndices, zeroIndexed)
		}
	}

	sort.Ints(pageIndices)
	return pageIndices, nil
}
