package results

import (
	"fmt"
	"sort"
	"strings"
)

// Markdown renders a cross-system comparison: one row per query with the
// averaged seconds for each system, then total runtime and cost rows.
func Markdown(systems []*System) string {
	var b strings.Builder
	b.WriteString("# Benchmark comparison\n\n")
	if len(systems) == 0 {
		b.WriteString("No result documents found.\n")
		return b.String()
	}

	queryNums := unionQueries(systems)

	b.WriteString("| Query |")
	for _, s := range systems {
		fmt.Fprintf(&b, " %s (s) |", s.Name)
	}
	b.WriteString("\n|---|")
	for range systems {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for _, num := range queryNums {
		fmt.Fprintf(&b, "| q%02d |", num)
		for _, s := range systems {
			if avg, ok := s.Averages[num]; ok {
				fmt.Fprintf(&b, " %.3f |", avg)
			} else {
				b.WriteString(" – |")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("| **Total** |")
	for _, s := range systems {
		fmt.Fprintf(&b, " **%.3f** |", s.TotalSeconds())
	}
	b.WriteString("\n")

	if anyPriced(systems) {
		b.WriteString("| **Cost (USD)** |")
		for _, s := range systems {
			if s.USDPerHour > 0 {
				fmt.Fprintf(&b, " **%.4f** |", s.Cost(s.TotalSeconds()))
			} else {
				b.WriteString(" – |")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, s := range systems {
		fmt.Fprintf(&b, "- %s: %d queries", s.Name, len(s.Averages))
		if s.Iterations > 0 {
			fmt.Fprintf(&b, ", %d iterations each", s.Iterations)
		}
		if s.USDPerHour > 0 {
			fmt.Fprintf(&b, ", %.4f USD/h", s.USDPerHour)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func unionQueries(systems []*System) []int {
	seen := map[int]bool{}
	for _, s := range systems {
		for num := range s.Averages {
			seen[num] = true
		}
	}
	nums := make([]int, 0, len(seen))
	for num := range seen {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

func anyPriced(systems []*System) bool {
	for _, s := range systems {
		if s.USDPerHour > 0 {
			return true
		}
	}
	return false
}
