// internal/domain/activity/pair.go
package activity

import "fmt"

// Pair is one region/bracket combination that is checked independently.
type Pair struct {
	Region  string // locale-style region code, e.g. en-gb
	Bracket string // game mode, e.g. shuffle, 2v2, 3v3, rbg
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Region, p.Bracket)
}

// Pairs builds the cross product of regions and brackets, region-major.
func Pairs(regions, brackets []string) []Pair {
	pairs := make([]Pair, 0, len(regions)*len(brackets))
	for _, region := range regions {
		for _, bracket := range brackets {
			pairs = append(pairs, Pair{Region: region, Bracket: bracket})
		}
	}
	return pairs
}
