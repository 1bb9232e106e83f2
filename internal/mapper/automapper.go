package mapper

import (
	"fmt"
	"sort"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

// DefaultConfidenceThreshold is the minimum confidence at which a
// header/field pairing is accepted without manual resolution.
const DefaultConfidenceThreshold = 0.5

// AutoMapper assigns detected headers to candidate source fields by
// constrained greedy matching.
type AutoMapper struct {
	scorer *Scorer
}

// NewAutoMapper creates a mapper. A nil scorer selects the default weights.
func NewAutoMapper(scorer *Scorer) *AutoMapper {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &AutoMapper{scorer: scorer}
}

type scoredPair struct {
	header int
	field  int
	score  float64
}

// Map pairs each header with the best still-unused candidate field whose
// similarity clears the threshold (inclusive). The walk is greedy over all
// pairs by descending score, ties broken by header column, then by field
// position in the supplied list, so identical inputs always produce an
// identical result. Headers left over go to Unmapped; an empty field list is
// a valid call where every header ends up unmapped.
func (m *AutoMapper) Map(headers []model.HeaderCandidate, fields []model.FieldName, threshold float64) (model.MappingResult, error) {
	if threshold < 0 || threshold > 1 {
		return model.MappingResult{}, fmt.Errorf("threshold %.4f: %w", threshold, ErrInvalidThreshold)
	}

	result := model.MappingResult{
		Headers:  append([]model.HeaderCandidate(nil), headers...),
		Mappings: []model.MappingEntry{},
		Unmapped: []model.HeaderCandidate{},
	}

	// Each field may be consumed by at most one header. Repeated field names
	// in the input are tolerated, but only their first occurrence can match.
	matchable := make([]bool, len(fields))
	normFields := make([]string, len(fields))
	seen := make(map[model.FieldName]struct{}, len(fields))
	for i, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		matchable[i] = true
		normFields[i] = Normalize(f)
	}

	pairs := make([]scoredPair, 0, len(headers)*len(fields))
	for hi, h := range headers {
		for fi := range fields {
			if !matchable[fi] {
				continue
			}
			pairs = append(pairs, scoredPair{
				header: hi,
				field:  fi,
				score:  m.scorer.Score(h.NormalizedLabel, normFields[fi]),
			})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if headers[pairs[i].header].Column != headers[pairs[j].header].Column {
			return headers[pairs[i].header].Column < headers[pairs[j].header].Column
		}
		return pairs[i].field < pairs[j].field
	})

	assignedHeader := make([]bool, len(headers))
	assignedField := make([]bool, len(fields))
	accepted := make([]*model.MappingEntry, len(headers))

	for _, p := range pairs {
		if assignedHeader[p.header] || assignedField[p.field] {
			continue
		}
		if p.score < threshold {
			// Pairs are sorted by score, nothing after this can qualify.
			break
		}
		assignedHeader[p.header] = true
		assignedField[p.field] = true
		accepted[p.header] = &model.MappingEntry{
			Header:     headers[p.header],
			Field:      fields[p.field],
			Confidence: p.score,
		}
	}

	for hi, h := range headers {
		if entry := accepted[hi]; entry != nil {
			result.Mappings = append(result.Mappings, *entry)
		} else {
			result.Unmapped = append(result.Unmapped, h)
		}
	}

	return result, nil
}
