// result.go defines the Result of a detection run and merge policies.

package boundary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xaionaro-go/avscene/types"
)

// Result maps detector names to the signals they produced for one source.
type Result struct {
	SourcePath string                  `json:"source_path,omitempty"`
	Signals    map[DetectorName]Signal `json:"signals"`
}

func NewResult(sourcePath string) *Result {
	return &Result{
		SourcePath: sourcePath,
		Signals:    map[DetectorName]Signal{},
	}
}

// Names returns the detector names present in the result, sorted.
func (r *Result) Names() []DetectorName {
	names := make([]DetectorName, 0, len(r.Signals))
	for name := range r.Signals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (r *Result) Get(name DetectorName) (Signal, bool) {
	s, ok := r.Signals[name]
	return s, ok
}

func (r *Result) String() string {
	var parts []string
	for _, name := range r.Names() {
		parts = append(parts, fmt.Sprintf("%s:%v", name, r.Signals[name].Indices()))
	}
	return fmt.Sprintf("Result(%s; %s)", r.SourcePath, strings.Join(parts, "; "))
}

// MergePolicy is how signals of several detectors are combined into one.
//
// Merging is never done implicitly: it is up to the caller to decide if
// and how to merge.
type MergePolicy int

const (
	MergePolicyUndefined = MergePolicy(iota)
	MergePolicyUnion
	MergePolicyIntersection
	MergePolicyMajority
)

func (p MergePolicy) String() string {
	switch p {
	case MergePolicyUndefined:
		return "undefined"
	case MergePolicyUnion:
		return "union"
	case MergePolicyIntersection:
		return "intersection"
	case MergePolicyMajority:
		return "majority"
	default:
		return fmt.Sprintf("unknown_merge_policy_%d", int(p))
	}
}

func ParseMergePolicy(s string) (MergePolicy, error) {
	for p := MergePolicyUnion; p <= MergePolicyMajority; p++ {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	return MergePolicyUndefined, fmt.Errorf("unknown merge policy '%s'", s)
}

// Merge combines all the signals of the result according to the policy.
// All the signals must have the same length.
func (r *Result) Merge(policy MergePolicy) (Signal, error) {
	names := r.Names()
	if len(names) == 0 {
		return nil, types.ErrInvalidInput{Reason: "no signals to merge"}
	}
	length := len(r.Signals[names[0]])
	for _, name := range names[1:] {
		if len(r.Signals[name]) != length {
			return nil, types.ErrInvalidInput{Reason: fmt.Sprintf("signal '%s' has length %d, while '%s' has %d", name, len(r.Signals[name]), names[0], length)}
		}
	}

	votes := make([]int, length)
	for _, name := range names {
		for idx, isBoundary := range r.Signals[name] {
			if isBoundary {
				votes[idx]++
			}
		}
	}

	var minVotes int
	switch policy {
	case MergePolicyUnion:
		minVotes = 1
	case MergePolicyIntersection:
		minVotes = len(names)
	case MergePolicyMajority:
		minVotes = len(names)/2 + 1
	default:
		return nil, fmt.Errorf("unsupported merge policy: %s", policy)
	}

	result := make(Signal, length)
	for idx, v := range votes {
		result[idx] = v >= minVotes
	}
	return result, nil
}
