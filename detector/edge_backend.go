// edge_backend.go implements the registry of edge detector backends.

package detector

import (
	"fmt"
	"sort"

	"github.com/xaionaro-go/avscene/boundary"
	"github.com/xaionaro-go/avscene/types"
)

var edgeBackends = map[EdgeBackend]func(EdgeConfig) *EdgeDetector{
	EdgeBackendBild: NewEdgeDetector,
}

// EdgeBackends lists the edge backends compiled into the binary.
func EdgeBackends() []EdgeBackend {
	result := make([]EdgeBackend, 0, len(edgeBackends))
	for backend := range edgeBackends {
		result = append(result, backend)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// NewEdgeDetectorWithBackend returns an edge detector using the given
// backend; an empty backend means bild. The OpenCV backend is available
// only in binaries built with tag "with_cv".
func NewEdgeDetectorWithBackend(
	backend EdgeBackend,
	cfg EdgeConfig,
) (boundary.Detector, error) {
	if backend == "" {
		backend = EdgeBackendBild
	}
	newDetector, ok := edgeBackends[backend]
	if !ok {
		return nil, types.ErrInvalidInput{
			Reason: fmt.Sprintf("edge backend '%s' is not available (available: %v)", backend, EdgeBackends()),
		}
	}
	return newDetector(cfg), nil
}
