package components

import "fmt"

// ClusteringError indicates a cluster join did not converge within the retry
// budget.
type ClusteringError struct {
	Target     string
	Attempts   int
	LastStatus string
}

// Error implements the error interface.
func (e *ClusteringError) Error() string {
	return fmt.Sprintf("node did not join cluster within %d attempts; attempted to join to %s; last cluster status output was: %s",
		e.Attempts, e.Target, e.LastStatus)
}
