// Package metrics provides the interface for self-contained, reusable
// derived metrics.
//
// Each metric is a computation unit that declares a typed input, computes
// a typed output, and carries metadata for documentation and the metric
// catalog command.
package metrics

import "sort"

// Metric is the core interface that all derived metrics implement.
type Metric[In, Out any] interface {
	// Name returns the machine-readable identifier (snake_case, unique).
	Name() string

	// DisplayName returns a human-readable name for reports.
	DisplayName() string

	// Description documents what the metric measures and how to read it.
	Description() string

	// Type returns the metric category (e.g. "aggregate", "factor", "distribution").
	Type() string

	// Compute calculates the metric value from input data.
	Compute(input In) Out
}

// MetricMeta holds the common metadata for a metric. Embed it in metric
// implementations to satisfy the metadata methods.
type MetricMeta struct {
	MetricName        string
	MetricDisplayName string
	MetricDescription string
	MetricType        string
}

// Name returns the machine-readable identifier.
func (m MetricMeta) Name() string { return m.MetricName }

// DisplayName returns a human-readable name for reports.
func (m MetricMeta) DisplayName() string { return m.MetricDisplayName }

// Description documents what the metric measures.
func (m MetricMeta) Description() string { return m.MetricDescription }

// Type returns the metric category.
func (m MetricMeta) Type() string { return m.MetricType }

// Registry holds the metadata of a set of metrics for catalog listings.
type Registry struct {
	metas map[string]MetricMeta
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{metas: make(map[string]MetricMeta)}
}

// Register adds a metric's metadata to the registry.
func (r *Registry) Register(meta MetricMeta) {
	r.metas[meta.MetricName] = meta
}

// Get retrieves metric metadata by name.
func (r *Registry) Get(name string) (MetricMeta, bool) {
	m, ok := r.metas[name]

	return m, ok
}

// All returns every registered metric's metadata sorted by name.
func (r *Registry) All() []MetricMeta {
	metas := make([]MetricMeta, 0, len(r.metas))

	for _, m := range r.metas {
		metas = append(metas, m)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].MetricName < metas[j].MetricName
	})

	return metas
}
