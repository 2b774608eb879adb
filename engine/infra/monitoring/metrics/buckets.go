package metrics

// ComposeDurationBuckets defines latency buckets in seconds for composition and discovery.
var ComposeDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
