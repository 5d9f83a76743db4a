package domain

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "receiptdex:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the reference deployment settings:
// 768-dimension embeddings compared by Euclidean (L2) distance.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-004",
		Dimensions:     768,
		DistanceMetric: "l2",
		Algorithm:      "hnsw",
	}
}
