package receipt

import (
	"github.com/kailas-cloud/receiptdex/internal/db"
	"github.com/kailas-cloud/receiptdex/internal/domain"
)

const (
	// scoreField is the KNN distance alias returned by FT.SEARCH.
	scoreField = "__embedding_score"

	fieldStoreName       = "store_name"
	fieldTransactionTime = "transaction_time"
	fieldTotalAmount     = "total_amount"
	fieldEmbedding       = "embedding"
)

// HNSWConfig carries the tunable HNSW build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex creates the FT index definition for receipt records.
// Numeric fields back the metadata range search; the vector field backs KNN.
func buildIndex(vectorDim int, metric db.DistanceMetric, hnsw HNSWConfig) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:        indexName(),
		StorageType: db.StorageJSON,
		Prefixes:    []string{keyPrefix()},
		Fields: []db.IndexField{
			{Name: "$.store_name", Alias: fieldStoreName, Type: db.IndexFieldTag},
			{Name: "$.transaction_time", Alias: fieldTransactionTime, Type: db.IndexFieldNumeric},
			{Name: "$.total_amount", Alias: fieldTotalAmount, Type: db.IndexFieldNumeric},
			{
				Name:              "$.embedding",
				Alias:             fieldEmbedding,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         vectorDim,
				VectorDistance:    metric,
				VectorM:           hnsw.M,
				VectorEFConstruct: hnsw.EFConstruct,
			},
		},
	}
}

func keyPrefix() string {
	return domain.KeyPrefix + "receipts:"
}

func indexName() string {
	return domain.KeyPrefix + "receipts:idx"
}

func receiptKey(id string) string {
	return keyPrefix() + id
}
