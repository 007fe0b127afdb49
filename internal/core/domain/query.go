package domain

// Embedding field names in the search index
const (
	FieldTextEmbedding  = "text_embedding"
	FieldImageEmbedding = "image_embedding"
)

// FieldBoost pairs an embedding field with its ranking weight
type FieldBoost struct {
	Field string
	Boost float64
}

// Boosts returns the primary and secondary field/boost assignment for the
// modality. A text query should match records both by literal description
// similarity and by what the photo of that description would look like
// (text and image embeddings share one vector space); the boost keeps the
// leading modality dominant while still surfacing cross-modal matches.
func (m QueryModality) Boosts() (primary, secondary FieldBoost) {
	if m == QueryModalityImage {
		return FieldBoost{Field: FieldImageEmbedding, Boost: 2.0},
			FieldBoost{Field: FieldTextEmbedding, Boost: 0.5}
	}
	return FieldBoost{Field: FieldTextEmbedding, Boost: 1.5},
		FieldBoost{Field: FieldImageEmbedding, Boost: 1.0}
}

// TermFilter is an exact-match filter applied before similarity ranking
type TermFilter struct {
	Field string
	Value string
}

// KNNClause is one approximate nearest-neighbor clause of a vector query
type KNNClause struct {
	Field         string
	QueryVector   []float32
	K             int
	NumCandidates int
	Boost         float64
	Filter        *TermFilter
}

// VectorQuery is a multi-field vector search request: exactly two kNN
// clauses sharing one query vector, each with its own boost.
type VectorQuery struct {
	Size int
	KNN  []KNNClause
}

// BuildVectorQuery constructs the search request for a query vector and
// modality. Both clauses carry the same vector and, when sourceFilter is
// set, an identical term filter - filtering must narrow the candidate pool
// on both fields without biasing the field weighting. numCandidates is
// raised to k when smaller.
func BuildVectorQuery(vec []float32, modality QueryModality, k, numCandidates int, sourceFilter Source) VectorQuery {
	if numCandidates < k {
		numCandidates = k
	}

	var filter *TermFilter
	if sourceFilter != "" {
		filter = &TermFilter{Field: "source", Value: string(sourceFilter)}
	}

	primary, secondary := modality.Boosts()
	clause := func(fb FieldBoost) KNNClause {
		return KNNClause{
			Field:         fb.Field,
			QueryVector:   vec,
			K:             k,
			NumCandidates: numCandidates,
			Boost:         fb.Boost,
			Filter:        filter,
		}
	}

	return VectorQuery{
		Size: k,
		KNN:  []KNNClause{clause(primary), clause(secondary)},
	}
}
