package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

const (
	// AnalysisTable holds book analyses keyed by ISBN.
	AnalysisTable = "analysis_cache"
	// EmbeddingTable holds embeddings keyed by the SHA-256 of the embedded text.
	EmbeddingTable = "embedding_cache"
)

// AnalysisCacheSchema defines the schema for the book analysis cache
const AnalysisCacheSchema = `
CREATE TABLE IF NOT EXISTS analysis_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_analysis_cached_at ON analysis_cache(cached_at);
`

// EmbeddingCacheSchema defines the schema for the content-addressed embedding cache
const EmbeddingCacheSchema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_embedding_cached_at ON embedding_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	AnalysisCacheSchema,
	EmbeddingCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	AnalysisTable:  true,
	EmbeddingTable: true,
}

// SourceTables maps the user-facing cache source names to their tables.
var SourceTables = map[string]string{
	"analysis":  AnalysisTable,
	"embedding": EmbeddingTable,
}
