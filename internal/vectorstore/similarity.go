package vectorstore

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/opennote/semindex/internal/model"
)

// Similar returns the top-k rows by cosine similarity >= minSimilarity,
// excluding metadata.skipped rows, optionally restricted to an exact-path
// scope (spec.md §4.4). It dispatches to the native pgvector path or the
// legacy in-memory fallback based on SchemaDimension.
func (s *Store) Similar(ctx context.Context, scope Scope, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]Result, error) {
	dim, err := s.SchemaDimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim != nil {
		return s.similarNative(ctx, scope, vector, k, minSimilarity, scopeFiles)
	}
	return s.similarFallback(ctx, scope, vector, k, minSimilarity, scopeFiles)
}

// similarNative pushes ordering and the k-limit into the database using the
// cosine-distance operator, fetching ~2*k candidates before the similarity
// threshold prunes them down to k, per spec.md §4.4.
func (s *Store) similarNative(ctx context.Context, scope Scope, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]Result, error) {
	literal := vectorLiteral(vector)
	var sb strings.Builder
	args := []interface{}{scope.WorkspaceID, scope.Model}
	sb.WriteString(`SELECT path, content, 1 - (embedding <=> '`)
	sb.WriteString(literal)
	sb.WriteString(`') AS similarity, metadata
		FROM chunks
		WHERE workspace_id = $1 AND model = $2 AND NOT COALESCE((metadata->>'skipped')::boolean, false)`)
	if len(scopeFiles) > 0 {
		placeholders := make([]string, len(scopeFiles))
		for i, f := range scopeFiles {
			args = append(args, f)
			placeholders[i] = "$" + strconv.Itoa(len(args))
		}
		sb.WriteString(" AND path IN (" + strings.Join(placeholders, ",") + ")")
	}
	sb.WriteString(" ORDER BY embedding <=> '")
	sb.WriteString(literal)
	sb.WriteString("' ASC LIMIT ")
	sb.WriteString(strconv.Itoa(k * 2))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Result
	for rows.Next() {
		var r Result
		var metaBytes []byte
		if err := rows.Scan(&r.Path, &r.Content, &r.Similarity, &metaBytes); err != nil {
			return nil, err
		}
		var meta model.ChunkMetadata
		if err := json.Unmarshal(metaBytes, &meta); err == nil {
			r.StartLine, r.EndLine = meta.StartLine, meta.EndLine
		}
		if r.Similarity >= minSimilarity {
			candidates = append(candidates, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// similarFallback fetches all candidate rows matching the non-vector
// predicates and computes cosine similarity in memory, for the legacy
// generic JSON-array column type (spec.md §4.4, explicitly supported).
// Grounded on the teacher's internal/service/ai_service.go cosineSimilarity
// in-memory fallback.
func (s *Store) similarFallback(ctx context.Context, scope Scope, vector []float32, k int, minSimilarity float64, scopeFiles []string) ([]Result, error) {
	var sb strings.Builder
	args := []interface{}{scope.WorkspaceID, scope.Model}
	sb.WriteString(`SELECT path, content, embedding, metadata FROM chunks WHERE workspace_id = $1 AND model = $2`)
	if len(scopeFiles) > 0 {
		placeholders := make([]string, len(scopeFiles))
		for i, f := range scopeFiles {
			args = append(args, f)
			placeholders[i] = "$" + strconv.Itoa(len(args))
		}
		sb.WriteString(" AND path IN (" + strings.Join(placeholders, ",") + ")")
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Result
	for rows.Next() {
		var path, content string
		var embJSON, metaBytes []byte
		if err := rows.Scan(&path, &content, &embJSON, &metaBytes); err != nil {
			return nil, err
		}
		var meta model.ChunkMetadata
		_ = json.Unmarshal(metaBytes, &meta)
		if meta.Skipped {
			continue
		}
		var emb []float32
		if err := json.Unmarshal(embJSON, &emb); err != nil {
			continue
		}
		sim := cosineSimilarity(vector, emb)
		if sim >= minSimilarity {
			candidates = append(candidates, Result{
				Path: path, Content: content, Similarity: sim,
				StartLine: meta.StartLine, EndLine: meta.EndLine,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// vectorLiteral formats a query vector as a pgvector literal ('[a,b,c]').
// Built entirely from float32 values we control, never from unsanitized
// user input, so embedding it directly in the ORDER BY clause is safe.
func vectorLiteral(v []float32) string {
	vec := pgvector.NewVector(v)
	return vec.String()
}
