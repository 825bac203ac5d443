package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"
)

// redisStore keeps embeddings in a Redis vector set (VADD/VSIM), with chunk
// text and metadata attached as element attributes.
type redisStore struct {
	client    *redis.Client
	setKey    string
	dimension int
	maxTopK   int
}

const (
	redisDefaultMaxTopK     = 1000
	redisTextAttrKey        = "text"
	redisMetadataAttrKey    = "_metadata"
	redisMetadataPrefix     = "meta_"
	redisDefaultVectorKey   = "chunkforge_vectors"
	redisFilterEqualsFormat = `%s == "%s"`
)

func newRedisStore(ctx context.Context, cfg *Config) (Store, error) {
	opt, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid dsn: %w", err)
	}
	opt.Protocol = 3
	opt.UnstableResp3 = true
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return &redisStore{
		client:    client,
		setKey:    determineRedisKey(cfg),
		dimension: cfg.Dimension,
		maxTopK:   chooseRedisMaxTopK(cfg.MaxTopK),
	}, nil
}

func determineRedisKey(cfg *Config) string {
	if key := sanitizeRedisKey(cfg.Collection); key != "" {
		return key
	}
	if key := sanitizeRedisKey(cfg.Table); key != "" {
		return key
	}
	return redisDefaultVectorKey
}

func sanitizeRedisKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
		case r == ':', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_:-")
}

func chooseRedisMaxTopK(maxTopK int) int {
	if maxTopK <= 0 {
		return redisDefaultMaxTopK
	}
	return maxTopK
}

func (r *redisStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, record := range records {
		if len(record.Embedding) != r.dimension {
			return fmt.Errorf("redis: record %q dimension mismatch (got %d want %d)",
				record.ID, len(record.Embedding), r.dimension)
		}
		vector := &redis.VectorValues{Val: toFloat64(record.Embedding)}
		pipe.VAdd(ctx, r.setKey, record.ID, vector)
		pipe.VSetAttr(ctx, r.setKey, record.ID, buildRedisAttributes(record))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert pipeline: %w", err)
	}
	return nil
}

func (r *redisStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != r.dimension {
		return nil, fmt.Errorf("redis: query dimension mismatch (got %d want %d)", len(query), r.dimension)
	}
	count := r.searchCount(opts.TopK)
	args := buildVSimArgs(count, opts.Filters)
	results, err := r.client.VSimWithArgsWithScores(
		ctx,
		r.setKey,
		&redis.VectorValues{Val: toFloat64(query)},
		args,
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: similarity search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	payloads, err := r.loadAttributePayloads(ctx, results)
	if err != nil {
		return nil, err
	}
	return buildMatchesFromPayloads(results, payloads, opts.MinScore)
}

func (r *redisStore) Delete(ctx context.Context, filter Filter) error {
	targets := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			targets[trimmed] = struct{}{}
		}
	}
	if len(filter.Metadata) > 0 {
		ids, err := r.lookupIDsByMetadata(ctx, filter.Metadata)
		if err != nil {
			return err
		}
		for _, id := range ids {
			targets[id] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for id := range targets {
		pipe.VRem(ctx, r.setKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete vectors: %w", err)
	}
	return nil
}

// lookupIDsByMetadata resolves member names via a filtered full-set scan; the
// vector set has no secondary index to query by attribute alone.
func (r *redisStore) lookupIDsByMetadata(ctx context.Context, metadata map[string]string) ([]string, error) {
	filter := buildRedisFilter(metadata)
	if filter == "" {
		return nil, nil
	}
	total, err := r.client.VCard(ctx, r.setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: vcard: %w", err)
	}
	if total == 0 {
		return nil, nil
	}
	args := &redis.VSimArgs{Count: total, Filter: filter}
	zero := make([]float64, r.dimension)
	names, err := r.client.VSimWithArgs(ctx, r.setKey, &redis.VectorValues{Val: zero}, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: metadata filter query: %w", err)
	}
	return names, nil
}

func (r *redisStore) Close(context.Context) error {
	return r.client.Close()
}

func (r *redisStore) searchCount(topK int) int {
	count := topK
	if count <= 0 {
		count = defaultTopK
	}
	if r.maxTopK > 0 && count > r.maxTopK {
		count = r.maxTopK
	}
	return count
}

func (r *redisStore) loadAttributePayloads(ctx context.Context, results []redis.VectorScore) ([]string, error) {
	pipe := r.client.Pipeline()
	attrCmds := make([]*redis.StringCmd, len(results))
	for i := range results {
		attrCmds[i] = pipe.VGetAttr(ctx, r.setKey, results[i].Name)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: fetch attributes: %w", err)
	}
	payloads := make([]string, len(results))
	for i := range attrCmds {
		raw, err := attrCmds[i].Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis: read attributes for %q: %w", results[i].Name, err)
		}
		payloads[i] = raw
	}
	return payloads, nil
}

func buildVSimArgs(count int, filters map[string]string) *redis.VSimArgs {
	args := &redis.VSimArgs{Count: int64(count)}
	if filter := buildRedisFilter(filters); filter != "" {
		args.Filter = filter
	}
	return args
}

func buildMatchesFromPayloads(results []redis.VectorScore, payloads []string, minScore float64) ([]Match, error) {
	matches := make([]Match, 0, len(results))
	for i, item := range results {
		if minScore > 0 && item.Score < minScore {
			continue
		}
		if i >= len(payloads) || payloads[i] == "" {
			continue
		}
		text, metadata, err := parseAttributeJSON(payloads[i])
		if err != nil {
			return nil, fmt.Errorf("redis: parse attributes for %q: %w", item.Name, err)
		}
		matches = append(matches, Match{
			ID:       item.Name,
			Score:    item.Score,
			Text:     text,
			Metadata: metadata,
		})
	}
	return matches, nil
}

// buildRedisAttributes flattens metadata twice: once as the canonical JSON
// blob and once as meta_* scalar attributes so VSIM FILTER expressions can
// reference them.
func buildRedisAttributes(record Record) map[string]any {
	attrs := make(map[string]any, len(record.Metadata)+2)
	attrs[redisTextAttrKey] = record.Text
	meta := cloneMap(record.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	attrs[redisMetadataAttrKey] = meta
	for key, value := range record.Metadata {
		attrs[metadataAttributeKey(key)] = fmt.Sprint(value)
	}
	return attrs
}

func metadataAttributeKey(key string) string {
	return redisMetadataPrefix + sanitizeAttributeKey(key)
}

func sanitizeAttributeKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "unknown"
	}
	builder := strings.Builder{}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
		default:
			builder.WriteRune('_')
		}
	}
	result := strings.Trim(builder.String(), "_")
	if result == "" {
		return "unknown"
	}
	return result
}

func buildRedisFilter(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		attr := "." + metadataAttributeKey(key)
		parts = append(parts, fmt.Sprintf(redisFilterEqualsFormat, attr, escapeFilterValue(filters[key])))
	}
	return strings.Join(parts, " && ")
}

func escapeFilterValue(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return replacer.Replace(value)
}

func parseAttributeJSON(payload string) (string, map[string]any, error) {
	if strings.TrimSpace(payload) == "" {
		return "", make(map[string]any), nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "", nil, err
	}
	text := ""
	if value, ok := decoded[redisTextAttrKey].(string); ok {
		text = value
	}
	meta := make(map[string]any)
	if raw, ok := decoded[redisMetadataAttrKey].(map[string]any); ok && raw != nil {
		meta = raw
	}
	return text, meta, nil
}
