package worklog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opshelm/worklog/pkg/database"
)

// TagResolution is the outcome of normalizing one tag against the taxonomy.
type TagResolution struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical,omitempty"`
	Found     bool   `json:"found"`
	ViaAlias  bool   `json:"via_alias"`
}

// NormalizeTag resolves a tag to its canonical form: a case-insensitive
// match against canonical tags first, then against alias membership.
func (s *Service) NormalizeTag(ctx context.Context, tag string) (*TagResolution, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	return s.normalizeTag(ctx, b, tag)
}

func (s *Service) normalizeTag(ctx context.Context, b database.Backend, tag string) (*TagResolution, error) {
	resolution := &TagResolution{Input: tag}

	name := strings.ToLower(strings.TrimSpace(tag))
	if name == "" {
		return resolution, nil
	}

	row, err := b.FetchOne(ctx,
		"SELECT canonical_tag FROM tag_taxonomy WHERE LOWER(canonical_tag) = "+b.Placeholder(1), name)
	if err != nil {
		return nil, err
	}
	if row != nil {
		resolution.Canonical = toString(row["canonical_tag"])
		resolution.Found = true
		return resolution, s.bumpTagUsage(ctx, b, resolution.Canonical)
	}

	// Aliases are stored comma-joined, so membership is resolved here rather
	// than in SQL.
	rows, err := b.FetchAll(ctx, "SELECT canonical_tag, aliases FROM tag_taxonomy WHERE aliases IS NOT NULL")
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		for _, alias := range strings.Split(toString(r["aliases"]), ",") {
			if strings.ToLower(strings.TrimSpace(alias)) == name {
				resolution.Canonical = toString(r["canonical_tag"])
				resolution.Found = true
				resolution.ViaAlias = true
				return resolution, s.bumpTagUsage(ctx, b, resolution.Canonical)
			}
		}
	}

	return resolution, nil
}

// bumpTagUsage counts every successful taxonomy resolution against the
// matched entry, whether it was hit by canonical tag or through an alias.
func (s *Service) bumpTagUsage(ctx context.Context, b database.Backend, canonical string) error {
	_, err := b.Execute(ctx,
		"UPDATE tag_taxonomy SET usage_count = usage_count + 1 WHERE LOWER(canonical_tag) = "+b.Placeholder(1),
		strings.ToLower(canonical))

	return err
}

// TagNormalization is the outcome of normalizing a comma-separated tag list.
type TagNormalization struct {
	Tags    []string          `json:"tags"`
	Aliased map[string]string `json:"aliased,omitempty"`
	Unknown []string          `json:"unknown,omitempty"`
}

// NormalizeTags normalizes each tag in a comma-separated list,
// deduplicating case-insensitively while preserving first-seen order, and
// reports which inputs mapped through an alias and which stayed unknown.
func (s *Service) NormalizeTags(ctx context.Context, tags string) (*TagNormalization, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	result := &TagNormalization{
		Tags:    []string{},
		Aliased: map[string]string{},
		Unknown: []string{},
	}

	seen := make(map[string]bool)
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		resolution, err := s.normalizeTag(ctx, b, tag)
		if err != nil {
			return nil, err
		}

		normalized := strings.ToLower(tag)
		if resolution.Found {
			normalized = strings.ToLower(resolution.Canonical)
			if resolution.ViaAlias {
				result.Aliased[tag] = resolution.Canonical
			}
		} else {
			result.Unknown = append(result.Unknown, tag)
		}

		if !seen[normalized] {
			seen[normalized] = true
			result.Tags = append(result.Tags, normalized)
		}
	}

	return result, nil
}

// AddTaxonomyTagParams are the arguments for AddTaxonomyTag.
type AddTaxonomyTagParams struct {
	CanonicalTag string
	Aliases      string
	Category     string
	Description  string
}

// AddTaxonomyTag registers a canonical tag with optional aliases. The
// canonical form must be case-insensitively unique and no alias may shadow
// another entry's canonical tag.
func (s *Service) AddTaxonomyTag(ctx context.Context, p AddTaxonomyTagParams) (*StoreResult, error) {
	canonical := strings.ToLower(strings.TrimSpace(p.CanonicalTag))
	if canonical == "" {
		return nil, ValidationError{Reason: "canonical_tag is required"}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := b.FetchOne(ctx,
		"SELECT id FROM tag_taxonomy WHERE LOWER(canonical_tag) = "+b.Placeholder(1), canonical)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ConflictError{Message: fmt.Sprintf(
			"Canonical tag '%s' already exists.", canonical)}
	}

	aliases := NormalizeTagList(p.Aliases)
	for _, alias := range strings.Split(aliases, ",") {
		if alias == "" || alias == canonical {
			continue
		}
		shadowed, err := b.FetchOne(ctx,
			"SELECT canonical_tag FROM tag_taxonomy WHERE LOWER(canonical_tag) = "+b.Placeholder(1), alias)
		if err != nil {
			return nil, err
		}
		if shadowed != nil {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Alias '%s' matches the canonical tag of another entry.", alias)}
		}
	}

	sql := insertSQL(b, "tag_taxonomy", "canonical_tag", "aliases", "category", "description")

	id, err := s.insertReturningID(ctx, b, sql, canonical, aliases, p.Category, p.Description)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Canonical tag '%s' already exists.", canonical)}
		}
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// entryExists checks that a row exists in a validated entry table.
func (s *Service) entryExists(ctx context.Context, b database.Backend, table string, id int64) error {
	row, err := b.FetchOne(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE id = %s", table, b.Placeholder(1)), id)
	if err != nil {
		return err
	}
	if row == nil {
		return ReferenceError{Table: table, ID: id}
	}

	return nil
}

// AddRelationshipParams are the arguments for AddRelationship.
type AddRelationshipParams struct {
	SourceTable      string
	SourceID         int64
	TargetTable      string
	TargetID         int64
	RelationshipType string
	Confidence       float64
	Bidirectional    bool
	CreatedBy        string
}

// AddRelationship creates a typed edge between two entries. Both endpoints
// must exist, confidence is clamped to [0, 1], and an exact duplicate triple
// is reported as a conflict.
func (s *Service) AddRelationship(ctx context.Context, p AddRelationshipParams) (*StoreResult, error) {
	sourceTable, err := ValidateEntryTable(p.SourceTable)
	if err != nil {
		return nil, err
	}
	targetTable, err := ValidateEntryTable(p.TargetTable)
	if err != nil {
		return nil, err
	}
	relType, err := validateEnum(p.RelationshipType, "relationship_type", RelationshipTypes)
	if err != nil {
		return nil, err
	}

	confidence := p.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	confidence = clampUnit(confidence)

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.entryExists(ctx, b, sourceTable, p.SourceID); err != nil {
		return nil, err
	}
	if err := s.entryExists(ctx, b, targetTable, p.TargetID); err != nil {
		return nil, err
	}

	bidirectional := 0
	if p.Bidirectional {
		bidirectional = 1
	}

	createdBy := p.CreatedBy
	if createdBy == "" {
		createdBy = s.agentName
	}

	sql := insertSQL(b, "relationships",
		"source_table", "source_id", "target_table", "target_id",
		"relationship_type", "confidence", "bidirectional", "created_by")

	id, err := s.insertReturningID(ctx, b, sql,
		sourceTable, p.SourceID, targetTable, p.TargetID,
		relType, confidence, bidirectional, createdBy)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Relationship %s -> %s (%s) already exists.",
				fmt.Sprintf("%s:%d", sourceTable, p.SourceID),
				fmt.Sprintf("%s:%d", targetTable, p.TargetID),
				relType)}
		}
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// RelationshipsResult is the one-hop neighborhood of an entry.
type RelationshipsResult struct {
	Table    string         `json:"table"`
	ID       int64          `json:"id"`
	Outgoing []database.Row `json:"outgoing,omitempty"`
	Incoming []database.Row `json:"incoming,omitempty"`
}

// GetRelationships returns the direct relationships of an entry in the
// requested direction (outgoing, incoming, or both), optionally filtered by
// relationship type.
func (s *Service) GetRelationships(ctx context.Context, table string, id int64, direction string, types []string) (*RelationshipsResult, error) {
	table, err := ValidateEntryTable(table)
	if err != nil {
		return nil, err
	}

	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction == "" {
		direction = "both"
	}
	if direction != "outgoing" && direction != "incoming" && direction != "both" {
		return nil, ValidationError{Reason: "Invalid direction. Must be one of: outgoing, incoming, both"}
	}

	for _, t := range types {
		if _, err := validateEnum(t, "relationship_type", RelationshipTypes); err != nil {
			return nil, err
		}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	result := &RelationshipsResult{Table: table, ID: id}

	if direction == "outgoing" || direction == "both" {
		q := NewQuery(b, "relationships").
			Where(mustColumn("source_table", "relationships"), "=", table).
			Where(mustColumn("source_id", "relationships"), "=", id)
		if len(types) > 0 {
			q.WhereIn(mustColumn("relationship_type", "relationships"), types)
		}

		sql, args := q.SQL()
		if result.Outgoing, err = b.FetchAll(ctx, sql, args...); err != nil {
			return nil, err
		}
	}

	if direction == "incoming" || direction == "both" {
		q := NewQuery(b, "relationships").
			Where(mustColumn("target_table", "relationships"), "=", table).
			Where(mustColumn("target_id", "relationships"), "=", id)
		if len(types) > 0 {
			q.WhereIn(mustColumn("relationship_type", "relationships"), types)
		}

		sql, args := q.SQL()
		if result.Incoming, err = b.FetchAll(ctx, sql, args...); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// RelatedNode is one entry discovered by graph traversal.
type RelatedNode struct {
	Table            string  `json:"table"`
	ID               int64   `json:"id"`
	Label            string  `json:"label,omitempty"`
	RelationshipType string  `json:"relationship_type"`
	Confidence       float64 `json:"confidence"`
}

// RelatedLevel groups discovered nodes by the depth at which they were first
// reached.
type RelatedLevel struct {
	Depth   int           `json:"depth"`
	Entries []RelatedNode `json:"entries"`
}

// RelatedResult is the bounded neighborhood of an entry.
type RelatedResult struct {
	Table  string         `json:"table"`
	ID     int64          `json:"id"`
	Depth  int            `json:"depth"`
	Levels []RelatedLevel `json:"levels"`
}

// nodeRef identifies an entry across the entry tables.
type nodeRef struct {
	table string
	id    int64
}

// FindRelated walks the relationship graph breadth-first from an entry,
// bounded to depth [1, 3]. Forward edges always traverse source to target;
// bidirectional edges also traverse target to source. A visited set keeps
// cycles from looping and guarantees each node appears at exactly one depth,
// the shallowest at which it was reached.
func (s *Service) FindRelated(ctx context.Context, table string, id int64, depth int, types []string) (*RelatedResult, error) {
	table, err := ValidateEntryTable(table)
	if err != nil {
		return nil, err
	}

	for _, t := range types {
		if _, err := validateEnum(t, "relationship_type", RelationshipTypes); err != nil {
			return nil, err
		}
	}

	depth = min(max(depth, 1), 3)

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.entryExists(ctx, b, table, id); err != nil {
		return nil, err
	}

	origin := nodeRef{table: table, id: id}
	visited := map[nodeRef]bool{origin: true}
	frontier := []nodeRef{origin}

	result := &RelatedResult{
		Table:  table,
		ID:     id,
		Depth:  depth,
		Levels: []RelatedLevel{},
	}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var discovered []RelatedNode
		var next []nodeRef

		for _, node := range frontier {
			neighbors, err := s.neighbors(ctx, b, node, types)
			if err != nil {
				return nil, err
			}

			for _, n := range neighbors {
				ref := nodeRef{table: n.Table, id: n.ID}
				if visited[ref] {
					continue
				}
				visited[ref] = true

				n.Label, err = s.entryLabel(ctx, b, n.Table, n.ID)
				if err != nil {
					return nil, err
				}

				discovered = append(discovered, n)
				next = append(next, ref)
			}
		}

		if len(discovered) > 0 {
			result.Levels = append(result.Levels, RelatedLevel{
				Depth:   level,
				Entries: discovered,
			})
		}

		frontier = next
	}

	return result, nil
}

// neighbors returns the nodes one hop from the given node: targets of its
// outgoing edges, plus sources of incoming edges marked bidirectional.
func (s *Service) neighbors(ctx context.Context, b database.Backend, node nodeRef, types []string) ([]RelatedNode, error) {
	var out []RelatedNode

	forward := NewQuery(b, "relationships").
		Where(mustColumn("source_table", "relationships"), "=", node.table).
		Where(mustColumn("source_id", "relationships"), "=", node.id)
	if len(types) > 0 {
		forward.WhereIn(mustColumn("relationship_type", "relationships"), types)
	}

	sql, args := forward.SQL()
	rows, err := b.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, RelatedNode{
			Table:            toString(r["target_table"]),
			ID:               toInt64(r["target_id"]),
			RelationshipType: toString(r["relationship_type"]),
			Confidence:       toFloat64(r["confidence"]),
		})
	}

	reverse := NewQuery(b, "relationships").
		Where(mustColumn("target_table", "relationships"), "=", node.table).
		Where(mustColumn("target_id", "relationships"), "=", node.id).
		Where(mustColumn("bidirectional", "relationships"), "=", 1)
	if len(types) > 0 {
		reverse.WhereIn(mustColumn("relationship_type", "relationships"), types)
	}

	sql, args = reverse.SQL()
	rows, err = b.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, RelatedNode{
			Table:            toString(r["source_table"]),
			ID:               toInt64(r["source_id"]),
			RelationshipType: toString(r["relationship_type"]),
			Confidence:       toFloat64(r["confidence"]),
		})
	}

	return out, nil
}

// labelColumns maps each entry table to the column that best names a row.
var labelColumns = map[string]string{
	"memories":       "key",
	"knowledge_base": "title",
	"entries":        "title",
}

// entryLabel returns a short human-readable name for an entry.
func (s *Service) entryLabel(ctx context.Context, b database.Backend, table string, id int64) (string, error) {
	column, ok := labelColumns[table]
	if !ok {
		return "", nil
	}

	row, err := b.FetchOne(ctx,
		fmt.Sprintf("SELECT %s AS label FROM %s WHERE id = %s", column, table, b.Placeholder(1)), id)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}

	return toString(row["label"]), nil
}

// CreateTopicParams are the arguments for CreateTopic.
type CreateTopicParams struct {
	TopicName   string
	Summary     string
	FullSummary string
	KeyTerms    string
}

// CreateTopic registers a topic in the topic index.
func (s *Service) CreateTopic(ctx context.Context, p CreateTopicParams) (*StoreResult, error) {
	name := strings.TrimSpace(p.TopicName)
	if name == "" {
		return nil, ValidationError{Reason: "topic_name is required"}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "topic_index", "topic_name", "summary", "full_summary", "key_terms")

	id, err := s.insertReturningID(ctx, b, sql,
		name, p.Summary, p.FullSummary, NormalizeTagList(p.KeyTerms))
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf("Topic '%s' already exists.", name)}
		}
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// AddTopicEntry adds an entry to a topic. The topic and the entry must both
// exist, and an entry belongs to a topic at most once.
func (s *Service) AddTopicEntry(ctx context.Context, topicID int64, entryTable string, entryID int64, relevance float64) (*StoreResult, error) {
	entryTable, err := ValidateEntryTable(entryTable)
	if err != nil {
		return nil, err
	}

	if relevance == 0 {
		relevance = 1.0
	}
	relevance = clampUnit(relevance)

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := b.FetchOne(ctx,
		"SELECT id FROM topic_index WHERE id = "+b.Placeholder(1), topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, ReferenceError{Table: "topic_index", ID: topicID}
	}

	if err := s.entryExists(ctx, b, entryTable, entryID); err != nil {
		return nil, err
	}

	sql := insertSQL(b, "topic_entries", "topic_id", "entry_table", "entry_id", "relevance_score")

	id, err := s.insertReturningID(ctx, b, sql, topicID, entryTable, entryID, relevance)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Entry %s:%d already belongs to topic %d.", entryTable, entryID, topicID)}
		}
		return nil, err
	}

	_, err = b.Execute(ctx,
		"UPDATE topic_index SET entry_count = entry_count + 1 WHERE id = "+b.Placeholder(1), topicID)
	if err != nil {
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// TopicEntriesResult is a topic with its member entries.
type TopicEntriesResult struct {
	Topic   database.Row   `json:"topic"`
	Entries []database.Row `json:"entries"`
	Count   int            `json:"count"`
}

// GetTopicEntries returns a topic and its memberships, each annotated with
// the referenced entry's label.
func (s *Service) GetTopicEntries(ctx context.Context, topicID int64) (*TopicEntriesResult, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := b.FetchOne(ctx,
		"SELECT * FROM topic_index WHERE id = "+b.Placeholder(1), topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, NotFoundError{Message: fmt.Sprintf("No topic with id %d", topicID)}
	}

	order := mustOrderBy("relevance_score DESC", "topic_entries")
	q := NewQuery(b, "topic_entries").
		Where(mustColumn("topic_id", "topic_entries"), "=", topicID).
		OrderBy(order)

	sql, args := q.SQL()
	entries, err := b.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		label, err := s.entryLabel(ctx, b, toString(entry["entry_table"]), toInt64(entry["entry_id"]))
		if err != nil {
			return nil, err
		}
		entry["label"] = label
	}

	return &TopicEntriesResult{
		Topic:   topic,
		Entries: entries,
		Count:   len(entries),
	}, nil
}

// UpdateTopicSummaryParams are the arguments for UpdateTopicSummary. Nil
// fields are left untouched.
type UpdateTopicSummaryParams struct {
	TopicID     int64
	Summary     *string
	FullSummary *string
	KeyTerms    *string
}

// UpdateTopicSummary updates a topic's summaries and stamps last_curated.
func (s *Service) UpdateTopicSummary(ctx context.Context, p UpdateTopicSummaryParams) error {
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", column, b.Placeholder(len(args))))
	}

	if p.Summary != nil {
		add("summary", *p.Summary)
	}
	if p.FullSummary != nil {
		add("full_summary", *p.FullSummary)
	}
	if p.KeyTerms != nil {
		add("key_terms", NormalizeTagList(*p.KeyTerms))
	}

	if len(sets) == 0 {
		return ValidationError{Reason: "No fields to update"}
	}

	sets = append(sets, "last_curated = CURRENT_TIMESTAMP")

	args = append(args, p.TopicID)
	sql := fmt.Sprintf("UPDATE topic_index SET %s WHERE id = %s",
		strings.Join(sets, ", "), b.Placeholder(len(args)))

	affected, err := b.Execute(ctx, sql, args...)
	if err != nil {
		return err
	}
	if affected == 0 {
		return NotFoundError{Message: fmt.Sprintf("No topic with id %d", p.TopicID)}
	}

	return nil
}

// TaxonomySearchResult holds entries matched through the tag taxonomy.
type TaxonomySearchResult struct {
	Tags    []string                  `json:"tags"`
	Results map[string][]database.Row `json:"results"`
}

// SearchByTaxonomy finds entries tagged with a canonical tag or any of its
// aliases. Given a category instead, it resolves every taxonomy entry in
// that category. Matching is exact-token over the comma-joined tag columns,
// identical on both backends.
func (s *Service) SearchByTaxonomy(ctx context.Context, tag, category string, limit int) (*TaxonomySearchResult, error) {
	if tag == "" && category == "" {
		return nil, ValidationError{Reason: "Either tag or category is required"}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	var tagSet []string
	appendEntry := func(canonical, aliases string) {
		tagSet = append(tagSet, strings.ToLower(canonical))
		for _, alias := range strings.Split(aliases, ",") {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias != "" {
				tagSet = append(tagSet, alias)
			}
		}
	}

	if tag != "" {
		name := strings.ToLower(strings.TrimSpace(tag))

		resolution, err := s.normalizeTag(ctx, b, name)
		if err != nil {
			return nil, err
		}
		if !resolution.Found {
			// Unknown tags still search as themselves so new tags are usable
			// before they are curated into the taxonomy.
			tagSet = append(tagSet, name)
		} else {
			row, err := b.FetchOne(ctx,
				"SELECT canonical_tag, aliases FROM tag_taxonomy WHERE LOWER(canonical_tag) = "+b.Placeholder(1),
				strings.ToLower(resolution.Canonical))
			if err != nil {
				return nil, err
			}
			if row != nil {
				appendEntry(toString(row["canonical_tag"]), toString(row["aliases"]))
			}
		}
	} else {
		rows, err := b.FetchAll(ctx,
			"SELECT canonical_tag, aliases FROM tag_taxonomy WHERE category = "+b.Placeholder(1), category)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, NotFoundError{Message: fmt.Sprintf("No taxonomy entries in category '%s'", category)}
		}
		for _, row := range rows {
			appendEntry(toString(row["canonical_tag"]), toString(row["aliases"]))
		}
	}

	results := make(map[string][]database.Row, len(EntryTables))
	for _, table := range EntryTables {
		q := NewQuery(b, table).
			WhereTagAny(mustColumn("tags", table), tagSet).
			Page(limit, 0)

		sql, args := q.SQL()
		rows, err := b.FetchAll(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		results[table] = rows
	}

	return &TaxonomySearchResult{
		Tags:    tagSet,
		Results: results,
	}, nil
}

// DuplicateStatuses are the review states of a duplicate candidate.
var DuplicateStatuses = []string{"pending", "confirmed", "dismissed", "merged"}

// ReportDuplicateParams are the arguments for ReportDuplicate.
type ReportDuplicateParams struct {
	Table           string
	EntryID1        int64
	EntryID2        int64
	SimilarityScore float64
	DetectionMethod string
}

// ReportDuplicate records a candidate duplicate pair for later review. The
// pair is stored in normalized id order so (a, b) and (b, a) are the same
// candidate.
func (s *Service) ReportDuplicate(ctx context.Context, p ReportDuplicateParams) (*StoreResult, error) {
	table, err := ValidateEntryTable(p.Table)
	if err != nil {
		return nil, err
	}

	if p.EntryID1 == p.EntryID2 {
		return nil, ValidationError{Reason: "An entry cannot duplicate itself"}
	}

	id1, id2 := p.EntryID1, p.EntryID2
	if id2 < id1 {
		id1, id2 = id2, id1
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.entryExists(ctx, b, table, id1); err != nil {
		return nil, err
	}
	if err := s.entryExists(ctx, b, table, id2); err != nil {
		return nil, err
	}

	sql := insertSQL(b, "duplicate_candidates",
		"table_name", "entry_id_1", "entry_id_2", "similarity_score", "detection_method")

	id, err := s.insertReturningID(ctx, b, sql,
		table, id1, id2, clampUnit(p.SimilarityScore), p.DetectionMethod)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Duplicate candidate for %s entries %d and %d already reported.", table, id1, id2)}
		}
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// ReviewDuplicate records the review outcome of a duplicate candidate.
func (s *Service) ReviewDuplicate(ctx context.Context, id int64, status, reviewedBy string) error {
	status, err := validateEnum(status, "status", DuplicateStatuses)
	if err != nil {
		return err
	}

	if reviewedBy == "" {
		reviewedBy = s.agentName
	}

	b, err := s.backend(ctx)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(
		"UPDATE duplicate_candidates SET status = %s, reviewed_by = %s, reviewed_at = CURRENT_TIMESTAMP WHERE id = %s",
		b.Placeholder(1), b.Placeholder(2), b.Placeholder(3))

	affected, err := b.Execute(ctx, sql, status, reviewedBy, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return NotFoundError{Message: fmt.Sprintf("No duplicate candidate with id %d", id)}
	}

	return nil
}
