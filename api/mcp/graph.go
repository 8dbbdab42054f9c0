package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/worklog"
)

// addGraphTools registers the taxonomy, relationship, topic, and duplicate
// tools.
func (s *Server) addGraphTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "normalize_tags",
		Description: "Normalize a comma-separated tag list against the taxonomy, resolving aliases to canonical tags and reporting unknown tags.",
	}, s.handleNormalizeTags)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_taxonomy_tag",
		Description: "Register a canonical tag with optional aliases in the tag taxonomy.",
	}, s.handleAddTaxonomyTag)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_relationship",
		Description: "Create a typed relationship between two entries, optionally bidirectional. Both endpoints must exist.",
	}, s.handleAddRelationship)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_relationships",
		Description: "Return the direct relationships of an entry in the requested direction, optionally filtered by relationship type.",
	}, s.handleGetRelationships)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_related",
		Description: "Traverse the relationship graph from an entry up to a depth of 3, grouping discovered entries by distance.",
	}, s.handleFindRelated)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_topic",
		Description: "Register a topic in the topic index. Topic names are unique.",
	}, s.handleCreateTopic)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_topic_entry",
		Description: "Add an entry to a topic with a relevance score.",
	}, s.handleAddTopicEntry)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_topic_entries",
		Description: "Return a topic and its member entries ordered by relevance, each annotated with the entry's label.",
	}, s.handleGetTopicEntries)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_topic_summary",
		Description: "Update a topic's summaries and stamp its last curated time.",
	}, s.handleUpdateTopicSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_by_taxonomy",
		Description: "Find entries tagged with a canonical tag or any of its aliases, or with every tag in a taxonomy category.",
	}, s.handleSearchByTaxonomy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "report_duplicate",
		Description: "Record a candidate duplicate pair of entries for later review.",
	}, s.handleReportDuplicate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "review_duplicate",
		Description: "Review a reported duplicate candidate: confirm, dismiss, or mark it merged.",
	}, s.handleReviewDuplicate)
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// NormalizeTagsInput represents the input arguments for the normalize_tags
// tool.
type NormalizeTagsInput struct {
	Tags string `json:"tags" jsonschema:"comma-separated tags to normalize"`
}

func (s *Server) handleNormalizeTags(ctx context.Context, _ *mcp.CallToolRequest, input NormalizeTagsInput) (*mcp.CallToolResult, *worklog.TagNormalization, error) {
	result, err := s.config.Service.NormalizeTags(ctx, input.Tags)
	if err != nil {
		return s.failure("normalize_tags", err), nil, nil
	}

	return jsonResult(result)
}

// AddTaxonomyTagInput represents the input arguments for the
// add_taxonomy_tag tool.
type AddTaxonomyTagInput struct {
	CanonicalTag string `json:"canonical_tag" jsonschema:"the canonical form of the tag"`
	Aliases      string `json:"aliases,omitempty" jsonschema:"comma-separated aliases resolving to the canonical tag"`
	Category     string `json:"category,omitempty" jsonschema:"taxonomy category grouping related tags"`
	Description  string `json:"description,omitempty" jsonschema:"what the tag means"`
}

func (s *Server) handleAddTaxonomyTag(ctx context.Context, _ *mcp.CallToolRequest, input AddTaxonomyTagInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.AddTaxonomyTag(ctx, worklog.AddTaxonomyTagParams{
		CanonicalTag: input.CanonicalTag,
		Aliases:      input.Aliases,
		Category:     input.Category,
		Description:  input.Description,
	})
	if err != nil {
		return s.failure("add_taxonomy_tag", err), nil, nil
	}

	return jsonResult(result)
}

// AddRelationshipInput represents the input arguments for the
// add_relationship tool.
type AddRelationshipInput struct {
	SourceTable      string  `json:"source_table" jsonschema:"table of the source entry"`
	SourceID         int64   `json:"source_id" jsonschema:"id of the source entry"`
	TargetTable      string  `json:"target_table" jsonschema:"table of the target entry"`
	TargetID         int64   `json:"target_id" jsonschema:"id of the target entry"`
	RelationshipType string  `json:"relationship_type" jsonschema:"the relationship type, e.g. relates_to, supersedes"`
	Confidence       float64 `json:"confidence,omitempty" jsonschema:"confidence 0 to 1 (default: 1)"`
	Bidirectional    bool    `json:"bidirectional,omitempty" jsonschema:"also create the reverse relationship"`
	CreatedBy        string  `json:"created_by,omitempty" jsonschema:"agent creating the relationship"`
}

func (s *Server) handleAddRelationship(ctx context.Context, _ *mcp.CallToolRequest, input AddRelationshipInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.AddRelationship(ctx, worklog.AddRelationshipParams{
		SourceTable:      input.SourceTable,
		SourceID:         input.SourceID,
		TargetTable:      input.TargetTable,
		TargetID:         input.TargetID,
		RelationshipType: input.RelationshipType,
		Confidence:       input.Confidence,
		Bidirectional:    input.Bidirectional,
		CreatedBy:        input.CreatedBy,
	})
	if err != nil {
		return s.failure("add_relationship", err), nil, nil
	}

	return jsonResult(result)
}

// GetRelationshipsInput represents the input arguments for the
// get_relationships tool.
type GetRelationshipsInput struct {
	Table             string `json:"table" jsonschema:"table of the entry"`
	ID                int64  `json:"id" jsonschema:"id of the entry"`
	Direction         string `json:"direction,omitempty" jsonschema:"outgoing, incoming, or both (default: both)"`
	RelationshipTypes string `json:"relationship_types,omitempty" jsonschema:"comma-separated relationship types to include"`
}

func (s *Server) handleGetRelationships(ctx context.Context, _ *mcp.CallToolRequest, input GetRelationshipsInput) (*mcp.CallToolResult, *worklog.RelationshipsResult, error) {
	result, err := s.config.Service.GetRelationships(ctx,
		input.Table, input.ID, input.Direction, splitList(input.RelationshipTypes))
	if err != nil {
		return s.failure("get_relationships", err), nil, nil
	}

	return jsonResult(result)
}

// FindRelatedInput represents the input arguments for the find_related
// tool.
type FindRelatedInput struct {
	Table             string `json:"table" jsonschema:"table of the origin entry"`
	ID                int64  `json:"id" jsonschema:"id of the origin entry"`
	Depth             int    `json:"depth,omitempty" jsonschema:"traversal depth 1 to 3 (default: 2)"`
	RelationshipTypes string `json:"relationship_types,omitempty" jsonschema:"comma-separated relationship types to follow"`
}

func (s *Server) handleFindRelated(ctx context.Context, _ *mcp.CallToolRequest, input FindRelatedInput) (*mcp.CallToolResult, *worklog.RelatedResult, error) {
	result, err := s.config.Service.FindRelated(ctx,
		input.Table, input.ID, input.Depth, splitList(input.RelationshipTypes))
	if err != nil {
		return s.failure("find_related", err), nil, nil
	}

	return jsonResult(result)
}

// CreateTopicInput represents the input arguments for the create_topic
// tool.
type CreateTopicInput struct {
	TopicName   string `json:"topic_name" jsonschema:"unique topic name"`
	Summary     string `json:"summary,omitempty" jsonschema:"short topic summary"`
	FullSummary string `json:"full_summary,omitempty" jsonschema:"detailed topic summary"`
	KeyTerms    string `json:"key_terms,omitempty" jsonschema:"comma-separated key terms"`
}

func (s *Server) handleCreateTopic(ctx context.Context, _ *mcp.CallToolRequest, input CreateTopicInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.CreateTopic(ctx, worklog.CreateTopicParams{
		TopicName:   input.TopicName,
		Summary:     input.Summary,
		FullSummary: input.FullSummary,
		KeyTerms:    input.KeyTerms,
	})
	if err != nil {
		return s.failure("create_topic", err), nil, nil
	}

	return jsonResult(result)
}

// AddTopicEntryInput represents the input arguments for the add_topic_entry
// tool.
type AddTopicEntryInput struct {
	TopicID    int64   `json:"topic_id" jsonschema:"id of the topic"`
	EntryTable string  `json:"entry_table" jsonschema:"table of the entry to add"`
	EntryID    int64   `json:"entry_id" jsonschema:"id of the entry to add"`
	Relevance  float64 `json:"relevance,omitempty" jsonschema:"relevance 0 to 1 (default: 1)"`
}

func (s *Server) handleAddTopicEntry(ctx context.Context, _ *mcp.CallToolRequest, input AddTopicEntryInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.AddTopicEntry(ctx,
		input.TopicID, input.EntryTable, input.EntryID, input.Relevance)
	if err != nil {
		return s.failure("add_topic_entry", err), nil, nil
	}

	return jsonResult(result)
}

// GetTopicEntriesInput represents the input arguments for the
// get_topic_entries tool.
type GetTopicEntriesInput struct {
	TopicID int64 `json:"topic_id" jsonschema:"id of the topic"`
}

func (s *Server) handleGetTopicEntries(ctx context.Context, _ *mcp.CallToolRequest, input GetTopicEntriesInput) (*mcp.CallToolResult, *worklog.TopicEntriesResult, error) {
	result, err := s.config.Service.GetTopicEntries(ctx, input.TopicID)
	if err != nil {
		return s.failure("get_topic_entries", err), nil, nil
	}

	return jsonResult(result)
}

// UpdateTopicSummaryInput represents the input arguments for the
// update_topic_summary tool. Absent fields are left untouched.
type UpdateTopicSummaryInput struct {
	TopicID     int64   `json:"topic_id" jsonschema:"id of the topic"`
	Summary     *string `json:"summary,omitempty" jsonschema:"new short summary"`
	FullSummary *string `json:"full_summary,omitempty" jsonschema:"new detailed summary"`
	KeyTerms    *string `json:"key_terms,omitempty" jsonschema:"new comma-separated key terms"`
}

// TopicUpdateOutput reports an applied topic update.
type TopicUpdateOutput struct {
	TopicID int64  `json:"topic_id"`
	Status  string `json:"status"`
}

func (s *Server) handleUpdateTopicSummary(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTopicSummaryInput) (*mcp.CallToolResult, TopicUpdateOutput, error) {
	err := s.config.Service.UpdateTopicSummary(ctx, worklog.UpdateTopicSummaryParams{
		TopicID:     input.TopicID,
		Summary:     input.Summary,
		FullSummary: input.FullSummary,
		KeyTerms:    input.KeyTerms,
	})
	if err != nil {
		return s.failure("update_topic_summary", err), TopicUpdateOutput{}, nil
	}

	return jsonResult(TopicUpdateOutput{TopicID: input.TopicID, Status: "updated"})
}

// SearchByTaxonomyInput represents the input arguments for the
// search_by_taxonomy tool.
type SearchByTaxonomyInput struct {
	Tag      string `json:"tag,omitempty" jsonschema:"canonical tag or alias to search for"`
	Category string `json:"category,omitempty" jsonschema:"taxonomy category to search instead of a single tag"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum matches per table (default: 20)"`
}

func (s *Server) handleSearchByTaxonomy(ctx context.Context, _ *mcp.CallToolRequest, input SearchByTaxonomyInput) (*mcp.CallToolResult, *worklog.TaxonomySearchResult, error) {
	result, err := s.config.Service.SearchByTaxonomy(ctx, input.Tag, input.Category, input.Limit)
	if err != nil {
		return s.failure("search_by_taxonomy", err), nil, nil
	}

	return jsonResult(result)
}

// ReportDuplicateInput represents the input arguments for the
// report_duplicate tool.
type ReportDuplicateInput struct {
	Table           string  `json:"table" jsonschema:"table containing both entries"`
	EntryID1        int64   `json:"entry_id_1" jsonschema:"id of the first entry"`
	EntryID2        int64   `json:"entry_id_2" jsonschema:"id of the second entry"`
	SimilarityScore float64 `json:"similarity_score,omitempty" jsonschema:"similarity 0 to 1"`
	DetectionMethod string  `json:"detection_method,omitempty" jsonschema:"how the pair was detected"`
}

func (s *Server) handleReportDuplicate(ctx context.Context, _ *mcp.CallToolRequest, input ReportDuplicateInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
		Table:           input.Table,
		EntryID1:        input.EntryID1,
		EntryID2:        input.EntryID2,
		SimilarityScore: input.SimilarityScore,
		DetectionMethod: input.DetectionMethod,
	})
	if err != nil {
		return s.failure("report_duplicate", err), nil, nil
	}

	return jsonResult(result)
}

// ReviewDuplicateInput represents the input arguments for the
// review_duplicate tool.
type ReviewDuplicateInput struct {
	ID         int64  `json:"id" jsonschema:"id of the duplicate candidate"`
	Status     string `json:"status" jsonschema:"review outcome: confirmed, dismissed, or merged"`
	ReviewedBy string `json:"reviewed_by,omitempty" jsonschema:"agent performing the review"`
}

// DuplicateReviewOutput reports an applied duplicate review.
type DuplicateReviewOutput struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleReviewDuplicate(ctx context.Context, _ *mcp.CallToolRequest, input ReviewDuplicateInput) (*mcp.CallToolResult, DuplicateReviewOutput, error) {
	err := s.config.Service.ReviewDuplicate(ctx, input.ID, input.Status, input.ReviewedBy)
	if err != nil {
		return s.failure("review_duplicate", err), DuplicateReviewOutput{}, nil
	}

	return jsonResult(DuplicateReviewOutput{ID: input.ID, Status: input.Status})
}
