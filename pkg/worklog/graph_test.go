package worklog_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/worklog"
)

var _ = Describe("Knowledge graph", func() {
	var (
		svc     *worklog.Service
		backend database.Backend
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc, backend = newTestService(worklog.Config{AgentName: "alpha"})
	})

	// storeMemories seeds n memories and returns their ids.
	storeMemories := func(n int) []int64 {
		GinkgoHelper()

		ids := make([]int64, n)
		for i := range ids {
			result, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key:     fmt.Sprintf("node-%d", i),
				Content: "node",
			})
			Expect(err).NotTo(HaveOccurred())
			ids[i] = result.ID
		}

		return ids
	}

	relate := func(sourceID, targetID int64, relType string, bidirectional bool) {
		GinkgoHelper()

		_, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
			SourceTable:      "memories",
			SourceID:         sourceID,
			TargetTable:      "memories",
			TargetID:         targetID,
			RelationshipType: relType,
			Bidirectional:    bidirectional,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("tag taxonomy", func() {
		BeforeEach(func() {
			_, err := svc.AddTaxonomyTag(ctx, worklog.AddTaxonomyTagParams{
				CanonicalTag: "kubernetes",
				Aliases:      "k8s, kube",
				Category:     "infrastructure",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves a canonical tag case-insensitively", func() {
			resolution, err := svc.NormalizeTag(ctx, "Kubernetes")
			Expect(err).NotTo(HaveOccurred())
			Expect(resolution.Found).To(BeTrue())
			Expect(resolution.Canonical).To(Equal("kubernetes"))
			Expect(resolution.ViaAlias).To(BeFalse())
		})

		It("resolves aliases to the canonical form", func() {
			resolution, err := svc.NormalizeTag(ctx, "K8S")
			Expect(err).NotTo(HaveOccurred())
			Expect(resolution.Found).To(BeTrue())
			Expect(resolution.Canonical).To(Equal("kubernetes"))
			Expect(resolution.ViaAlias).To(BeTrue())
		})

		It("leaves unknown tags unresolved", func() {
			resolution, err := svc.NormalizeTag(ctx, "terraform")
			Expect(err).NotTo(HaveOccurred())
			Expect(resolution.Found).To(BeFalse())
		})

		It("normalizes a tag list deduplicating canonical collisions", func() {
			result, err := svc.NormalizeTags(ctx, "k8s, Kubernetes, terraform")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Tags).To(Equal([]string{"kubernetes", "terraform"}))
			Expect(result.Aliased).To(HaveKeyWithValue("k8s", "kubernetes"))
			Expect(result.Unknown).To(Equal([]string{"terraform"}))
		})

		It("counts each successful resolution in usage_count", func() {
			_, err := svc.NormalizeTag(ctx, "Kubernetes")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.NormalizeTag(ctx, "k8s")
			Expect(err).NotTo(HaveOccurred())

			// Unknown tags resolve to nothing and count nowhere.
			_, err = svc.NormalizeTag(ctx, "terraform")
			Expect(err).NotTo(HaveOccurred())

			row, err := backend.FetchOne(ctx,
				"SELECT usage_count FROM tag_taxonomy WHERE canonical_tag = ?", "kubernetes")
			Expect(err).NotTo(HaveOccurred())
			Expect(row["usage_count"]).To(BeEquivalentTo(2))
		})

		It("rejects a duplicate canonical tag regardless of case", func() {
			_, err := svc.AddTaxonomyTag(ctx, worklog.AddTaxonomyTagParams{
				CanonicalTag: "KUBERNETES",
			})
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("rejects an alias shadowing another canonical tag", func() {
			_, err := svc.AddTaxonomyTag(ctx, worklog.AddTaxonomyTagParams{
				CanonicalTag: "container-orchestration",
				Aliases:      "kubernetes",
			})
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})
	})

	Describe("SearchByTaxonomy", func() {
		BeforeEach(func() {
			_, err := svc.AddTaxonomyTag(ctx, worklog.AddTaxonomyTagParams{
				CanonicalTag: "kubernetes",
				Aliases:      "k8s",
				Category:     "infrastructure",
			})
			Expect(err).NotTo(HaveOccurred())

			// One entry tagged with the canonical form, one with an alias, one
			// with a tag that merely contains the token.
			for key, tags := range map[string]string{
				"canonical": "kubernetes,deploy",
				"aliased":   "k8s",
				"lookalike": "kubernetes-operators",
			} {
				_, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
					Key: key, Content: "c", Tags: tags,
				})
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("matches canonical and alias forms as exact tokens", func() {
			result, err := svc.SearchByTaxonomy(ctx, "k8s", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Tags).To(ConsistOf("kubernetes", "k8s"))

			keys := make([]any, 0)
			for _, row := range result.Results["memories"] {
				keys = append(keys, row["key"])
			}
			Expect(keys).To(ConsistOf("canonical", "aliased"))
		})

		It("searches an uncurated tag as itself", func() {
			_, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key: "fresh", Content: "c", Tags: "terraform",
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.SearchByTaxonomy(ctx, "terraform", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Tags).To(Equal([]string{"terraform"}))
			Expect(result.Results["memories"]).To(HaveLen(1))
		})

		It("resolves a whole category", func() {
			result, err := svc.SearchByTaxonomy(ctx, "", "infrastructure", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Tags).To(ContainElements("kubernetes", "k8s"))
		})

		It("reports an empty category as not found", func() {
			_, err := svc.SearchByTaxonomy(ctx, "", "nonexistent", 10)
			var notFound worklog.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("requires a tag or a category", func() {
			_, err := svc.SearchByTaxonomy(ctx, "", "", 10)
			expectValidation(err)
		})
	})

	Describe("AddRelationship", func() {
		var ids []int64

		BeforeEach(func() {
			ids = storeMemories(2)
		})

		It("creates a typed edge between existing entries", func() {
			result, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         ids[1],
				RelationshipType: "relates_to",
				Confidence:       0.8,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ID).To(BeNumerically(">", 0))
		})

		It("rejects a dangling endpoint", func() {
			_, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         9999,
				RelationshipType: "relates_to",
			})
			var ref worklog.ReferenceError
			Expect(errors.As(err, &ref)).To(BeTrue())
			Expect(ref.ID).To(BeEquivalentTo(9999))
		})

		It("rejects unknown relationship types", func() {
			_, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         ids[1],
				RelationshipType: "frenemies",
			})
			expectValidation(err)
		})

		It("reports an exact duplicate triple as a conflict", func() {
			relate(ids[0], ids[1], "relates_to", false)

			_, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         ids[1],
				RelationshipType: "relates_to",
			})
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())

			// A different type between the same endpoints is a new edge.
			relate(ids[0], ids[1], "supersedes", false)
		})

		It("clamps confidence into [0, 1]", func() {
			result, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         ids[1],
				RelationshipType: "relates_to",
				Confidence:       3.5,
			})
			Expect(err).NotTo(HaveOccurred())

			row, err := backend.FetchOne(ctx,
				"SELECT confidence FROM relationships WHERE id = ?", result.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(row["confidence"]).To(BeEquivalentTo(1))
		})
	})

	Describe("GetRelationships", func() {
		var ids []int64

		BeforeEach(func() {
			ids = storeMemories(3)
			relate(ids[0], ids[1], "relates_to", false)
			relate(ids[2], ids[0], "depends_on", false)
		})

		It("separates outgoing from incoming edges", func() {
			result, err := svc.GetRelationships(ctx, "memories", ids[0], "both", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outgoing).To(HaveLen(1))
			Expect(result.Incoming).To(HaveLen(1))
			Expect(result.Outgoing[0]["relationship_type"]).To(Equal("relates_to"))
			Expect(result.Incoming[0]["relationship_type"]).To(Equal("depends_on"))
		})

		It("filters by relationship type", func() {
			result, err := svc.GetRelationships(ctx, "memories", ids[0], "both", []string{"depends_on"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Outgoing).To(BeEmpty())
			Expect(result.Incoming).To(HaveLen(1))
		})

		It("rejects invalid directions", func() {
			_, err := svc.GetRelationships(ctx, "memories", ids[0], "sideways", nil)
			expectValidation(err)
		})
	})

	Describe("FindRelated", func() {
		It("groups discoveries by shortest depth", func() {
			// Chain: 0 -> 1 -> 2 -> 3, plus a shortcut 0 -> 2.
			ids := storeMemories(4)
			relate(ids[0], ids[1], "relates_to", false)
			relate(ids[1], ids[2], "relates_to", false)
			relate(ids[2], ids[3], "relates_to", false)
			relate(ids[0], ids[2], "relates_to", false)

			result, err := svc.FindRelated(ctx, "memories", ids[0], 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Levels).To(HaveLen(2))

			Expect(result.Levels[0].Depth).To(Equal(1))
			level1 := make([]int64, 0)
			for _, n := range result.Levels[0].Entries {
				level1 = append(level1, n.ID)
			}
			Expect(level1).To(ConsistOf(ids[1], ids[2]))

			// Node 2 was reached at depth 1, so depth 2 holds only node 3.
			Expect(result.Levels[1].Depth).To(Equal(2))
			Expect(result.Levels[1].Entries).To(HaveLen(1))
			Expect(result.Levels[1].Entries[0].ID).To(Equal(ids[3]))
			Expect(result.Levels[1].Entries[0].Label).To(Equal("node-3"))
		})

		It("terminates on cycles", func() {
			ids := storeMemories(3)
			relate(ids[0], ids[1], "relates_to", false)
			relate(ids[1], ids[2], "relates_to", false)
			relate(ids[2], ids[0], "relates_to", false)

			result, err := svc.FindRelated(ctx, "memories", ids[0], 3, nil)
			Expect(err).NotTo(HaveOccurred())

			total := 0
			for _, level := range result.Levels {
				total += len(level.Entries)
			}
			Expect(total).To(Equal(2))
		})

		It("traverses bidirectional edges in reverse", func() {
			ids := storeMemories(2)
			relate(ids[1], ids[0], "relates_to", true)

			result, err := svc.FindRelated(ctx, "memories", ids[0], 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Levels).To(HaveLen(1))
			Expect(result.Levels[0].Entries[0].ID).To(Equal(ids[1]))
		})

		It("does not traverse one-way edges in reverse", func() {
			ids := storeMemories(2)
			relate(ids[1], ids[0], "relates_to", false)

			result, err := svc.FindRelated(ctx, "memories", ids[0], 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Levels).To(BeEmpty())
		})

		It("clamps the depth into [1, 3]", func() {
			ids := storeMemories(2)
			relate(ids[0], ids[1], "relates_to", false)

			result, err := svc.FindRelated(ctx, "memories", ids[0], 99, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Depth).To(Equal(3))
		})

		It("rejects a missing origin", func() {
			_, err := svc.FindRelated(ctx, "memories", 9999, 1, nil)
			var ref worklog.ReferenceError
			Expect(errors.As(err, &ref)).To(BeTrue())
		})
	})

	Describe("topics", func() {
		var topicID int64
		var memoryIDs []int64

		BeforeEach(func() {
			memoryIDs = storeMemories(2)

			result, err := svc.CreateTopic(ctx, worklog.CreateTopicParams{
				TopicName: "observability",
				Summary:   "metrics, logs, traces",
			})
			Expect(err).NotTo(HaveOccurred())
			topicID = result.ID
		})

		It("rejects a duplicate topic name", func() {
			_, err := svc.CreateTopic(ctx, worklog.CreateTopicParams{TopicName: "observability"})
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("adds entries and maintains the entry count", func() {
			_, err := svc.AddTopicEntry(ctx, topicID, "memories", memoryIDs[0], 0.9)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.AddTopicEntry(ctx, topicID, "memories", memoryIDs[1], 0.4)
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.GetTopicEntries(ctx, topicID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Count).To(Equal(2))
			Expect(result.Topic["entry_count"]).To(BeEquivalentTo(2))

			// Memberships come back by relevance, annotated with labels.
			Expect(result.Entries[0]["entry_id"]).To(BeEquivalentTo(memoryIDs[0]))
			Expect(result.Entries[0]["label"]).To(Equal("node-0"))
		})

		It("rejects a duplicate membership", func() {
			_, err := svc.AddTopicEntry(ctx, topicID, "memories", memoryIDs[0], 1)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.AddTopicEntry(ctx, topicID, "memories", memoryIDs[0], 1)
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("rejects a membership for a missing topic or entry", func() {
			var ref worklog.ReferenceError

			_, err := svc.AddTopicEntry(ctx, 9999, "memories", memoryIDs[0], 1)
			Expect(errors.As(err, &ref)).To(BeTrue())

			_, err = svc.AddTopicEntry(ctx, topicID, "memories", 9999, 1)
			Expect(errors.As(err, &ref)).To(BeTrue())
		})

		It("updates summaries and stamps last_curated", func() {
			summary := "revised summary"
			Expect(svc.UpdateTopicSummary(ctx, worklog.UpdateTopicSummaryParams{
				TopicID: topicID,
				Summary: &summary,
			})).To(Succeed())

			row, err := backend.FetchOne(ctx,
				"SELECT summary, last_curated FROM topic_index WHERE id = ?", topicID)
			Expect(err).NotTo(HaveOccurred())
			Expect(row["summary"]).To(Equal("revised summary"))
			Expect(row["last_curated"]).NotTo(BeNil())
		})
	})

	Describe("duplicate candidates", func() {
		var ids []int64

		BeforeEach(func() {
			ids = storeMemories(2)
		})

		It("normalizes the pair order", func() {
			_, err := svc.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
				Table:           "memories",
				EntryID1:        ids[1],
				EntryID2:        ids[0],
				SimilarityScore: 0.9,
			})
			Expect(err).NotTo(HaveOccurred())

			// Reporting the same pair in the other order is the same candidate.
			_, err = svc.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
				Table:    "memories",
				EntryID1: ids[0],
				EntryID2: ids[1],
			})
			var conflict worklog.ConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
		})

		It("rejects a self-duplicate", func() {
			_, err := svc.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
				Table:    "memories",
				EntryID1: ids[0],
				EntryID2: ids[0],
			})
			expectValidation(err)
		})

		It("records the review outcome", func() {
			result, err := svc.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
				Table:    "memories",
				EntryID1: ids[0],
				EntryID2: ids[1],
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.ReviewDuplicate(ctx, result.ID, "dismissed", "")).To(Succeed())

			row, err := backend.FetchOne(ctx,
				"SELECT status, reviewed_by, reviewed_at FROM duplicate_candidates WHERE id = ?", result.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(row["status"]).To(Equal("dismissed"))
			Expect(row["reviewed_by"]).To(Equal("alpha"))
			Expect(row["reviewed_at"]).NotTo(BeNil())
		})

		It("rejects unknown review statuses", func() {
			Expect(svc.ReviewDuplicate(ctx, 1, "maybe", "")).To(
				MatchError(ContainSubstring("pending, confirmed, dismissed, merged")))
		})
	})
})
