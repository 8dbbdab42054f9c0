package worklog_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/worklog"
)

var _ = Describe("Curation", func() {
	var (
		svc     *worklog.Service
		backend database.Backend
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc, backend = newTestService(worklog.Config{AgentName: "alpha"})
	})

	// alertIndicators collects which indicators raised an alert.
	alertIndicators := func(report *worklog.CurationReport) []string {
		out := make([]string, 0, len(report.Alerts))
		for _, alert := range report.Alerts {
			out = append(out, alert.Indicator)
		}

		return out
	}

	Describe("CurationStatus", func() {
		It("reports a healthy empty store without alerts", func() {
			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Tables).To(HaveLen(len(worklog.Tables)))
			Expect(report.OrphanRate).To(BeZero())
			Expect(report.TagCoverage).To(BeEquivalentTo(100))
			Expect(report.PendingDuplicates).To(BeZero())
			Expect(report.StaleStaging).To(BeZero())
			Expect(report.Alerts).To(BeEmpty())
		})

		It("computes the orphan rate over important memories", func() {
			var ids []int64
			for i := 0; i < 3; i++ {
				result, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
					Key:        fmt.Sprintf("key-%d", i),
					Content:    "c",
					Importance: 8,
					Tags:       "curation",
				})
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, result.ID)
			}

			// Connect two of the three; the third stays orphaned.
			_, err := svc.AddRelationship(ctx, worklog.AddRelationshipParams{
				SourceTable:      "memories",
				SourceID:         ids[0],
				TargetTable:      "memories",
				TargetID:         ids[1],
				RelationshipType: "relates_to",
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OrphanRate).To(BeNumerically("~", 33.3, 0.1))
			Expect(alertIndicators(report)).To(ConsistOf("orphan_rate"))
		})

		It("ignores low-importance memories in the orphan rate", func() {
			_, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key: "minor", Content: "c", Importance: 3, Tags: "curation",
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.OrphanRate).To(BeZero())
		})

		It("measures tag coverage across the entry tables", func() {
			_, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key: "tagged", Content: "c", Tags: "go",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key: "untagged", Content: "c",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.LogEntry(ctx, worklog.LogEntryParams{
				Title: "work", TaskType: "maintenance", Tags: "go",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.LogEntry(ctx, worklog.LogEntryParams{
				Title: "more work", TaskType: "maintenance",
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TagCoverage).To(BeEquivalentTo(50))

			// Coverage at the threshold does not alert; only below it.
			Expect(alertIndicators(report)).NotTo(ContainElement("tag_coverage"))
		})

		It("flags coverage below the threshold", func() {
			_, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
				Key: "untagged", Content: "c",
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TagCoverage).To(BeZero())
			Expect(alertIndicators(report)).To(ContainElement("tag_coverage"))
		})

		It("counts pending duplicates", func() {
			var ids []int64
			for i := 0; i < 2; i++ {
				result, err := svc.StoreMemory(ctx, worklog.StoreMemoryParams{
					Key: fmt.Sprintf("key-%d", i), Content: "c", Tags: "go",
				})
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, result.ID)
			}

			result, err := svc.ReportDuplicate(ctx, worklog.ReportDuplicateParams{
				Table: "memories", EntryID1: ids[0], EntryID2: ids[1],
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.PendingDuplicates).To(BeEquivalentTo(1))

			// A reviewed candidate drops out of the pending count.
			Expect(svc.ReviewDuplicate(ctx, result.ID, "dismissed", "")).To(Succeed())

			report, err = svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.PendingDuplicates).To(BeZero())
		})

		It("counts important staging memories past the age threshold", func() {
			_, err := backend.Execute(ctx,
				`INSERT INTO memories (key, content, importance, status, tags, created_at)
				 VALUES (?, ?, ?, ?, ?, datetime('now', '-20 days'))`,
				"stale", "c", 8, "staging", "go")
			Expect(err).NotTo(HaveOccurred())
			_, err = backend.Execute(ctx,
				`INSERT INTO memories (key, content, importance, status, tags, created_at)
				 VALUES (?, ?, ?, ?, ?, datetime('now', '-20 days'))`,
				"stale-minor", "c", 4, "staging", "go")
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.StaleStaging).To(BeEquivalentTo(1))
		})
	})

	Describe("RecordCuration", func() {
		It("appends runs and aggregates them in the status report", func() {
			_, err := svc.RecordCuration(ctx, worklog.RecordCurationParams{
				Operation:  "tag_normalization",
				Stats:      map[string]any{"normalized": 12},
				DurationMs: 340,
				Success:    true,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RecordCuration(ctx, worklog.RecordCurationParams{
				Operation:    "tag_normalization",
				Success:      false,
				ErrorMessage: "taxonomy lookup timed out",
			})
			Expect(err).NotTo(HaveOccurred())

			report, err := svc.CurationStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Operations).To(HaveLen(1))
			Expect(report.Operations[0].Operation).To(Equal("tag_normalization"))
			Expect(report.Operations[0].Runs).To(BeEquivalentTo(2))
			Expect(report.Operations[0].Successes).To(BeEquivalentTo(1))
		})

		It("stores the stats as JSON", func() {
			result, err := svc.RecordCuration(ctx, worklog.RecordCurationParams{
				Operation: "duplicate_detection",
				Stats:     map[string]any{"pairs": 3},
				Success:   true,
			})
			Expect(err).NotTo(HaveOccurred())

			row, err := backend.FetchOne(ctx,
				"SELECT stats FROM curation_history WHERE id = ?", result.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(row["stats"]).To(MatchJSON(`{"pairs": 3}`))
		})

		It("rejects unknown operations", func() {
			_, err := svc.RecordCuration(ctx, worklog.RecordCurationParams{
				Operation: "spring_cleaning",
			})
			expectValidation(err)
		})
	})
})
