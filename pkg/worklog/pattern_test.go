package worklog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/worklog"
)

var _ = Describe("EscapePattern", func() {
	It("wraps a plain term for substring matching", func() {
		Expect(worklog.EscapePattern("docker")).To(Equal("%docker%"))
	})

	It("escapes percent signs", func() {
		Expect(worklog.EscapePattern("100%")).To(Equal(`%100\%%`))
	})

	It("escapes underscores", func() {
		Expect(worklog.EscapePattern("my_var")).To(Equal(`%my\_var%`))
	})

	It("escapes backslashes before they can escape anything else", func() {
		Expect(worklog.EscapePattern(`C:\temp`)).To(Equal(`%C:\\temp%`))
	})

	It("handles a term that is nothing but metacharacters", func() {
		Expect(worklog.EscapePattern(`%_\`)).To(Equal(`%\%\_\\%`))
	})

	It("wraps the empty term into a match-all pattern", func() {
		Expect(worklog.EscapePattern("")).To(Equal("%%"))
	})
})
