package ledger

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("CanCommit", func() {
	var (
		documentName string
		pageNumber   int
		verified     string
		now          time.Time
		record       Record
		err          error
	)

	BeforeEach(func() {
		documentName = "tolls-march.pdf"
		pageNumber = 3
		verified = "12.50"
		now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		record, err = CanCommit(documentName, pageNumber, verified, now)
	})

	When("a verified value and document context are present", func() {
		It("should produce an immutable record", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.DocumentName).To(Equal("tolls-march.pdf"))
			Expect(record.PageNumber).To(Equal(3))
			Expect(record.TotalAmount.StringFixed(2)).To(Equal("12.50"))
			Expect(record.Timestamp).To(Equal(now))
		})
	})

	When("the verified value is empty", func() {
		BeforeEach(func() {
			verified = ""
		})

		It("should return ErrMissingVerification", func() {
			Expect(err).To(MatchError(ErrMissingVerification))
		})
	})

	When("the verified value is only whitespace", func() {
		BeforeEach(func() {
			verified = "   "
		})

		It("should return ErrMissingVerification", func() {
			Expect(err).To(MatchError(ErrMissingVerification))
		})
	})

	When("no document is open", func() {
		BeforeEach(func() {
			documentName = ""
		})

		It("should return ErrMissingDocument", func() {
			Expect(err).To(MatchError(ErrMissingDocument))
		})
	})

	When("the page number is invalid", func() {
		BeforeEach(func() {
			pageNumber = 0
		})

		It("should return ErrMissingDocument", func() {
			Expect(err).To(MatchError(ErrMissingDocument))
		})
	})

	When("the verified value carries currency formatting", func() {
		BeforeEach(func() {
			verified = "$1,234.50"
		})

		It("should normalize it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.TotalAmount.StringFixed(2)).To(Equal("1234.50"))
		})
	})

	When("the verified value is not a number", func() {
		BeforeEach(func() {
			verified = "twelve"
		})

		It("should return ErrInvalidAmount instead of writing a zero total", func() {
			Expect(err).To(MatchError(ErrInvalidAmount))
		})
	})
})

var _ = Describe("Compare", func() {
	It("should consider totals within a cent of each other matching", func() {
		calculated := decimal.NewFromFloat(26.00)
		verified := decimal.NewFromFloat(26.005)
		comparison := Compare(calculated, verified)
		Expect(comparison.Match).To(BeTrue())
	})

	It("should report the signed difference on a mismatch", func() {
		calculated := decimal.NewFromFloat(26.00)
		verified := decimal.NewFromFloat(25.00)
		comparison := Compare(calculated, verified)
		Expect(comparison.Match).To(BeFalse())
		Expect(comparison.Difference.StringFixed(2)).To(Equal("1.00"))
	})
})
