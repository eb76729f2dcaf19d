package ledger

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("Writer", func() {
	var (
		dir    string
		writer *Writer
		now    time.Time
	)

	record := func(document string, page int, total string) Record {
		amount, err := decimal.NewFromString(total)
		Expect(err).NotTo(HaveOccurred())
		return Record{
			DocumentName: document,
			PageNumber:   page,
			TotalAmount:  amount,
			Timestamp:    now,
		}
	}

	workbookPath := func() string {
		return filepath.Join(dir, WorkbookName(now.Year()))
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writer = NewWriter()
		now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	})

	Describe("Append", func() {
		When("the workbook does not exist yet", func() {
			It("should create it and assign sequence 1", func() {
				confirmation, err := writer.Append(dir, record("a.pdf", 1, "12.50"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))
				Expect(confirmation.Workbook).To(Equal("Peajes 2026 Calculo.xlsx"))
				Expect(workbookPath()).To(BeAnExistingFile())
			})

			It("should scaffold the summary sheet with a title and headers", func() {
				_, err := writer.Append(dir, record("a.pdf", 1, "12.50"))
				Expect(err).NotTo(HaveOccurred())

				f, err := excelize.OpenFile(workbookPath())
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()

				rows, err := f.GetRows("Calculo")
				Expect(err).NotTo(HaveOccurred())
				Expect(rows).To(HaveLen(3))
				Expect(rows[0][0]).To(Equal("Calculo peajes 2026"))
				Expect(rows[1]).To(Equal([]string{"Numero de Peajes", "Total en BS"}))
				Expect(rows[2][0]).To(Equal("1"))
				Expect(rows[2][1]).To(Equal("12.5"))
			})
		})

		When("appending repeatedly", func() {
			It("should assign strictly increasing sequence numbers", func() {
				for i := 1; i <= 4; i++ {
					confirmation, err := writer.Append(dir, record("a.pdf", i, "10.00"))
					Expect(err).NotTo(HaveOccurred())
					Expect(confirmation.Sequence).To(Equal(i))
				}
			})

			It("should leave only the workbook in the target directory", func() {
				for i := 1; i <= 3; i++ {
					_, err := writer.Append(dir, record("a.pdf", i, "10.00"))
					Expect(err).NotTo(HaveOccurred())
				}

				names, err := os.ReadDir(dir)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).To(HaveLen(1))
				Expect(names[0].Name()).To(Equal("Peajes 2026 Calculo.xlsx"))
			})

			It("should keep both sheets at the same maximum sequence", func() {
				writer.Append(dir, record("a.pdf", 1, "10.00"))
				writer.Append(dir, record("a.pdf", 2, "20.00"))

				f, err := excelize.OpenFile(workbookPath())
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()

				summary, err := f.GetRows("Calculo")
				Expect(err).NotTo(HaveOccurred())
				detail, err := f.GetRows("Detalle")
				Expect(err).NotTo(HaveOccurred())

				Expect(summary[len(summary)-1][0]).To(Equal("2"))
				Expect(detail[len(detail)-1][0]).To(Equal("2"))
			})
		})

		It("should round-trip the record fields through the detail sheet", func() {
			_, err := writer.Append(dir, record("tolls-march.pdf", 3, "12.50"))
			Expect(err).NotTo(HaveOccurred())

			f, err := excelize.OpenFile(workbookPath())
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			rows, err := f.GetRows("Detalle")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0]).To(Equal([]string{"No.", "PDF Name", "Page Number", "Total Amount", "Timestamp"}))
			Expect(rows[1][0]).To(Equal("1"))
			Expect(rows[1][1]).To(Equal("tolls-march.pdf"))
			Expect(rows[1][2]).To(Equal("3"))
			Expect(rows[1][3]).To(Equal("12.5"))
			Expect(rows[1][4]).To(Equal("2026-03-14 10:30:00"))
		})

		When("the summary data rows were deleted out-of-band", func() {
			It("should fall back to sequence 1", func() {
				writer.Append(dir, record("a.pdf", 1, "10.00"))
				writer.Append(dir, record("a.pdf", 2, "20.00"))

				f, err := excelize.OpenFile(workbookPath())
				Expect(err).NotTo(HaveOccurred())
				Expect(f.RemoveRow("Calculo", 4)).To(Succeed())
				Expect(f.RemoveRow("Calculo", 3)).To(Succeed())
				Expect(f.SaveAs(workbookPath())).To(Succeed())
				f.Close()

				confirmation, err := writer.Append(dir, record("b.pdf", 1, "30.00"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))
			})
		})

		When("the summary sheet is missing entirely", func() {
			It("should recreate it and restart numbering", func() {
				writer.Append(dir, record("a.pdf", 1, "10.00"))

				f, err := excelize.OpenFile(workbookPath())
				Expect(err).NotTo(HaveOccurred())
				Expect(f.DeleteSheet("Calculo")).To(Succeed())
				Expect(f.SaveAs(workbookPath())).To(Succeed())
				f.Close()

				confirmation, err := writer.Append(dir, record("b.pdf", 1, "30.00"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))

				f, err = excelize.OpenFile(workbookPath())
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()
				rows, err := f.GetRows("Calculo")
				Expect(err).NotTo(HaveOccurred())
				Expect(rows[0][0]).To(Equal("Calculo peajes 2026"))
			})
		})

		When("records fall in different years", func() {
			It("should write to separate workbooks with independent numbering", func() {
				confirmation, err := writer.Append(dir, record("a.pdf", 1, "10.00"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))

				now = time.Date(2027, 1, 2, 9, 0, 0, 0, time.UTC)
				confirmation, err = writer.Append(dir, record("b.pdf", 1, "20.00"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))
				Expect(confirmation.Workbook).To(Equal("Peajes 2027 Calculo.xlsx"))

				Expect(filepath.Join(dir, "Peajes 2026 Calculo.xlsx")).To(BeAnExistingFile())
				Expect(filepath.Join(dir, "Peajes 2027 Calculo.xlsx")).To(BeAnExistingFile())
			})
		})

		When("the target directory does not exist", func() {
			It("should create it", func() {
				nested := filepath.Join(dir, "exports", "2026")
				confirmation, err := writer.Append(nested, record("a.pdf", 1, "10.00"))
				Expect(err).NotTo(HaveOccurred())
				Expect(confirmation.Sequence).To(Equal(1))
				Expect(filepath.Join(nested, confirmation.Workbook)).To(BeAnExistingFile())
			})
		})
	})
})

var _ = Describe("ProcessedDocuments", func() {
	var (
		dir    string
		writer *Writer
		now    time.Time
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		writer = NewWriter()
		now = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	})

	When("no workbook exists", func() {
		It("should return an empty set", func() {
			Expect(ProcessedDocuments(dir, 2026)).To(BeEmpty())
		})
	})

	When("records have been appended", func() {
		It("should return the distinct document names", func() {
			amount := decimal.NewFromFloat(10)
			writer.Append(dir, Record{DocumentName: "a.pdf", PageNumber: 1, TotalAmount: amount, Timestamp: now})
			writer.Append(dir, Record{DocumentName: "a.pdf", PageNumber: 2, TotalAmount: amount, Timestamp: now})
			writer.Append(dir, Record{DocumentName: "b.pdf", PageNumber: 1, TotalAmount: amount, Timestamp: now})

			processed := ProcessedDocuments(dir, 2026)
			Expect(processed).To(HaveLen(2))
			Expect(processed).To(HaveKey("a.pdf"))
			Expect(processed).To(HaveKey("b.pdf"))
		})

		It("should scope the scan to the requested year", func() {
			amount := decimal.NewFromFloat(10)
			writer.Append(dir, Record{DocumentName: "a.pdf", PageNumber: 1, TotalAmount: amount, Timestamp: now})
			Expect(ProcessedDocuments(dir, 2025)).To(BeEmpty())
		})
	})
})
