package ledger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EditSession", func() {
	var (
		table   *Table
		session *EditSession
		id      string
	)

	BeforeEach(func() {
		table = NewTable()
		session = NewEditSession(table)
		var err error
		id, err = table.Add("5.50", "2")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should start idle", func() {
		Expect(session.Editing()).To(BeFalse())
	})

	Describe("Begin", func() {
		When("the item exists", func() {
			It("should stage the item's current values", func() {
				Expect(session.Begin(id)).To(Succeed())
				Expect(session.Editing()).To(BeTrue())

				target, ok := session.Target()
				Expect(ok).To(BeTrue())
				Expect(target).To(Equal(id))

				amount, quantity := session.Staged()
				Expect(amount).To(Equal("5.50"))
				Expect(quantity).To(Equal("2"))
			})
		})

		When("the item does not exist", func() {
			It("should return ErrNotFound and stay idle", func() {
				Expect(session.Begin("missing")).To(MatchError(ErrNotFound))
				Expect(session.Editing()).To(BeFalse())
			})
		})

		When("already editing another item", func() {
			It("should re-target without requiring a cancel", func() {
				other, err := table.Add("3.00", "5")
				Expect(err).NotTo(HaveOccurred())

				Expect(session.Begin(id)).To(Succeed())
				Expect(session.Begin(other)).To(Succeed())

				target, _ := session.Target()
				Expect(target).To(Equal(other))

				amount, quantity := session.Staged()
				Expect(amount).To(Equal("3.00"))
				Expect(quantity).To(Equal("5"))
			})
		})
	})

	Describe("Confirm", func() {
		BeforeEach(func() {
			Expect(session.Begin(id)).To(Succeed())
		})

		When("the input is valid", func() {
			It("should update the item and return to idle", func() {
				Expect(session.Confirm("7.00", "2")).To(Succeed())
				Expect(session.Editing()).To(BeFalse())

				item, ok := table.Get(id)
				Expect(ok).To(BeTrue())
				Expect(item.Subtotal.StringFixed(2)).To(Equal("14.00"))
			})
		})

		When("the input is invalid", func() {
			It("should report ErrInvalidInput and stay in editing mode", func() {
				Expect(session.Confirm("bad", "2")).To(MatchError(ErrInvalidInput))
				Expect(session.Editing()).To(BeTrue())

				item, _ := table.Get(id)
				Expect(item.Amount.StringFixed(2)).To(Equal("5.50"))
			})
		})

		When("the target was deleted mid-edit", func() {
			It("should report ErrNotFound and return to idle", func() {
				table.Delete(id)
				Expect(session.Confirm("7.00", "2")).To(MatchError(ErrNotFound))
				Expect(session.Editing()).To(BeFalse())
			})
		})

		When("no edit is in flight", func() {
			It("should report ErrNotFound", func() {
				session.Cancel()
				Expect(session.Confirm("7.00", "2")).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("Cancel", func() {
		It("should discard staged input and leave the item unchanged", func() {
			Expect(session.Begin(id)).To(Succeed())
			session.Cancel()
			Expect(session.Editing()).To(BeFalse())

			amount, quantity := session.Staged()
			Expect(amount).To(BeEmpty())
			Expect(quantity).To(BeEmpty())

			item, _ := table.Get(id)
			Expect(item.Amount.StringFixed(2)).To(Equal("5.50"))
		})
	})
})
