package invoice

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Merge", func() {
	var (
		state  State
		delta  Delta
		merged State
	)

	BeforeEach(func() {
		state = NewState("3", time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC))
		state.FullName = "Ana Pérez"
		state.ABN = "51 824 753 556"
		state.ClientName = "Old Co"
		state.Notes = "Pay within 14 days"
		state.Items = []LineItem{
			WorkItem("Mon", dec("8"), dec("30")),
			PurchaseItem("Gloves", dec("2"), dec("12.50")),
			WorkItem("Tue", dec("4"), dec("30")),
		}
		delta = Delta{}
	})

	JustBeforeEach(func() {
		merged = Merge(state, delta)
	})

	When("the delta is empty", func() {
		It("leaves every field unchanged", func() {
			Expect(merged).To(Equal(state))
		})
	})

	When("clientName is present", func() {
		BeforeEach(func() {
			delta.ClientName = str("Acme")
		})

		It("overwrites the client name", func() {
			Expect(merged.ClientName).To(Equal("Acme"))
		})

		It("does not modify the input state", func() {
			Expect(state.ClientName).To(Equal("Old Co"))
		})

		It("leaves unrelated fields untouched", func() {
			Expect(merged.FullName).To(Equal("Ana Pérez"))
			Expect(merged.Items).To(Equal(state.Items))
			Expect(merged.Notes).To(Equal(state.Notes))
		})
	})

	Describe("aliases", func() {
		When("to is present without clientName", func() {
			BeforeEach(func() {
				delta.To = str("Builders Pty Ltd")
			})

			It("sets clientName", func() {
				Expect(merged.ClientName).To(Equal("Builders Pty Ltd"))
			})
		})

		When("company is present without clientName", func() {
			BeforeEach(func() {
				delta.Company = str("Company Co")
			})

			It("sets clientName", func() {
				Expect(merged.ClientName).To(Equal("Company Co"))
			})
		})

		When("to and clientName are both present", func() {
			BeforeEach(func() {
				delta.To = str("Ignored")
				delta.ClientName = str("Direct")
			})

			It("prefers the direct field", func() {
				Expect(merged.ClientName).To(Equal("Direct"))
			})
		})

		When("yourName and lastName are present", func() {
			BeforeEach(func() {
				delta.YourName = str("Juan")
				delta.LastName = str("García")
			})

			It("combines them into fullName", func() {
				Expect(merged.FullName).To(Equal("Juan García"))
			})
		})

		When("yourName is present alone", func() {
			BeforeEach(func() {
				delta.YourName = str("Juan")
			})

			It("uses it as fullName", func() {
				Expect(merged.FullName).To(Equal("Juan"))
			})
		})

		When("fullName is present with yourName", func() {
			BeforeEach(func() {
				delta.FullName = str("Direct Name")
				delta.YourName = str("Juan")
			})

			It("prefers the direct field", func() {
				Expect(merged.FullName).To(Equal("Direct Name"))
			})
		})
	})

	When("a top-level rate is present", func() {
		BeforeEach(func() {
			rate := dec("45")
			delta.Rate = &rate
		})

		It("updates every work item", func() {
			Expect(merged.Items[0].Rate.Equal(dec("45"))).To(BeTrue())
			Expect(merged.Items[2].Rate.Equal(dec("45"))).To(BeTrue())
		})

		It("leaves purchase items untouched", func() {
			Expect(merged.Items[1]).To(Equal(state.Items[1]))
		})

		It("does not change the input items", func() {
			Expect(state.Items[0].Rate.Equal(dec("30"))).To(BeTrue())
		})
	})

	When("items are present", func() {
		BeforeEach(func() {
			delta.Items = []LineItem{
				{Day: "Fri", Hours: dec("6"), Rate: dec("-2")},
			}
		})

		It("replaces the sequence", func() {
			Expect(merged.Items).To(HaveLen(1))
			Expect(merged.Items[0].Day).To(Equal("Fri"))
		})

		It("coerces each item", func() {
			Expect(merged.Items[0].Type).To(Equal(ItemWork))
			Expect(merged.Items[0].Rate.IsZero()).To(BeTrue())
		})
	})

	When("items are present but empty", func() {
		BeforeEach(func() {
			delta.Items = []LineItem{}
		})

		It("clears the sequence", func() {
			Expect(merged.Items).To(BeEmpty())
		})
	})

	When("notes are present", func() {
		BeforeEach(func() {
			delta.Notes = str("Thanks!")
		})

		It("overwrites the notes", func() {
			Expect(merged.Notes).To(Equal("Thanks!"))
		})
	})
})

var _ = Describe("Replay", func() {
	It("applies deltas in order with the last one winning", func() {
		initial := NewState("1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		state := Replay(initial,
			Delta{ClientName: str("First")},
			Delta{FullName: str("Ana")},
			Delta{ClientName: str("Second")},
		)
		Expect(state.ClientName).To(Equal("Second"))
		Expect(state.FullName).To(Equal("Ana"))
	})

	It("matches a disjoint merge in either order", func() {
		initial := NewState("1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		a := Delta{ClientName: str("Acme")}
		b := Delta{ABN: str("123")}
		Expect(Replay(initial, a, b)).To(Equal(Replay(initial, b, a)))
	})

	It("returns the initial state with no deltas", func() {
		initial := NewState("9", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		Expect(Replay(initial)).To(Equal(initial))
	})
})
