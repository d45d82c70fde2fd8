package invoice

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodeDelta", func() {
	var (
		raw     string
		decoded Decoded
		err     error
	)

	JustBeforeEach(func() {
		decoded, err = DecodeDelta([]byte(raw))
	})

	When("decoding a full model reply", func() {
		BeforeEach(func() {
			raw = `{
				"fullName": "Ana Pérez", "to": "Acme", "abn": "51 824 753 556",
				"invoiceNumber": 12, "date": "12/02/2026", "rate": "35",
				"items": [
					{"type": "work", "day": "Mon", "hours": 7.5, "rate": 35},
					{"type": "purchase", "description": "Paint", "quantity": "2", "unitPrice": "$19,90"}
				],
				"note": "Thanks"
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("is recognized", func() {
			Expect(decoded.Recognized).To(BeTrue())
		})

		It("keeps aliases for Merge", func() {
			Expect(*decoded.Delta.To).To(Equal("Acme"))
			Expect(decoded.Delta.ClientName).To(BeNil())
		})

		It("stringifies numeric identity fields", func() {
			Expect(*decoded.Delta.InvoiceNumber).To(Equal("12"))
		})

		It("normalizes day-first dates", func() {
			Expect(*decoded.Delta.Date).To(Equal("2026-02-12"))
		})

		It("coerces the rate", func() {
			Expect(decoded.Delta.Rate.Equal(dec("35"))).To(BeTrue())
		})

		It("coerces both item variants", func() {
			Expect(decoded.Delta.Items).To(HaveLen(2))
			Expect(decoded.Delta.Items[0].Hours.Equal(dec("7.5"))).To(BeTrue())
			Expect(decoded.Delta.Items[1].Type).To(Equal(ItemPurchase))
			Expect(decoded.Delta.Items[1].UnitPrice.Equal(dec("19.90"))).To(BeTrue())
		})

		It("maps note to notes", func() {
			Expect(*decoded.Delta.Notes).To(Equal("Thanks"))
		})
	})

	When("item numbers are not numeric", func() {
		BeforeEach(func() {
			raw = `{"items": [{"day": "Tue", "hours": "lots", "rate": null}]}`
		})

		It("coerces them to zero and defaults the type", func() {
			Expect(err).NotTo(HaveOccurred())
			item := decoded.Delta.Items[0]
			Expect(item.Type).To(Equal(ItemWork))
			Expect(item.Hours.IsZero()).To(BeTrue())
			Expect(item.Rate.IsZero()).To(BeTrue())
		})
	})

	When("blank strings are present", func() {
		BeforeEach(func() {
			raw = `{"clientName": "  ", "abn": ""}`
		})

		It("treats them as absent", func() {
			Expect(decoded.Recognized).To(BeTrue())
			Expect(decoded.Delta.IsEmpty()).To(BeTrue())
		})
	})

	When("the object has no known keys", func() {
		BeforeEach(func() {
			raw = `{"message": "What is your ABN?"}`
		})

		It("is not recognized", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded.Recognized).To(BeFalse())
			Expect(decoded.Ignored).To(ConsistOf("message"))
		})
	})

	When("the date cannot be parsed", func() {
		BeforeEach(func() {
			raw = `{"date": "next tuesday"}`
		})

		It("ignores the field", func() {
			Expect(decoded.Delta.Date).To(BeNil())
			Expect(decoded.Ignored).To(ContainElement("date"))
		})
	})

	When("the input is not an object", func() {
		BeforeEach(func() {
			raw = `["Mon", 8]`
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("DecodeEdit", func() {
	It("keeps blank strings so the edit clears the fields", func() {
		decoded, err := DecodeEdit([]byte(`{"notes": "", "clientEmail": "  "}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Delta.IsEmpty()).To(BeFalse())

		state := Merge(State{Notes: "old note", ClientEmail: "a@b.c", ClientName: "Acme"}, decoded.Delta)
		Expect(state.Notes).To(BeEmpty())
		Expect(state.ClientEmail).To(BeEmpty())
		Expect(state.ClientName).To(Equal("Acme"))
	})

	It("still ignores a blank date", func() {
		decoded, err := DecodeEdit([]byte(`{"date": ""}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Delta.Date).To(BeNil())
	})
})

var _ = DescribeTable("numbers written as strings",
	func(in, want string) {
		decoded, err := DecodeDelta([]byte(`{"rate": "` + in + `"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Delta.Rate).NotTo(BeNil())
		Expect(decoded.Delta.Rate.Equal(dec(want))).To(BeTrue(), "got %s", decoded.Delta.Rate)
	},
	Entry("plain", "35", "35"),
	Entry("decimal comma", "7,5", "7.5"),
	Entry("decimal comma with cents", "$19,90", "19.90"),
	Entry("thousands separator", "1,234", "1234"),
	Entry("several thousands groups", "1,234,567", "1234567"),
	Entry("grouping with decimal point", "1,234.50", "1234.50"),
	Entry("dotted grouping with decimal comma", "1.234,50", "1234.50"),
	Entry("spaces", "1 234", "1234"),
)

var _ = Describe("ValidateDelta", func() {
	It("accepts a well-formed delta", func() {
		Expect(ValidateDelta([]byte(`{"clientName": "Acme", "items": [{"type": "work", "day": "Mon", "hours": 8, "rate": "35"}]}`))).To(Succeed())
	})

	It("accepts aliases and synonyms", func() {
		Expect(ValidateDelta([]byte(`{"to": "Acme", "yourName": "Ana", "note": "hi"}`))).To(Succeed())
	})

	It("rejects unknown keys", func() {
		Expect(ValidateDelta([]byte(`{"clientNme": "Acme"}`))).NotTo(Succeed())
	})

	It("rejects items of an unknown shape", func() {
		Expect(ValidateDelta([]byte(`{"items": [{"type": "refund", "amount": 3}]}`))).NotTo(Succeed())
	})
})

var _ = Describe("Delta JSON", func() {
	It("omits absent fields", func() {
		b, err := json.Marshal(Delta{ClientName: str("Acme")})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(MatchJSON(`{"clientName": "Acme"}`))
	})

	It("keeps an explicit empty item list through a round trip", func() {
		b, err := json.Marshal(Delta{Items: []LineItem{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(MatchJSON(`{"items": []}`))

		var d Delta
		Expect(json.Unmarshal(b, &d)).To(Succeed())
		Expect(d.Items).NotTo(BeNil())
		Expect(d.Items).To(BeEmpty())
	})

	It("restores an absent item list as nil", func() {
		var d Delta
		Expect(json.Unmarshal([]byte(`{"notes": "x"}`), &d)).To(Succeed())
		Expect(d.Items).To(BeNil())
		Expect(*d.Notes).To(Equal("x"))
	})
})
