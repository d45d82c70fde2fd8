package extraction

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-chat/internal/invoice"
)

type dayHours struct {
	day   string
	hours string
	rate  string
}

func summarize(items []invoice.LineItem) []dayHours {
	out := make([]dayHours, 0, len(items))
	for _, item := range items {
		Expect(item.Type).To(Equal(invoice.ItemWork))
		Expect(item.Description).To(BeEmpty())
		out = append(out, dayHours{day: item.Day, hours: item.Hours.String(), rate: item.Rate.String()})
	}
	return out
}

var _ = Describe("Fallback", func() {
	var (
		text  string
		delta invoice.Delta
		err   error
	)

	JustBeforeEach(func() {
		delta, err = Fallback(text)
	})

	When("parsing the Spanish weekly summary", func() {
		BeforeEach(func() {
			text = "Lun 7.5, Mar 4.5, Jue 4.5, Vie 7.5 a 35 la hora"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates one work item per pair with the detected rate", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{
				{"Mon", "7.5", "35"},
				{"Tue", "4.5", "35"},
				{"Thu", "4.5", "35"},
				{"Fri", "7.5", "35"},
			}))
		})

		It("totals 840.00", func() {
			Expect(invoice.Total(delta.Items).StringFixed(2)).To(Equal("840.00"))
		})

		It("only sets items", func() {
			delta.Items = nil
			Expect(delta.IsEmpty()).To(BeTrue())
		})
	})

	When("the rate uses the suffix form", func() {
		BeforeEach(func() {
			text = "mie 6 y jue 3, 40 la hora"
		})

		It("detects the rate", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{
				{"Wed", "6", "40"},
				{"Thu", "3", "40"},
			}))
		})
	})

	When("the input is English and mixed case", func() {
		BeforeEach(func() {
			text = "MON 8, tue 6.25, Sat 2 at 50"
		})

		It("maps the day names", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{
				{"Mon", "8", "50"},
				{"Tue", "6.25", "50"},
				{"Sat", "2", "50"},
			}))
		})
	})

	When("a token is not a known day", func() {
		BeforeEach(func() {
			text = "Feriado 5, Dom 3 a 20"
		})

		It("keeps the token verbatim", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{
				{"Feriado", "5", "20"},
				{"Sun", "3", "20"},
			}))
		})
	})

	When("a label ends in a non-ASCII letter before a number", func() {
		BeforeEach(func() {
			text = "Montaña 8, Vie 5 a 30"
		})

		It("does not read the label ending as a rate clause", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{
				{"Montaña", "8", "30"},
				{"Fri", "5", "30"},
			}))
		})
	})

	When("no rate is given", func() {
		BeforeEach(func() {
			text = "Vie 8"
		})

		It("defaults the rate to zero", func() {
			Expect(delta.Items).To(HaveLen(1))
			Expect(delta.Items[0].Rate.Equal(decimal.Zero)).To(BeTrue())
		})
	})

	When("decimal commas are used", func() {
		BeforeEach(func() {
			text = "Lun 7,5 a 32,5"
		})

		It("parses them", func() {
			Expect(summarize(delta.Items)).To(Equal([]dayHours{{"Mon", "7.5", "32.5"}}))
		})
	})

	When("there are no day/hours pairs", func() {
		BeforeEach(func() {
			text = "hola, quiero una factura"
		})

		It("returns ErrNoParsableContent", func() {
			Expect(err).To(MatchError(ErrNoParsableContent))
		})
	})
})

var _ = Describe("DayCode", func() {
	DescribeTable("maps day names case-insensitively",
		func(token, code string) {
			Expect(DayCode(token)).To(Equal(code))
		},
		Entry("lun", "lun", "Mon"),
		Entry("MAR", "MAR", "Tue"),
		Entry("Mié", "Mié", "Wed"),
		Entry("mie", "mie", "Wed"),
		Entry("jue", "jue", "Thu"),
		Entry("Vie", "Vie", "Fri"),
		Entry("sab", "sab", "Sat"),
		Entry("dom", "dom", "Sun"),
		Entry("Mon", "Mon", "Mon"),
		Entry("tue", "tue", "Tue"),
		Entry("WED", "WED", "Wed"),
		Entry("thu", "thu", "Thu"),
		Entry("fri", "fri", "Fri"),
		Entry("sat", "sat", "Sat"),
		Entry("sun", "sun", "Sun"),
		Entry("unknown", "Holiday", "Holiday"),
	)
})
