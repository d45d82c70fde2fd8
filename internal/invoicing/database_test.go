package invoicing

import (
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-chat/internal/extraction"
	"github.com/zombor/invoice-chat/internal/invoice"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	sessionAt := func(id string, created time.Time) *Session {
		state := invoice.NewState("3", created)
		state.ClientName = "Acme"
		return &Session{
			ID:         id,
			Initial:    invoice.NewState("3", created),
			State:      state,
			Transcript: extraction.Utterance("el cliente es Acme"),
			Deltas: []invoice.Delta{
				{ClientName: str("Acme")},
				{Items: []invoice.LineItem{}},
			},
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	Describe("sessions", func() {
		var created time.Time

		BeforeEach(func() {
			created = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
			Expect(db.SaveSession(sessionAt("s1", created))).To(Succeed())
		})

		It("round-trips a session", func() {
			session, err := db.GetSession("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.State.ClientName).To(Equal("Acme"))
			Expect(session.Transcript).To(Equal(extraction.Utterance("el cliente es Acme")))
			Expect(session.CreatedAt.Equal(created)).To(BeTrue())
		})

		It("keeps absent and empty item lists apart in the delta log", func() {
			session, err := db.GetSession("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Deltas).To(HaveLen(2))
			Expect(session.Deltas[0].Items).To(BeNil())
			Expect(session.Deltas[1].Items).NotTo(BeNil())
			Expect(session.Deltas[1].Items).To(BeEmpty())
		})

		It("replays to the stored state", func() {
			session, err := db.GetSession("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(invoice.Replay(session.Initial, session.Deltas...).ClientName).To(Equal("Acme"))
		})

		It("returns ErrNotFound for a missing session", func() {
			_, err := db.GetSession("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("finds the latest session", func() {
			Expect(db.SaveSession(sessionAt("s2", created.Add(time.Hour)))).To(Succeed())
			Expect(db.SaveSession(sessionAt("s0", created.Add(-time.Hour)))).To(Succeed())

			latest, err := db.LatestSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.ID).To(Equal("s2"))
		})
	})

	When("there are no sessions", func() {
		It("returns no latest session", func() {
			latest, err := db.LatestSession()
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(BeNil())
		})
	})

	Describe("invoices", func() {
		BeforeEach(func() {
			Expect(db.SaveInvoice(&IssuedInvoice{ID: "i1", InvoiceNumber: "1", ClientName: "Acme", Total: dec("857.50")})).To(Succeed())
			Expect(db.SaveInvoice(&IssuedInvoice{ID: "i2", InvoiceNumber: "2", ClientName: "Globex"})).To(Succeed())
		})

		It("gets an invoice", func() {
			issued, err := db.GetInvoice("i1")
			Expect(err).NotTo(HaveOccurred())
			Expect(issued.Total.StringFixed(2)).To(Equal("857.50"))
		})

		It("lists invoices", func() {
			invoices, err := db.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(2))
		})

		It("returns ErrNotFound for a missing invoice", func() {
			_, err := db.GetInvoice("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("invoice numbers", func() {
		It("starts at 1", func() {
			Expect(db.NextInvoiceNumber()).To(Equal(1))
		})

		It("moves past an issued number", func() {
			Expect(db.AdvanceInvoiceNumber(41)).To(Equal(42))
			Expect(db.NextInvoiceNumber()).To(Equal(42))
		})

		It("never moves backwards", func() {
			Expect(db.AdvanceInvoiceNumber(9)).To(Equal(10))
			Expect(db.AdvanceInvoiceNumber(4)).To(Equal(10))
			Expect(db.NextInvoiceNumber()).To(Equal(10))
		})

		It("keeps the highest number under concurrent renders", func() {
			var wg sync.WaitGroup
			for n := 1; n <= 20; n++ {
				wg.Add(1)
				go func(n int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := db.AdvanceInvoiceNumber(n)
					Expect(err).NotTo(HaveOccurred())
				}(n)
			}
			wg.Wait()
			Expect(db.NextInvoiceNumber()).To(Equal(21))
		})

		It("survives reopening the database", func() {
			Expect(db.AdvanceInvoiceNumber(6)).To(Equal(7))
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.NextInvoiceNumber()).To(Equal(7))
		})
	})
})
