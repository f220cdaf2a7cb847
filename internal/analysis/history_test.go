package analysis

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		db    *mockHistoryDB
		store *Store
	)

	BeforeEach(func() {
		db = &mockHistoryDB{}
		store = NewStore(db)
	})

	sample := func(id string) *Analysis {
		return &Analysis{
			ID:      id,
			Date:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Safe:    []string{"Water"},
			Rating:  90,
			Grade:   "A",
			Summary: "Fine.",
		}
	}

	Describe("Record", func() {
		It("prepends and persists the full sequence", func() {
			Expect(store.Record(sample("a"))).To(Succeed())
			Expect(store.Record(sample("b"))).To(Succeed())
			Expect(store.Record(sample("c"))).To(Succeed())

			all := store.All()
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal("c"))
			Expect(all[1].ID).To(Equal("b"))
			Expect(all[2].ID).To(Equal("a"))

			Expect(db.saves).To(Equal(3))
			Expect(db.saved[0].ID).To(Equal("c"))
		})

		When("persistence fails", func() {
			BeforeEach(func() {
				Expect(store.Record(sample("a"))).To(Succeed())
				db.saveErr = errors.New("disk full")
			})

			It("returns the error and keeps the previous sequence", func() {
				Expect(store.Record(sample("b"))).NotTo(Succeed())
				Expect(store.Len()).To(Equal(1))
				Expect(store.All()[0].ID).To(Equal("a"))
			})
		})
	})

	Describe("Load", func() {
		When("the persisted sequence exists", func() {
			BeforeEach(func() {
				db.saved = []*Analysis{sample("newest"), sample("older")}
				store.Load()
			})

			It("restores the sequence in order", func() {
				Expect(store.Len()).To(Equal(2))
				Expect(store.All()[0].ID).To(Equal("newest"))
				Expect(store.All()[1].ID).To(Equal("older"))
			})
		})

		When("nothing was persisted", func() {
			BeforeEach(func() {
				store.Load()
			})

			It("starts empty", func() {
				Expect(store.Len()).To(BeZero())
				Expect(store.All()).To(BeEmpty())
			})
		})

		When("the persisted data is corrupt", func() {
			BeforeEach(func() {
				db.loadErr = errors.New("unmarshaling history: unexpected end of JSON input")
				store.Load()
			})

			It("starts empty instead of failing", func() {
				Expect(store.Len()).To(BeZero())
			})

			It("can still record new analyses", func() {
				db.loadErr = nil
				Expect(store.Record(sample("a"))).To(Succeed())
				Expect(store.Len()).To(Equal(1))
			})
		})
	})

	Describe("Select", func() {
		BeforeEach(func() {
			Expect(store.Record(sample("a"))).To(Succeed())
			Expect(store.Record(sample("b"))).To(Succeed())
		})

		It("finds a prior record by id", func() {
			a, err := store.Select("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(a.ID).To(Equal("a"))
		})

		It("does not mutate the sequence", func() {
			_, err := store.Select("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Len()).To(Equal(2))
			Expect(store.All()[0].ID).To(Equal("b"))
		})

		It("returns an error for an unknown id", func() {
			_, err := store.Select("missing")
			Expect(err).To(MatchError(ContainSubstring("not found")))
		})
	})
})
