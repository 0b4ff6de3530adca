package table_test

import (
	"fmt"
	"strings"

	"github.com/patricesweeney/analysis-jobs/pkg/table"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("column config", func() {
	Context("wide", func() {
		It("keeps the customer id and the feature columns", func() {
			t, err := table.ParseCSV(strings.NewReader("id,a,b,c\nc1,1,2,3\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(table.ColumnConfig{Format: table.FormatWide, CustomerIDColumn: "id", FeatureColumns: []string{"c", "a"}})
			Expect(err).To(BeNil())
			Expect(out.Columns).To(Equal([]string{"id", "c", "a"}))
			Expect(out.Rows[0]).To(Equal([]string{"c1", "3", "1"}))
		})

		It("keeps every column without feature columns", func() {
			t, err := table.ParseCSV(strings.NewReader("id,a\nc1,1\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(table.ColumnConfig{Format: table.FormatWide, CustomerIDColumn: "id"})
			Expect(err).To(BeNil())
			Expect(out.Columns).To(Equal(t.Columns))
			Expect(out.Rows).To(Equal(t.Rows))
			Expect(out.IDColumn).To(Equal("id"))
		})

		It("returns the table untouched without any config", func() {
			t, err := table.ParseCSV(strings.NewReader("id,a\nc1,1\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(table.ColumnConfig{Format: table.FormatWide})
			Expect(err).To(BeNil())
			Expect(out).To(BeIdenticalTo(t))
		})

		It("leaves a numeric customer id out of the numeric columns", func() {
			t, err := table.ParseCSV(strings.NewReader("customer_id,a,b\n101,1,2\n102,3,4\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(table.ColumnConfig{Format: table.FormatWide, CustomerIDColumn: "customer_id", FeatureColumns: []string{"a", "b"}})
			Expect(err).To(BeNil())
			Expect(out.Columns).To(Equal([]string{"customer_id", "a", "b"}))
			columns, values := out.NumericMatrix()
			Expect(columns).To(Equal([]string{"a", "b"}))
			Expect(values).To(Equal([][]float64{{1, 2}, {3, 4}}))
		})

		It("fails on an unknown customer id column", func() {
			t, err := table.ParseCSV(strings.NewReader("id,a\nc1,1\n"))
			Expect(err).To(BeNil())

			_, err = t.Apply(table.ColumnConfig{Format: table.FormatWide, CustomerIDColumn: "customer"})
			Expect(err).To(MatchError(ContainSubstring(`column "customer" not found`)))
		})

		It("fails on an unknown column", func() {
			t, err := table.ParseCSV(strings.NewReader("id,a\nc1,1\n"))
			Expect(err).To(BeNil())

			_, err = t.Apply(table.ColumnConfig{FeatureColumns: []string{"missing"}})
			Expect(err).To(MatchError(ContainSubstring(`column "missing" not found`)))
		})
	})

	Context("long", func() {
		cfg := table.ColumnConfig{
			Format:             table.FormatLong,
			CustomerIDColumn:   "customer",
			FeatureNameColumn:  "event",
			FeatureValueColumn: "count",
		}

		It("pivots into one row per customer", func() {
			t, err := table.ParseCSV(strings.NewReader("customer,event,count\nc1,login,2\nc2,login,1\nc1,export,4\nc1,login,3\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(cfg)
			Expect(err).To(BeNil())
			Expect(out.Columns).To(Equal([]string{"customer", "login", "export"}))
			Expect(out.Rows).To(Equal([][]string{
				{"c1", "5", "4"},
				{"c2", "1", ""},
			}))
			Expect(out.NumericColumns()).To(Equal([]string{"login", "export"}))
		})

		It("leaves a numeric customer id out of the numeric columns", func() {
			t, err := table.ParseCSV(strings.NewReader("customer,event,count\n101,seats,3\n101,logins,10\n102,seats,1\n"))
			Expect(err).To(BeNil())

			out, err := t.Apply(cfg)
			Expect(err).To(BeNil())
			Expect(out.IDColumn).To(Equal("customer"))
			columns, _ := out.NumericMatrix()
			Expect(columns).To(Equal([]string{"seats", "logins"}))
			Expect(columns).NotTo(ContainElement("customer"))
		})

		It("pivots many customers keeping first seen order", func() {
			var b strings.Builder
			b.WriteString("customer,event,count\n")
			const customers = 20000
			for i := range customers {
				for _, event := range []string{"login", "export", "share"} {
					fmt.Fprintf(&b, "c%d,%s,1\n", i, event)
				}
			}
			for i := range customers {
				fmt.Fprintf(&b, "c%d,login,1\n", i)
			}
			t, err := table.ParseCSV(strings.NewReader(b.String()))
			Expect(err).To(BeNil())

			out, err := t.Apply(cfg)
			Expect(err).To(BeNil())
			Expect(out.Columns).To(Equal([]string{"customer", "login", "export", "share"}))
			Expect(out.Rows).To(HaveLen(customers))
			Expect(out.Rows[0]).To(Equal([]string{"c0", "2", "1", "1"}))
			Expect(out.Rows[customers-1][0]).To(Equal(fmt.Sprintf("c%d", customers-1)))
		})

		It("fails on non numeric values", func() {
			t, err := table.ParseCSV(strings.NewReader("customer,event,count\nc1,login,many\n"))
			Expect(err).To(BeNil())

			_, err = t.Apply(cfg)
			Expect(err).NotTo(BeNil())
		})

		It("requires all three columns", func() {
			t, err := table.ParseCSV(strings.NewReader("customer,event,count\nc1,login,1\n"))
			Expect(err).To(BeNil())

			_, err = t.Apply(table.ColumnConfig{Format: table.FormatLong, CustomerIDColumn: "customer"})
			Expect(err).NotTo(BeNil())
		})
	})

	It("rejects an unknown format", func() {
		t, err := table.ParseCSV(strings.NewReader("a\n1\n"))
		Expect(err).To(BeNil())

		_, err = t.Apply(table.ColumnConfig{Format: "matrix"})
		Expect(err).NotTo(BeNil())
	})
})
