package sqltext

import (
	"io"
	"strings"
	"testing"

	"github.com/snapctl/snapctl/internal/token"
	"github.com/stretchr/testify/require"
)

func TestInsertIntoPassthroughRoundTrip(t *testing.T) {
	sql := `INSERT INTO public.customers (customer_id, company_name, contact_name, contact_title) VALUES (1, 'Alfreds Futterkiste', 'Maria Anders', NULL);`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, InsertInto, stmt.Kind)
	require.Equal(t, "public.customers", stmt.Table)
	require.Equal(t, []string{"customer_id", "company_name", "contact_name", "contact_title"}, stmt.Columns)
	require.Len(t, stmt.ValueTokenIdx, 1)
	require.Equal(t, "'Maria Anders'", stmt.Value(0, 2))

	out := stmt.Reserialize(nil)
	require.Equal(t, sql, string(out))

	_, err = p.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestInsertIntoTransformerLocality(t *testing.T) {
	sql := `INSERT INTO public.customers (customer_id, contact_name) VALUES (1, 'Maria Anders');`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)

	idx := stmt.ValueTokenIdx[0][stmt.ColumnIndex("contact_name")]
	out := stmt.Reserialize(map[int]string{idx: "'Jordan Rivers'"})

	want := `INSERT INTO public.customers (customer_id, contact_name) VALUES (1, 'Jordan Rivers');`
	require.Equal(t, want, string(out))
}

func TestRedactedCreditCardValueReplacement(t *testing.T) {
	sql := `INSERT INTO public.payments (card_number) VALUES ('1234 1234 1234 1234');`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)

	idx := stmt.ValueTokenIdx[0][0]
	out := stmt.Reserialize(map[int]string{idx: "'1234***************'"})
	require.Equal(t, `INSERT INTO public.payments (card_number) VALUES ('1234***************');`, string(out))
}

func TestKeepFirstCharOnNumberValue(t *testing.T) {
	sql := `INSERT INTO t (n) VALUES (42);`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	idx := stmt.ValueTokenIdx[0][0]
	out := stmt.Reserialize(map[int]string{idx: "4"})
	require.Equal(t, `INSERT INTO t (n) VALUES (4);`, string(out))
}

func TestMultiRowInsert(t *testing.T) {
	sql := `INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y');`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	require.Len(t, stmt.ValueTokenIdx, 2)
	require.Equal(t, "'x'", stmt.Value(0, 1))
	require.Equal(t, "'y'", stmt.Value(1, 1))
}

func TestCopyFromStdinParsesRowsUntilTerminator(t *testing.T) {
	sql := "COPY public.us_states (code, name) FROM STDIN;\n06\tCalifornia\n36\tNew York\n\\.\n"
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, Copy, stmt.Kind)
	require.Equal(t, "public.us_states", stmt.Table)
	require.Equal(t, []string{"code", "name"}, stmt.Columns)
	require.Equal(t, [][]string{{"06", "California"}, {"36", "New York"}}, stmt.CopyRows)
}

func TestCreateTableProducesSchemaInfo(t *testing.T) {
	sql := `CREATE TABLE public.orders (
		order_id integer PRIMARY KEY,
		customer_id integer NOT NULL,
		FOREIGN KEY (customer_id) REFERENCES public.customers(customer_id)
	);`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, CreateTable, stmt.Kind)
	require.Equal(t, "public.orders", stmt.CreateTableInfo.Qualified)
	require.Len(t, stmt.InlineForeignKeys, 1)
}

func TestAlterTableAddForeignKeyClassification(t *testing.T) {
	sql := `ALTER TABLE ONLY public.orders ADD CONSTRAINT fk FOREIGN KEY (customer_id) REFERENCES public.customers(customer_id);`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	stmt, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, AlterTableConstraint, stmt.Kind)
	require.NotNil(t, stmt.ForeignKey)
}

func TestUnterminatedStringReportsOffset(t *testing.T) {
	sql := `INSERT INTO t (a) VALUES ('unterminated);`
	p := NewParser(strings.NewReader(sql), token.ModePostgres, true)
	_, err := p.Next()
	require.Error(t, err)
}
