package schema

import (
	"testing"

	"github.com/snapctl/snapctl/internal/token"
	"github.com/stretchr/testify/require"
)

func tokensOf(t *testing.T, sql string, mode token.Mode) []token.Token {
	t.Helper()
	toks, err := token.Tokens(sql, mode)
	require.NoError(t, err)
	return toks
}

func TestParseCreateTablePrimaryKeyAndColumns(t *testing.T) {
	sql := `CREATE TABLE public.customers (
		customer_id integer NOT NULL,
		company_name text,
		PRIMARY KEY (customer_id)
	)`
	table, fks, err := ParseCreateTable(tokensOf(t, sql, token.ModePostgres))
	require.NoError(t, err)
	require.Empty(t, fks)
	require.Equal(t, "public.customers", table.Qualified)
	require.Equal(t, []string{"customer_id"}, table.PrimaryKey)
	require.Len(t, table.Columns, 2)
	require.Equal(t, "customer_id", table.Columns[0].Name)
	require.True(t, table.Columns[0].NotNull)
	require.False(t, table.Columns[1].NotNull)
}

func TestParseCreateTableInlineForeignKey(t *testing.T) {
	sql := `CREATE TABLE public.orders (
		order_id integer PRIMARY KEY,
		customer_id integer,
		FOREIGN KEY (customer_id) REFERENCES public.customers(customer_id)
	)`
	table, fks, err := ParseCreateTable(tokensOf(t, sql, token.ModePostgres))
	require.NoError(t, err)
	require.Equal(t, []string{"order_id"}, table.PrimaryKey)
	require.Len(t, fks, 1)
	require.Equal(t, "public.orders", fks[0].Child)
	require.Equal(t, []string{"customer_id"}, fks[0].ChildColumns)
	require.Equal(t, "public.customers", fks[0].Parent)
	require.Equal(t, []string{"customer_id"}, fks[0].ParentColumns)
}

func TestParseAlterTableAddForeignKey(t *testing.T) {
	sql := `ALTER TABLE public.orders ADD CONSTRAINT fk_customer FOREIGN KEY (customer_id) REFERENCES public.customers(customer_id)`
	fk, err := ParseAlterTableAddForeignKey(tokensOf(t, sql, token.ModePostgres))
	require.NoError(t, err)
	require.NotNil(t, fk)
	require.Equal(t, "public.orders", fk.Child)
	require.Equal(t, "public.customers", fk.Parent)
}

func TestParseAlterTableNonForeignKeyReturnsNil(t *testing.T) {
	sql := `ALTER TABLE public.orders ADD COLUMN notes text`
	fk, err := ParseAlterTableAddForeignKey(tokensOf(t, sql, token.ModePostgres))
	require.NoError(t, err)
	require.Nil(t, fk)
}

func TestGraphForeignKeyLookups(t *testing.T) {
	g := NewGraph()
	g.AddTable(Table{Qualified: "public.customers", PrimaryKey: []string{"customer_id"}})
	g.AddTable(Table{Qualified: "public.orders", PrimaryKey: []string{"order_id"}})
	g.AddForeignKey(ForeignKey{Child: "public.orders", ChildColumns: []string{"customer_id"}, Parent: "public.customers", ParentColumns: []string{"customer_id"}})

	require.Len(t, g.ForeignKeysFrom("public.orders"), 1)
	require.Len(t, g.ForeignKeysInto("public.customers"), 1)
	require.Empty(t, g.Validate())
}

func TestGraphValidateReportsDanglingEdges(t *testing.T) {
	g := NewGraph()
	g.AddTable(Table{Qualified: "public.orders"})
	g.AddForeignKey(ForeignKey{Child: "public.orders", Parent: "public.missing"})
	errs := g.Validate()
	require.Len(t, errs, 1)
}
