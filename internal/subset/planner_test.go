package subset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/snapctl/snapctl/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNorthwindGraph() *schema.Graph {
	g := schema.NewGraph()
	g.AddTable(schema.Table{Qualified: "public.customers", PrimaryKey: []string{"customer_id"}})
	g.AddTable(schema.Table{Qualified: "public.orders", PrimaryKey: []string{"order_id"}})
	g.AddTable(schema.Table{Qualified: "public.order_details", PrimaryKey: []string{"order_id", "product_id"}})
	g.AddTable(schema.Table{Qualified: "public.us_states", PrimaryKey: []string{"state_id"}})
	g.AddForeignKey(schema.ForeignKey{
		Child: "public.orders", ChildColumns: []string{"customer_id"},
		Parent: "public.customers", ParentColumns: []string{"customer_id"},
	})
	g.AddForeignKey(schema.ForeignKey{
		Child: "public.order_details", ChildColumns: []string{"order_id"},
		Parent: "public.orders", ParentColumns: []string{"order_id"},
	})
	return g
}

func TestSubsetReferentialIntegrityClosure(t *testing.T) {
	g := buildNorthwindGraph()
	planner := NewPlanner(g, "public.orders", RandomPercent(0.5), 42, []string{"public.us_states"}, nil)

	const numCustomers = 20
	const numOrders = 100
	for i := 0; i < numCustomers; i++ {
		planner.RecordRow(RowRef{Table: "public.customers", PK: MakeKey(itoa(i))})
	}
	for i := 0; i < numOrders; i++ {
		customer := i % numCustomers
		planner.RecordRow(RowRef{
			Table: "public.orders",
			PK:    MakeKey(itoa(i)),
			FKParents: map[string]Key{
				"public.customers": MakeKey(itoa(customer)),
			},
		})
		planner.RecordRow(RowRef{
			Table: "public.order_details",
			PK:    MakeKey(itoa(i), "1"),
			FKParents: map[string]Key{
				"public.orders": MakeKey(itoa(i)),
			},
		})
	}

	plan, err := planner.Plan()
	require.NoError(t, err)

	// Lower bound: at least floor(n*p) orders kept.
	assert.GreaterOrEqual(t, plan.KeptCount("public.orders"), int(math.Floor(0.5*numOrders)))

	for i := 0; i < numOrders; i++ {
		orderKey := MakeKey(itoa(i))
		if !plan.Keep("public.orders", orderKey) {
			continue
		}
		customer := i % numCustomers
		assert.True(t, plan.Keep("public.customers", MakeKey(itoa(customer))),
			"order %d kept but its customer %d was not", i, customer)

		detailKey := MakeKey(itoa(i), "1")
		// order_details isn't auto-included (descendants are never pulled
		// in by the ancestor-only closure); it was never recorded as kept
		// unless something upstream references it, so Keep must be false
		// here since nothing in this fixture keeps order_details directly.
		assert.False(t, plan.Keep("public.order_details", detailKey))
	}

	// Passthrough table is always kept regardless of closure.
	assert.True(t, plan.Keep("public.us_states", MakeKey("1")))
}

func TestSubsetTableWithoutPrimaryKeyBecomesPassthrough(t *testing.T) {
	g := schema.NewGraph()
	g.AddTable(schema.Table{Qualified: "public.orders", PrimaryKey: []string{"order_id"}})
	g.AddTable(schema.Table{Qualified: "public.audit_log"}) // no primary key

	planner := NewPlanner(g, "public.orders", RandomPercent(1.0), 7, nil, nil)
	planner.RecordRow(RowRef{Table: "public.orders", PK: MakeKey("1")})

	plan, err := planner.Plan()
	require.NoError(t, err)
	assert.True(t, plan.Keep("public.audit_log", MakeKey("anything")))
}

func TestValidateConfigRejectsNonPostgresEngine(t *testing.T) {
	g := buildNorthwindGraph()
	errs := ValidateConfig(EngineMySQL, g, "public.orders", nil, nil)
	require.NotEmpty(t, errs)
}

func TestValidateConfigRejectsMissingPrimaryKeyRoot(t *testing.T) {
	g := schema.NewGraph()
	g.AddTable(schema.Table{Qualified: "public.events"})
	errs := ValidateConfig(EnginePostgres, g, "public.events", nil, nil)
	require.NotEmpty(t, errs)
}

func TestRandomPercentSelectsCeilingCount(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	idx := RandomPercent(0.1).Select(rng, 7)
	assert.Len(t, idx, 1) // ceil(0.1*7) = 1
}

func itoa(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}
