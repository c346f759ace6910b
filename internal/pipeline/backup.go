package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/snapctl/snapctl/internal/codec"
	"github.com/snapctl/snapctl/internal/config"
	"github.com/snapctl/snapctl/internal/dump/mysqldump"
	"github.com/snapctl/snapctl/internal/dump/pgdump"
	"github.com/snapctl/snapctl/internal/dump/sqltext"
	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/schema"
	"github.com/snapctl/snapctl/internal/snaperrors"
	"github.com/snapctl/snapctl/internal/subset"
	"github.com/snapctl/snapctl/internal/transform"
)

// sqlParser is the common surface pgdump.Parser and mysqldump.Parser both
// satisfy (they are thin dialect front-ends over internal/dump/sqltext).
type sqlParser interface {
	Next() (*sqltext.Statement, error)
}

func newSQLParser(r io.Reader, eng engine.Engine) (sqlParser, error) {
	switch eng {
	case engine.Postgres:
		return pgdump.NewParser(r), nil
	case engine.MySQL:
		return mysqldump.NewParser(r), nil
	default:
		return nil, fmt.Errorf("pipeline: %s is not a SQL-text engine", eng)
	}
}

// namedTransformer pairs a built transformer with the original-case column
// (or dotted Mongo field path) name it was configured against, since SQL
// column matching is case-insensitive but a Mongo field path is not.
type namedTransformer struct {
	Name string
	transform.Transformer
}

// columnTransformers indexes configured transformers by lowercase table
// name (last qualifier only, matching tableMatcher) and lowercase column
// name.
type columnTransformers map[string]map[string]namedTransformer

func buildColumnTransformers(cfg []config.TableTransformers) (columnTransformers, error) {
	out := columnTransformers{}
	for _, tt := range cfg {
		table := strings.ToLower(lastSegment(tt.Table))
		cols, ok := out[table]
		if !ok {
			cols = map[string]namedTransformer{}
			out[table] = cols
		}
		for _, col := range tt.Columns {
			tr, err := transform.New(col.TransformerName, transform.Options(col.TransformerOptions))
			if err != nil {
				return nil, snaperrors.New(snaperrors.KindConfig, fmt.Errorf("source.transformers: %s.%s: %w", tt.Table, col.Name, err))
			}
			cols[strings.ToLower(col.Name)] = namedTransformer{Name: col.Name, Transformer: tr}
		}
	}
	return out, nil
}

func (ct columnTransformers) forTable(table string) map[string]namedTransformer {
	return ct[strings.ToLower(lastSegment(table))]
}

func (ct columnTransformers) close() {
	for _, cols := range ct {
		for _, nt := range cols {
			if c, ok := nt.Transformer.(interface{ Close() error }); ok {
				_ = c.Close()
			}
		}
	}
}

// Backup runs a full backup according to opts, returning the catalog
// entry appended on success. On any error the snapshot's chunks may be
// left in the object store (spec.md §4.6) but the catalog is never
// updated, per the "Cancellation" testable property.
func Backup(ctx context.Context, opts BackupOptions) (catalog.Snapshot, error) {
	if opts.Source.DatabaseSubset != nil && opts.Engine != engine.Postgres {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindConfig,
			fmt.Errorf("database_subset is only supported for the postgres engine, got %s", opts.Engine))
	}
	if opts.Engine == engine.MongoDB {
		return backupMongo(ctx, opts)
	}
	return backupSQL(ctx, opts)
}

func backupSQL(ctx context.Context, opts BackupOptions) (catalog.Snapshot, error) {
	var graph *schema.Graph
	var plan *subset.Plan

	if sub := opts.Source.DatabaseSubset; sub != nil {
		g, p, err := prepareSubset(ctx, opts, sub)
		if err != nil {
			return catalog.Snapshot{}, err
		}
		graph, plan = g, p
	}

	transformers, err := buildColumnTransformers(opts.Source.Transformers)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	defer transformers.close()

	skip := newTableMatcher(opts.Source.Skip)
	only := newTableMatcher(opts.Source.OnlyTables)

	encryptor, salt, err := setupCodec(opts)
	if err != nil {
		return catalog.Snapshot{}, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = codec.DefaultChunkSize
	}

	var bytesIn, bytesOut int64
	sink, outcome := newSink(ctx, opts.Store, opts.SnapshotName, opts.Compress, encryptor, chunkSize, &bytesOut)
	stop := progressTicker(ctx, opts.ProgressInterval, &bytesIn, &bytesOut, opts.OnProgress)
	defer stop()

	rc, err := opts.Open(ctx)
	if err != nil {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindSource, err)
	}
	defer rc.Close()

	parser, err := newSQLParser(&countingReader{r: rc, n: &bytesIn}, opts.Engine)
	if err != nil {
		return catalog.Snapshot{}, err
	}

	writeErr := writeSQLStatements(ctx, parser, sink, graph, plan, transformers, skip, only)
	closeErr := sink.Close()
	res := <-outcome

	if writeErr != nil {
		return catalog.Snapshot{}, writeErr
	}
	if closeErr != nil {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindCodec, closeErr)
	}
	if res.Err != nil {
		return catalog.Snapshot{}, res.Err
	}

	snap := catalog.Snapshot{
		Name:        opts.SnapshotName,
		Engine:      opts.Engine.String(),
		SizeBytes:   res.Result.BytesOut,
		CreatedAtMs: nowMillis(),
		Compressed:  opts.Compress,
		Encrypted:   encryptor != nil,
		ChunkSize:   int64(chunkSize),
		ChunkCount:  res.Result.ChunkCount,
	}
	if encryptor != nil {
		snap.KDFSalt = encodeSalt(salt)
	}
	if err := catalog.AppendSnapshot(ctx, opts.Store, snap); err != nil {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindObjectStore, err)
	}
	return snap, nil
}

// prepareSubset builds the schema graph and the subset planner's row index
// in two separate passes over the dump (opts.Open is reopened for each, per
// its doc comment), then computes the referentially-closed keep Plan
// (spec.md §4.3). The first pass sees every CREATE TABLE and ALTER TABLE
// constraint before the second pass records a single row, so a foreign key
// declared after its child table's data section — pg_dump's default
// ordering — is still known by the time rows reference it, unlike a single
// combined pass would allow.
func prepareSubset(ctx context.Context, opts BackupOptions, sub *config.DatabaseSubsetConfig) (*schema.Graph, *subset.Plan, error) {
	graph, err := scanSchema(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := buildStrategy(sub)
	if err != nil {
		return nil, nil, snaperrors.New(snaperrors.KindConfig, err)
	}

	skipNames := tableRefNames(opts.Source.Skip)
	root := resolveQualified(graph, sub.Table)
	passthrough := resolveQualifiedAll(graph, sub.PassthroughTables)
	skipQualified := resolveQualifiedAll(graph, skipNames)
	if errs := subset.ValidateConfig(opts.Engine.String(), graph, root, passthrough, skipQualified); len(errs) > 0 {
		return nil, nil, snaperrors.New(snaperrors.KindConfig, errors.Join(errs...))
	}

	planner := subset.NewPlanner(graph, root, strategy, seedFor(sub), passthrough, skipQualified)

	rc, err := opts.Open(ctx)
	if err != nil {
		return nil, nil, snaperrors.New(snaperrors.KindSource, err)
	}
	defer rc.Close()

	parser, err := newSQLParser(rc, opts.Engine)
	if err != nil {
		return nil, nil, err
	}

	for {
		stmt, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if stmt.Kind != sqltext.InsertInto && stmt.Kind != sqltext.Copy {
			continue
		}
		for i := 0; i < rowCount(stmt); i++ {
			if ref, ok := rowRefFromStatement(graph, stmt, i); ok {
				planner.RecordRow(ref)
			}
		}
	}

	plan, err := planner.Plan()
	if err != nil {
		return nil, nil, err
	}
	return graph, plan, nil
}

// scanSchema reads the whole dump once, populating a schema.Graph from
// every CREATE TABLE and ALTER TABLE ... ADD CONSTRAINT statement. Data
// statements are skipped entirely; this pass exists only to resolve table
// and foreign-key structure before any row is recorded.
func scanSchema(ctx context.Context, opts BackupOptions) (*schema.Graph, error) {
	rc, err := opts.Open(ctx)
	if err != nil {
		return nil, snaperrors.New(snaperrors.KindSource, err)
	}
	defer rc.Close()

	parser, err := newSQLParser(rc, opts.Engine)
	if err != nil {
		return nil, err
	}

	graph := schema.NewGraph()
	for {
		stmt, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch stmt.Kind {
		case sqltext.CreateTable:
			graph.AddTable(*stmt.CreateTableInfo)
			for _, fk := range stmt.InlineForeignKeys {
				graph.AddForeignKey(fk)
			}
		case sqltext.AlterTableConstraint:
			if stmt.ForeignKey != nil {
				graph.AddForeignKey(*stmt.ForeignKey)
			}
		}
	}
	return graph, nil
}

// writeSQLStatements drains parser, filtering/transforming/subsetting each
// statement, and writes the resulting bytes to sink.
func writeSQLStatements(ctx context.Context, parser sqlParser, sink io.Writer, graph *schema.Graph, plan *subset.Plan, transformers columnTransformers, skip, only tableMatcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stmt, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch stmt.Kind {
		case sqltext.CreateTable, sqltext.AlterTableConstraint, sqltext.Copy, sqltext.InsertInto:
			if stmt.Table != "" {
				if skip.matches(stmt.Table) {
					continue
				}
				if !only.empty() && !only.matches(stmt.Table) {
					continue
				}
			}
		}

		out, err := renderStatement(ctx, stmt, graph, plan, transformers)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			continue
		}
		if _, err := sink.Write(out); err != nil {
			return snaperrors.New(snaperrors.KindCodec, fmt.Errorf("write to codec stage: %w", err))
		}
	}
}

// renderStatement returns the bytes to emit for stmt: verbatim Raw for
// anything that isn't subsetted/transformed row data (preserving the
// "pass-through identity" and "transformer locality" testable properties),
// or a freshly rebuilt INSERT/COPY block when subsetting drops rows.
func renderStatement(ctx context.Context, stmt *sqltext.Statement, graph *schema.Graph, plan *subset.Plan, transformers columnTransformers) ([]byte, error) {
	if stmt.Kind != sqltext.InsertInto && stmt.Kind != sqltext.Copy {
		return stmt.Raw, nil
	}

	cols := transformers.forTable(stmt.Table)
	n := rowCount(stmt)

	if plan != nil && plan.Skip(stmt.Table) {
		return nil, nil
	}

	keep := make([]bool, n)
	anyDropped := false
	for i := range keep {
		if plan == nil {
			keep[i] = true
			continue
		}
		table, ok := graph.Table(stmt.Table)
		if !ok || len(table.PrimaryKey) == 0 {
			keep[i] = true
			continue
		}
		pk, ok := keyFor(stmt, i, table.PrimaryKey)
		keep[i] = ok && plan.Keep(stmt.Table, pk)
		if !keep[i] {
			anyDropped = true
		}
	}

	if len(cols) == 0 && !anyDropped {
		return stmt.Raw, nil
	}

	if stmt.Kind == sqltext.InsertInto {
		return renderInsert(ctx, stmt, cols, keep)
	}
	return renderCopy(ctx, stmt, cols, keep)
}

func renderInsert(ctx context.Context, stmt *sqltext.Statement, cols map[string]namedTransformer, keep []bool) ([]byte, error) {
	if len(cols) == 0 {
		rows := make([][]string, len(stmt.ValueTokenIdx))
		for i := range rows {
			row := make([]string, len(stmt.Columns))
			for j := range row {
				row[j] = stmt.Value(i, j)
			}
			rows[i] = row
		}
		return rebuildInsert(stmt.Table, stmt.Columns, rows, keep), nil
	}

	replacements := map[int]string{}
	for i := range stmt.ValueTokenIdx {
		if !keep[i] {
			continue
		}
		for j, colName := range stmt.Columns {
			nt, ok := cols[strings.ToLower(colName)]
			if !ok {
				continue
			}
			v := transform.ParseValue(stmt.Value(i, j))
			out, err := transform.Apply(ctx, nt.Transformer, v)
			if err != nil {
				return nil, snaperrors.New(snaperrors.KindTransform, fmt.Errorf("%s.%s: %w", stmt.Table, colName, err))
			}
			replacements[stmt.ValueTokenIdx[i][j]] = insertFieldLiteral(out)
		}
	}

	anyDropped := false
	for _, k := range keep {
		if !k {
			anyDropped = true
			break
		}
	}
	if !anyDropped {
		return stmt.Reserialize(replacements), nil
	}

	rows := make([][]string, len(stmt.ValueTokenIdx))
	for i := range rows {
		row := make([]string, len(stmt.Columns))
		for j := range row {
			idx := stmt.ValueTokenIdx[i][j]
			if text, ok := replacements[idx]; ok {
				row[j] = text
			} else {
				row[j] = stmt.Value(i, j)
			}
		}
		rows[i] = row
	}
	return rebuildInsert(stmt.Table, stmt.Columns, rows, keep), nil
}

func renderCopy(ctx context.Context, stmt *sqltext.Statement, cols map[string]namedTransformer, keep []bool) ([]byte, error) {
	rows := make([][]string, len(stmt.CopyRows))
	for i, row := range stmt.CopyRows {
		out := append([]string(nil), row...)
		if keep[i] {
			for j, colName := range stmt.Columns {
				nt, ok := cols[strings.ToLower(colName)]
				if !ok {
					continue
				}
				v := transform.ParseValue(valueAt(stmt, i, j))
				transformed, err := transform.Apply(ctx, nt.Transformer, v)
				if err != nil {
					return nil, snaperrors.New(snaperrors.KindTransform, fmt.Errorf("%s.%s: %w", stmt.Table, colName, err))
				}
				out[j] = copyFieldLiteral(transformed)
			}
		}
		rows[i] = out
	}
	return rebuildCopy(stmt.Table, stmt.Columns, rows, keep), nil
}

// countingReader tallies bytes read from r into *n, backing the backup
// driver's "bytes in" progress counter.
type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		atomic.AddInt64(c.n, int64(n))
	}
	return n, err
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func encodeSalt(salt []byte) string {
	return base64.StdEncoding.EncodeToString(salt)
}

// decodeSalt inverts encodeSalt; used by tests to recover the KDF salt
// stored in a catalog.Snapshot's KDFSalt field.
func decodeSalt(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
