package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/snapctl/snapctl/internal/codec"
	"github.com/snapctl/snapctl/internal/dump/mongoarchive"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
	"github.com/snapctl/snapctl/internal/transform"
)

// backupMongo streams a mongodump --archive source through mongoarchive,
// applying per-collection dotted-path transformers document by document.
// MongoDB never subsets (spec.md §9: "open design problem"), so this is a
// single pass, unlike the SQL engines' subset-aware two-pass driver.
func backupMongo(ctx context.Context, opts BackupOptions) (catalog.Snapshot, error) {
	transformers, err := buildColumnTransformers(opts.Source.Transformers)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	defer transformers.close()

	skip := newTableMatcher(opts.Source.Skip)

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

	parser := mongoarchive.NewParser(&countingReader{r: rc, n: &bytesIn})
	writer := mongoarchive.NewWriter(sink)

	writeErr := writeMongoDocuments(ctx, parser, writer, transformers, skip)
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

func writeMongoDocuments(ctx context.Context, parser *mongoarchive.Parser, writer *mongoarchive.Writer, transformers columnTransformers, skip tableMatcher) error {
	currentCollection := ""
	headerOpen := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		doc, err := parser.Next()
		if err == io.EOF {
			if headerOpen {
				if err := writer.WriteTerminator(); err != nil {
					return snaperrors.New(snaperrors.KindCodec, err)
				}
			}
			return nil
		}
		if err != nil {
			return err
		}

		if skip.matches(doc.Collection) {
			continue
		}

		if doc.Collection != currentCollection {
			if headerOpen {
				if err := writer.WriteTerminator(); err != nil {
					return snaperrors.New(snaperrors.KindCodec, err)
				}
			}
			if err := writer.WriteHeader(doc.Database, doc.Collection); err != nil {
				return snaperrors.New(snaperrors.KindCodec, err)
			}
			currentCollection = doc.Collection
			headerOpen = true
		}

		raw, err := applyMongoTransforms(ctx, doc, transformers)
		if err != nil {
			return err
		}
		if err := writer.WriteDocument(raw); err != nil {
			return snaperrors.New(snaperrors.KindCodec, err)
		}
	}
}

func applyMongoTransforms(ctx context.Context, doc *mongoarchive.Document, transformers columnTransformers) ([]byte, error) {
	cols := transformers.forTable(doc.Collection)
	if len(cols) == 0 {
		return doc.Raw, nil
	}

	raw := doc.Raw
	for _, nt := range cols {
		addr := transform.MongoAddress(doc.Database, doc.Collection, nt.Name)
		var applyErr error
		rewritten, err := mongoarchive.RewriteDocument(raw, addr.Path, func(orig any) (any, error) {
			v := mongoValueFromAny(orig)
			out, err := transform.Apply(ctx, nt.Transformer, v)
			if err != nil {
				applyErr = err
				return orig, nil
			}
			return mongoValueToAny(orig, out), nil
		})
		if applyErr != nil {
			return nil, snaperrors.New(snaperrors.KindTransform, fmt.Errorf("%s.%s: %w", doc.Collection, nt.Name, applyErr))
		}
		if err != nil {
			return nil, snaperrors.New(snaperrors.KindTransform, fmt.Errorf("%s.%s: %w", doc.Collection, nt.Name, err))
		}
		raw = rewritten
	}
	return raw, nil
}

// mongoValueFromAny classifies a BSON-decoded Go value the way ParseValue
// classifies a SQL literal token, so the same transform.Transformer
// implementations serve both engines.
func mongoValueFromAny(v any) transform.Value {
	if v == nil {
		return transform.Value{Kind: transform.KindNull}
	}
	switch t := v.(type) {
	case string:
		return transform.Value{Kind: transform.KindString, Unquoted: t}
	case int:
		return transform.Value{Kind: transform.KindNumber, Raw: strconv.Itoa(t)}
	case int32:
		return transform.Value{Kind: transform.KindNumber, Raw: strconv.FormatInt(int64(t), 10)}
	case int64:
		return transform.Value{Kind: transform.KindNumber, Raw: strconv.FormatInt(t, 10)}
	case float64:
		return transform.Value{Kind: transform.KindNumber, Raw: strconv.FormatFloat(t, 'f', -1, 64)}
	default:
		return transform.Value{Kind: transform.KindOther, Raw: fmt.Sprintf("%v", t)}
	}
}

// mongoValueToAny converts a transformed Value back into a BSON-encodable
// Go value, preferring the original field's numeric type so a transform
// doesn't silently widen e.g. int32 into int64 on re-encode.
func mongoValueToAny(original any, v transform.Value) any {
	switch v.Kind {
	case transform.KindNull:
		return nil
	case transform.KindString:
		return v.Unquoted
	case transform.KindNumber:
		switch original.(type) {
		case int32:
			if n, err := strconv.ParseInt(v.Raw, 10, 32); err == nil {
				return int32(n)
			}
		case int, int64:
			if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return n
			}
		case float64:
			if f, err := strconv.ParseFloat(v.Raw, 64); err == nil {
				return f
			}
		}
		return v.Raw
	default:
		return v.Raw
	}
}
