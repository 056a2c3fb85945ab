package querier

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Karekin/influxdb/internal/errors"
	"github.com/Karekin/influxdb/pkg/types"
)

func TestQuerier_TableChunks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	f1 := env.createFile(t, 3)
	f2 := env.createFile(t, 1)
	f3 := env.createFile(t, 5)
	require.NoError(t, env.catalog.FlagForDelete(ctx, f3.ID))

	q := NewQuerier(env.catalog, env.adapter(), 2, zerolog.Nop())
	chunks, err := q.TableChunks(ctx, f1.TableID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, types.ChunkIDFromFileID(f1.ID), chunks[0].ID())
	assert.Equal(t, types.ChunkIDFromFileID(f2.ID), chunks[1].ID())
	assert.Equal(t, uint32(4), chunks[0].Order().Get())
	assert.Equal(t, uint32(2), chunks[1].Order().Get())

	all, err := q.Chunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQuerier_Chunk(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	file := env.createFile(t, 0)

	q := NewQuerier(env.catalog, env.adapter(), 0, zerolog.Nop())
	c, err := q.Chunk(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chunk('ns':'table':'1-part':00000000-0000-0000-0000-000000000001)", c.Addr().String())

	_, err = q.Chunk(ctx, 999)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestQuerier_EmptyTable(t *testing.T) {
	env := newTestEnv(t)
	q := NewQuerier(env.catalog, env.adapter(), 4, zerolog.Nop())

	chunks, err := q.TableChunks(context.Background(), 12)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

// staticLister serves a fixed set of records.
type staticLister struct {
	files []*types.ParquetFile
}

func (l *staticLister) GetParquetFile(ctx context.Context, id types.ParquetFileID) (*types.ParquetFile, error) {
	for _, f := range l.files {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, apperrors.NewCatalogError(apperrors.CodeNotFound, "parquet file", nil)
}

func (l *staticLister) ListParquetFilesByTable(ctx context.Context, tableID types.TableID) ([]*types.ParquetFile, error) {
	var out []*types.ParquetFile
	for _, f := range l.files {
		if f.TableID == tableID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (l *staticLister) ListParquetFiles(ctx context.Context) ([]*types.ParquetFile, error) {
	return l.files, nil
}

func TestQuerier_OneBadFileFailsTheCall(t *testing.T) {
	env := newTestEnv(t)
	good := env.createFile(t, 0)
	bad := *env.createFile(t, 1)
	bad.ParquetMetadata = []byte{0x15, 0x00}

	q := NewQuerier(&staticLister{files: []*types.ParquetFile{good, &bad}}, env.adapter(), 4, zerolog.Nop())
	chunks, err := q.TableChunks(context.Background(), good.TableID)
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.True(t, apperrors.IsCorruptMetadata(err), "got %v", err)
}
