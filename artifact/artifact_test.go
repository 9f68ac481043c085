package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

var payload = []byte("SCRIPTBC test payload")

func TestDigest(t *testing.T) {
	require.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", Digest(nil))
	require.Nil(t, validDigest(Digest(payload)))
	require.Error(t, validDigest("abc"))
	require.Error(t, validDigest(strings.Repeat("z", 40)))
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.Nil(t, err)

	ref, err := store.Put(ctx, "main.js", payload)
	require.Nil(t, err)
	require.Equal(t, Digest(payload), ref.Digest)
	require.Equal(t, len(payload), ref.Size)
	require.Equal(t, filepath.Join(dir, ref.Digest[:2], ref.Digest+".hbc"), ref.Location)

	again, err := store.Put(ctx, "other.js", payload)
	require.Nil(t, err)
	require.Equal(t, ref, again)

	data, err := store.Get(ctx, ref.Digest)
	require.Nil(t, err)
	require.Equal(t, payload, data)

	_, err = store.Get(ctx, Digest([]byte("missing")))
	require.True(t, errors.Is(err, ErrNotFound))

	require.Nil(t, os.WriteFile(ref.Location, []byte("tampered"), 0o644))
	_, err = store.Get(ctx, ref.Digest)
	require.True(t, errors.Is(err, ErrCorrupt))
}

type fakeS3 struct {
	objects map[string][]byte
	meta    map[string]map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.meta[*in.Bucket+"/"+*in.Key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
	store, err := NewS3Store(ctx, S3Options{Bucket: "builds", Prefix: "hbc", Client: fake})
	require.Nil(t, err)

	ref, err := store.Put(ctx, "main.js", payload)
	require.Nil(t, err)
	key := "builds/hbc/" + ref.Digest + ".hbc"
	require.Equal(t, "s3://"+key, ref.Location)
	require.Equal(t, payload, fake.objects[key])
	require.Equal(t, "main.js", fake.meta[key]["name"])

	data, err := store.Get(ctx, ref.Digest)
	require.Nil(t, err)
	require.Equal(t, payload, data)

	_, err = store.Get(ctx, Digest([]byte("missing")))
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = NewS3Store(ctx, S3Options{Client: fake})
	require.EqualError(t, err, "s3 store requires a bucket")
}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

type fakeDB struct {
	statements []string
	rows       map[string][]byte
	execErr    error
	closed     int
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if sql == insertSQL {
		digest := args[0].(string)
		if _, ok := f.rows[digest]; ok {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.rows[digest] = args[3].([]byte)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	data, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{data: data}
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: map[string][]byte{}}
	store, err := NewPostgresStore(ctx, db)
	require.Nil(t, err)
	require.Equal(t, []string{createTableSQL}, db.statements)

	ref, err := store.Put(ctx, "main.js", payload)
	require.Nil(t, err)
	_, err = store.Put(ctx, "main.js", payload)
	require.Nil(t, err)
	require.Len(t, db.rows, 1)

	data, err := store.Get(ctx, ref.Digest)
	require.Nil(t, err)
	require.Equal(t, payload, data)

	_, err = store.Get(ctx, Digest([]byte("missing")))
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = store.Get(ctx, "nope")
	require.EqualError(t, err, `invalid digest "nope"`)
}

func (f *fakeDB) Close(ctx context.Context) error {
	f.closed++
	return nil
}

func TestPostgresStoreClose(t *testing.T) {
	ctx := context.Background()

	db := &fakeDB{rows: map[string][]byte{}}
	store, err := ownPostgresStore(ctx, db, db.Close)
	require.Nil(t, err)
	require.Nil(t, Close(ctx, store))
	require.Nil(t, store.Close(ctx))
	require.Equal(t, 1, db.closed)

	failing := &fakeDB{rows: map[string][]byte{}, execErr: errors.New("permission denied")}
	_, err = ownPostgresStore(ctx, failing, failing.Close)
	require.EqualError(t, err, "creating artifact table: permission denied")
	require.Equal(t, 1, failing.closed)

	borrowed := &fakeDB{rows: map[string][]byte{}}
	store, err = NewPostgresStore(ctx, borrowed)
	require.Nil(t, err)
	require.Nil(t, store.Close(ctx))
	require.Equal(t, 0, borrowed.closed)

	files, err := NewFileStore(t.TempDir())
	require.Nil(t, err)
	require.Nil(t, Close(ctx, files))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, "file://"+dir)
	require.Nil(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, filepath.Join(dir, "plain"))
	require.Nil(t, err)
	require.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, "ftp://example.com/x")
	require.EqualError(t, err, `unsupported store scheme "ftp"`)
}
