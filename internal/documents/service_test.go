package documents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
)

func newService(t *testing.T) (*Service, cache.Cache) {
	t.Helper()
	store, err := storage.New(t.TempDir(), "http://files.test", 1<<20)
	require.NoError(t, err)
	c := cache.NewCache(10, time.Minute)
	return NewService(database.OpenTest(t), store, c, logger.Nop()), c
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", Input{Name: "Brief", FileURL: "http://x/brief.pdf", FileType: "pdf", CaseID: "case-1", Tags: []string{"draft"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", Input{Name: "Photo", FileURL: "http://x/p.jpg", FileType: "jpg", ClientID: "client-1"})
	require.NoError(t, err)

	all, err := svc.List(ctx, Filter{Owner: "u1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCase, err := svc.List(ctx, Filter{Owner: "u1", CaseID: "case-1"})
	require.NoError(t, err)
	require.Len(t, byCase, 1)
	assert.Equal(t, database.StringList{"draft"}, byCase[0].Tags)
	assert.Equal(t, 1, byCase[0].Version)

	byType, err := svc.List(ctx, Filter{Owner: "u1", FileType: "jpg"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "Photo", byType[0].Name)

	found, err := svc.List(ctx, Filter{Owner: "u1", Search: "bri"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	others, err := svc.List(ctx, Filter{Owner: "u2"})
	require.NoError(t, err)
	assert.Empty(t, others)
	_, err = svc.Get(ctx, "u2", found[0].ID)
	assert.True(t, database.IsNotFound(err))
	assert.True(t, database.IsNotFound(svc.Delete(ctx, "u2", found[0].ID)))

	_, err = svc.Create(ctx, "u1", Input{})
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v, "name")
	assert.Contains(t, v, "file_url")
}

func TestUploadStoresFile(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()
	require.NoError(t, c.Set("rpc:u1:get_recent_documents:5", []byte("[]")))
	require.NoError(t, c.Set("rpc:u2:get_recent_documents:5", []byte("[]")))

	doc, err := svc.Upload(ctx, "u1", "../Witness Statement.PDF", strings.NewReader("%PDF"), Input{CaseID: "case-1"})
	require.NoError(t, err)

	assert.Equal(t, "../Witness Statement.PDF", doc.Name)
	require.NotNil(t, doc.FileType)
	assert.Equal(t, "pdf", *doc.FileType)
	require.NotNil(t, doc.Size)
	assert.Equal(t, int64(4), *doc.Size)
	assert.True(t, strings.HasPrefix(doc.FileURL, "http://files.test/storage/documents/u1/"))
	assert.True(t, strings.HasSuffix(doc.StoragePath, "-Witness_Statement.PDF"))

	_, ok := c.Get("rpc:u1:get_recent_documents:5")
	assert.False(t, ok)
	_, ok = c.Get("rpc:u2:get_recent_documents:5")
	assert.True(t, ok, "other users' dashboards stay cached")

	f, err := svc.storage.Open(Bucket, doc.StoragePath)
	require.NoError(t, err)
	_ = f.Close()

	require.NoError(t, svc.Delete(ctx, "u1", doc.ID))
	_, err = svc.storage.Open(Bucket, doc.StoragePath)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, "u1", doc.ID)
	assert.True(t, database.IsNotFound(err))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b.pdf", sanitize("a b.pdf"))
	assert.Equal(t, "passwd", sanitize("../../etc/passwd"))
	assert.Equal(t, "file", sanitize(".."))
	assert.Equal(t, "x.txt", sanitize(`C:\tmp\x.txt`))
}
