package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func newTestImportService(store *countingStore, pub *fakePublisher, cfg ImportConfig) *ImportService {
	if pub == nil {
		return NewImportService(store, store, nil, cfg)
	}
	return NewImportService(store, store, pub, cfg)
}

func TestImport_DedupesCategories(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestImportService(store, nil, DefaultImportConfig())

	csv := "title,type,value,category\n" +
		"A,income,100,Food\n" +
		"B,outcome,50,Food\n"

	result, err := svc.ImportReader(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	cats := store.Categories()
	require.Len(t, cats, 1)
	assert.Equal(t, "Food", cats[0].Title)
	for _, tx := range result.Transactions {
		assert.Equal(t, cats[0].ID, tx.CategoryID)
		require.NotNil(t, tx.Category)
		assert.Equal(t, "Food", tx.Category.Title)
	}
	assert.Len(t, result.CreatedCategories, 1)
}

func TestImport_DropsMalformedRows(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestImportService(store, nil, DefaultImportConfig())

	csv := "title,type,value,category\n" +
		",income,100,Food\n" +
		"C,transfer,10,Food\n" +
		"D,income,,Food\n" +
		"E,,10,Food\n" +
		"F,income,ten,Food\n" +
		"G\n" +
		"H,income,-5,Food\n" +
		"Kept,income,10,Food\n"

	result, err := svc.ImportReader(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "Kept", result.Transactions[0].Title)
	assert.Equal(t, 7, result.Skipped)
}

func TestImport_TrimsCellsAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	svc := newTestImportService(store, nil, DefaultImportConfig())

	csv := "title, type, value, category\n" +
		"  Loan , income , 1500 ,  Others \n" +
		"Website Hosting, outcome, 50, Others\n" +
		"Ice cream, outcome, 3.50, Food\n"

	result, err := svc.ImportReader(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)

	got := []string{}
	for _, tx := range result.Transactions {
		got = append(got, tx.Title+"/"+tx.Category.Title)
	}
	assert.Equal(t, []string{"Loan/Others", "Website Hosting/Others", "Ice cream/Food"}, got)
	assert.True(t, result.Transactions[2].Value.Equal(dec("3.50")))
	assert.Len(t, store.Categories(), 2)
}

func TestImport_BatchesRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore("Food")
	svc := newTestImportService(store, nil, DefaultImportConfig())

	var b strings.Builder
	b.WriteString("title,type,value,category\n")
	for i := 0; i < 50; i++ {
		b.WriteString("row,income,1,Food\n")
		b.WriteString("row,income,1,Travel\n")
		b.WriteString("row,income,1,Books\n")
	}

	result, err := svc.ImportReader(ctx, strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 150)

	assert.Equal(t, 1, store.findByTitles, "one category lookup")
	assert.Equal(t, 1, store.saveCategories, "one category batch")
	assert.Equal(t, 1, store.saveTransactions, "one transaction batch")
	assert.Equal(t, 0, store.createCategory, "no per-row category inserts")

	created := []string{}
	for _, c := range result.CreatedCategories {
		created = append(created, c.Title)
	}
	assert.Equal(t, []string{"Travel", "Books"}, created, "first-occurrence order, existing names excluded")
}

func TestImport_ExistingCategoriesAreReused(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore("Food")
	existing, err := store.FindCategoryByTitle(ctx, "Food")
	require.NoError(t, err)

	svc := newTestImportService(store, nil, DefaultImportConfig())
	result, err := svc.ImportReader(ctx, strings.NewReader("title,type,value,category\nA,income,1,Food\n"))
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, existing.ID, result.Transactions[0].CategoryID)
	assert.Empty(t, result.CreatedCategories)
	assert.Equal(t, 0, store.saveCategories)
}

func TestImport_EmptyCategoryUsesDefault(t *testing.T) {
	store := newCountingStore()
	cfg := DefaultImportConfig()
	cfg.DefaultCategory = "Misc"
	svc := newTestImportService(store, nil, cfg)

	result, err := svc.ImportReader(context.Background(), strings.NewReader("title,type,value,category\nA,income,1,\nB,income,2\n"))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	for _, tx := range result.Transactions {
		assert.Equal(t, "Misc", tx.Category.Title)
	}
	assert.Len(t, store.Categories(), 1)
}

func TestImport_RetriesCategoryConflict(t *testing.T) {
	store := newCountingStore()
	store.conflictOnceTitle = "Food"
	svc := newTestImportService(store, nil, DefaultImportConfig())

	result, err := svc.ImportReader(context.Background(), strings.NewReader(
		"title,type,value,category\nA,income,1,Food\nB,income,1,Rent\n"))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	cats := store.Categories()
	require.Len(t, cats, 2, "the concurrently created Food row is reused")
	assert.Equal(t, 2, store.saveCategories)
	require.Len(t, result.CreatedCategories, 1)
	assert.Equal(t, "Rent", result.CreatedCategories[0].Title)
}

func TestImport_BatchFailuresAreFatal(t *testing.T) {
	ctx := context.Background()

	t.Run("categories", func(t *testing.T) {
		store := newCountingStore()
		store.FailSaveCategories = errStorageDown
		svc := newTestImportService(store, nil, DefaultImportConfig())

		_, err := svc.ImportReader(ctx, strings.NewReader("title,type,value,category\nA,income,1,Food\n"))
		assert.ErrorIs(t, err, errStorageDown)
		assert.Equal(t, 0, store.saveTransactions)
	})

	t.Run("transactions", func(t *testing.T) {
		store := newCountingStore()
		store.FailSaveTransactions = errStorageDown
		svc := newTestImportService(store, nil, DefaultImportConfig())

		_, err := svc.ImportReader(ctx, strings.NewReader("title,type,value,category\nA,income,1,Food\n"))
		assert.ErrorIs(t, err, errStorageDown)

		list, err := store.ListTransactions(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestImport_HeaderOnlyOrEmpty(t *testing.T) {
	store := newCountingStore()
	pub := &fakePublisher{}
	svc := newTestImportService(store, pub, DefaultImportConfig())

	for _, in := range []string{"", "title,type,value,category\n"} {
		result, err := svc.ImportReader(context.Background(), strings.NewReader(in))
		require.NoError(t, err)
		assert.Empty(t, result.Transactions)
	}
	assert.Equal(t, 0, store.findByTitles)
	assert.Empty(t, pub.events)
}

func TestImport_QuotedCellWithTrailingBlank(t *testing.T) {
	store := newCountingStore()
	svc := newTestImportService(store, nil, DefaultImportConfig())

	csv := "title,type,value,category\n" +
		"Salary,income,1000,Work\n" +
		"\"Rent, March\" ,outcome,10,Home\n" +
		"Bonus,income,200,Work\n" +
		"Coffee,outcome,2.50,Food\n"

	result, err := svc.ImportReader(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Transactions, 4)
	assert.Equal(t, "Rent, March", result.Transactions[1].Title)
	assert.Equal(t, "Home", result.Transactions[1].Category.Title)
}

func TestImport_QuotingErrorStoresNothing(t *testing.T) {
	store := newCountingStore()
	svc := newTestImportService(store, nil, DefaultImportConfig())

	csv := "title,type,value,category\n" +
		"\"Rent,outcome,10,Home\n" +
		"Salary,income,1000,Work\n"

	_, err := svc.ImportReader(context.Background(), strings.NewReader(csv))
	require.Error(t, err)

	list, err := store.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, store.saveCategories)
}

func TestImport_FromUploadDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "import.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,type,value,category\nA,income,100,Food\n"), 0o644))

	store := newCountingStore()
	pub := &fakePublisher{}
	cfg := DefaultImportConfig()
	cfg.UploadDir = dir
	cfg.RemoveAfterImport = true
	svc := newTestImportService(store, pub, cfg)

	result, err := svc.Import(ctx, "import.csv")
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, []publishedEvent{{kind: "imported", count: 1}}, pub.events)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should be removed after import")

	_, err = svc.Import(ctx, "import.csv")
	assert.Error(t, err)
}

func TestImport_RejectsPathTraversal(t *testing.T) {
	svc := newTestImportService(newCountingStore(), nil, DefaultImportConfig())

	for _, name := range []string{"", "..", "../etc/passwd", "sub/file.csv"} {
		_, err := svc.Import(context.Background(), name)
		assert.ErrorIs(t, err, core.ErrInvalidFileName, name)
	}
}
