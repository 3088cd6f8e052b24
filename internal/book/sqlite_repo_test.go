package book_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booklibrary/internal/book"
	"booklibrary/internal/platform/sqlite"
	"booklibrary/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var booksTable = book.Table{
	Name:              "books",
	ISBNColumn:        "ISBN",
	DescriptionColumn: "description",
	DateColumn:        "Acc_Date",
}

func newFixtureRepo(t *testing.T, rows ...testutil.BookRow) (*book.SQLiteRepo, *sqlite.Provider) {
	t.Helper()
	p := testutil.OpenBooksDB(t, rows...)
	return book.NewSQLiteRepo(p, booksTable, 2*time.Second), p
}

func TestSQLiteRepo_ListLatest(t *testing.T) {
	repo, p := newFixtureRepo(t, testutil.TestBooks...)
	ctx := context.Background()

	t.Run("newest first, described only", func(t *testing.T) {
		records, err := repo.ListLatest(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 4)

		var isbns []string
		for _, r := range records {
			_, hasDesc := r.Get("description")
			assert.True(t, hasDesc)
			assert.NotEmpty(t, r.String("description"))
			isbns = append(isbns, r.String("ISBN"))
		}
		assert.Equal(t, []string{
			"978-1-59327-584-6", // 2023-07-15, ties broken by ISBN
			"9780262033848",     // 2023-07-15
			"978-0134190440",    // 2022-11-30
			"978-0-13-110362-7", // 2021-03-01
		}, isbns)
	})

	t.Run("limit honored", func(t *testing.T) {
		records, err := repo.ListLatest(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("all columns present", func(t *testing.T) {
		records, err := repo.ListLatest(ctx, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t,
			[]string{"Acc_No", "ISBN", "Title", "Author", "description", "Acc_Date", "Price"},
			records[0].Columns())
		price, _ := records[0].Get("Price")
		assert.Equal(t, 39.95, price)
	})

	assert.Equal(t, 0, p.InUse(), "connections must be released")
}

func TestSQLiteRepo_ListLatest_Empty(t *testing.T) {
	repo, _ := newFixtureRepo(t)

	records, err := repo.ListLatest(context.Background(), 1000)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestSQLiteRepo_GetByISBN(t *testing.T) {
	repo, p := newFixtureRepo(t, testutil.TestBooks...)
	ctx := context.Background()

	t.Run("hyphenated storage, plain input", func(t *testing.T) {
		rec, err := repo.GetByISBN(ctx, "9780131103627")
		require.NoError(t, err)
		assert.Equal(t, "The C Programming Language", rec.String("Title"))
	})

	t.Run("plain storage", func(t *testing.T) {
		rec, err := repo.GetByISBN(ctx, "9780262033848")
		require.NoError(t, err)
		assert.Equal(t, "Introduction to Algorithms", rec.String("Title"))
	})

	t.Run("null description still returned", func(t *testing.T) {
		rec, err := repo.GetByISBN(ctx, "0201633612")
		require.NoError(t, err)
		v, ok := rec.Get("description")
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("absent", func(t *testing.T) {
		_, err := repo.GetByISBN(ctx, "0000000000000")
		assert.ErrorIs(t, err, book.ErrNotFound)
	})

	t.Run("injection attempt is just a value", func(t *testing.T) {
		_, err := repo.GetByISBN(ctx, "0' OR '1'='1")
		assert.ErrorIs(t, err, book.ErrNotFound)
	})

	assert.Equal(t, 0, p.InUse(), "connections must be released")
}

func TestSQLiteRepo_GetByISBN_DuplicatesLowestRowidWins(t *testing.T) {
	repo, _ := newFixtureRepo(t,
		testutil.BookRow{ISBN: "978-3-16-148410-0", Title: "First copy", Description: testutil.Str("a"), AccDate: "2020-01-01"},
		testutil.BookRow{ISBN: "9783161484100", Title: "Second copy", Description: testutil.Str("b"), AccDate: "2024-01-01"},
	)

	rec, err := repo.GetByISBN(context.Background(), "9783161484100")
	require.NoError(t, err)
	assert.Equal(t, "First copy", rec.String("Title"))
}

func TestSQLiteRepo_ConcurrentReads(t *testing.T) {
	repo, p := newFixtureRepo(t, testutil.TestBooks...)
	ctx := context.Background()

	want, err := repo.ListLatest(ctx, 5000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err := repo.ListLatest(ctx, 5000)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != len(want) {
				errs <- errors.New("list length changed between requests")
			}
		}()
		go func() {
			defer wg.Done()
			rec, err := repo.GetByISBN(ctx, "9781593275846")
			if err != nil {
				errs <- err
				return
			}
			if rec.String("Title") != "The Linux Command Line" {
				errs <- errors.New("lookup returned wrong row")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 0, p.InUse())
}

func newMockRepo(t *testing.T) (*book.SQLiteRepo, sqlmock.Sqlmock, *sqlite.Provider) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	p := sqlite.NewProvider(sqlx.NewDb(db, "sqlmock"))
	t.Cleanup(func() { _ = p.Close() })
	return book.NewSQLiteRepo(p, booksTable, time.Second), mock, p
}

func expectTextColumns(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM pragma_table_info`).
		WithArgs("books").
		WillReturnRows(sqlmock.NewRows([]string{"name", "type"}).
			AddRow("ISBN", "TEXT").
			AddRow("description", "TEXT"))
}

func TestSQLiteRepo_QueryError(t *testing.T) {
	repo, mock, p := newMockRepo(t)
	boom := errors.New("disk I/O error")

	expectTextColumns(mock)
	mock.ExpectQuery(`SELECT \* FROM .books. WHERE`).
		WithArgs("-", "", "9780131103627", sqlmock.AnyArg()).
		WillReturnError(boom)

	_, err := repo.GetByISBN(context.Background(), "9780131103627")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, book.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, book.ErrNotFound)
	assert.Equal(t, 0, p.InUse(), "connection released after query error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepo_TimeoutIsUnavailable(t *testing.T) {
	repo, mock, p := newMockRepo(t)

	expectTextColumns(mock)
	mock.ExpectQuery(`SELECT \* FROM .books.`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.ListLatest(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, book.ErrStoreUnavailable)
	assert.Equal(t, 0, p.InUse())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepo_RowError(t *testing.T) {
	repo, mock, p := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"ISBN", "description"}).
		AddRow("1", "a").
		AddRow("2", "b").
		RowError(1, errors.New("corrupt page"))
	expectTextColumns(mock)
	mock.ExpectQuery(`SELECT \* FROM .books.`).WillReturnRows(rows)

	_, err := repo.ListLatest(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt page")
	assert.Equal(t, 0, p.InUse())
}

func TestSQLiteRepo_NoRowReleasesConnection(t *testing.T) {
	repo, mock, p := newMockRepo(t)

	expectTextColumns(mock)
	mock.ExpectQuery(`REPLACE`).
		WillReturnRows(sqlmock.NewRows([]string{"ISBN"}))

	_, err := repo.GetByISBN(context.Background(), "0000000000000")
	assert.ErrorIs(t, err, book.ErrNotFound)
	assert.Equal(t, 0, p.InUse())
}

func TestSQLiteRepo_ColumnLookupBusyIsUnavailable(t *testing.T) {
	repo, mock, p := newMockRepo(t)

	mock.ExpectQuery(`FROM pragma_table_info`).WillReturnError(context.DeadlineExceeded)

	_, err := repo.GetByISBN(context.Background(), "9780131103627")
	assert.ErrorIs(t, err, book.ErrStoreUnavailable)
	assert.Equal(t, 0, p.InUse())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepo_AcquireCanceled(t *testing.T) {
	repo, _, _ := newMockRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListLatest(ctx, 10)
	assert.ErrorIs(t, err, book.ErrStoreUnavailable)
}

func TestSQLiteRepo_TimestampColumnReturnedAsStored(t *testing.T) {
	p := testutil.OpenBooksDBWithSchema(t, testutil.TimestampBooksSchema,
		testutil.BookRow{ISBN: "978-1", Title: "Stamped", Description: testutil.Str("d"), AccDate: "2021-03-01 00:00:00"},
		testutil.BookRow{ISBN: "978-2", Title: "Dated", Description: testutil.Str("d"), AccDate: "2023-07-15"},
		testutil.BookRow{ISBN: "978-3", Title: "Free text", Description: testutil.Str("d"), AccDate: "sometime in May"},
	)
	repo := book.NewSQLiteRepo(p, booksTable, 2*time.Second)
	ctx := context.Background()

	rec, err := repo.GetByISBN(ctx, "9781")
	require.NoError(t, err)
	assert.Equal(t, "2021-03-01 00:00:00", rec.String("Acc_Date"))
	assert.Equal(t,
		[]string{"Acc_No", "ISBN", "Title", "Author", "description", "Acc_Date", "Price"},
		rec.Columns())

	out, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Acc_Date":"2021-03-01 00:00:00"`)

	records, err := repo.ListLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	var dates []string
	for _, r := range records {
		v, _ := r.Get("Acc_Date")
		require.IsType(t, "", v)
		dates = append(dates, v.(string))
	}
	assert.Equal(t, []string{"sometime in May", "2023-07-15", "2021-03-01 00:00:00"}, dates)
	assert.Equal(t, 0, p.InUse())
}
