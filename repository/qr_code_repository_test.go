package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/qrtrack/models"
	"github.com/amirphl/qrtrack/repository"
	testingutil "github.com/amirphl/qrtrack/testing"
	"github.com/amirphl/qrtrack/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodeRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewQRCodeRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByShortCode", func(t *testing.T) {
			qr := &models.QRCode{ShortCode: "save01", OriginalURL: "https://example.com/a"}
			require.NoError(t, repo.Save(ctx, qr))
			assert.NotZero(t, qr.ID)

			found, err := repo.ByShortCode(ctx, "save01")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, qr.ID, found.ID)
			assert.Equal(t, int64(0), found.TotalScans)
			assert.Equal(t, "", found.Title)
		})

		t.Run("ByShortCodeNotFound", func(t *testing.T) {
			found, err := repo.ByShortCode(ctx, "missing")
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("DuplicateShortCode", func(t *testing.T) {
			_, err := fixtures.CreateTestQRCode("dup01")
			require.NoError(t, err)

			err = repo.Save(ctx, &models.QRCode{ShortCode: "dup01", OriginalURL: "https://example.com/b"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, repository.ErrDuplicateKey))
		})

		t.Run("UpdateDestination", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode("upd01")
			require.NoError(t, err)

			ok, err := repo.UpdateDestination(ctx, qr.ID, "https://example.org/new", "New", "Desc")
			require.NoError(t, err)
			assert.True(t, ok)

			found, err := repo.ByID(ctx, qr.ID)
			require.NoError(t, err)
			assert.Equal(t, "https://example.org/new", found.OriginalURL)
			assert.Equal(t, "New", found.Title)
			assert.Equal(t, "Desc", found.Description)

			ok, err = repo.UpdateDestination(ctx, 99999, "https://example.org", "", "")
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("IncrementAndSetTotalScans", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode("cnt01")
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				ok, err := repo.IncrementTotalScans(ctx, qr.ID)
				require.NoError(t, err)
				assert.True(t, ok)
			}
			total, err := fixtures.TotalScans(qr.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)

			ok, err := repo.SetTotalScans(ctx, qr.ID, 42)
			require.NoError(t, err)
			assert.True(t, ok)
			total, err = fixtures.TotalScans(qr.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(42), total)

			ok, err = repo.IncrementTotalScans(ctx, 99999)
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = repo.SetTotalScans(ctx, 99999, 1)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("ByFilterOrdersNewestFirst", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			base := utils.UTCNow().Add(-time.Hour)
			for i, code := range []string{"ord01", "ord02", "ord03"} {
				qr := &models.QRCode{ShortCode: code, OriginalURL: "https://example.com", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
				require.NoError(t, repo.Save(ctx, qr))
			}

			rows, err := repo.ByFilter(ctx, models.QRCodeFilter{}, "created_at DESC, id DESC", 2, 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "ord03", rows[0].ShortCode)
			assert.Equal(t, "ord02", rows[1].ShortCode)

			count, err := repo.Count(ctx, models.QRCodeFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			exists, err := repo.Exists(ctx, models.QRCodeFilter{ShortCode: utils.ToPtr("ord01")})
			require.NoError(t, err)
			assert.True(t, exists)
		})

		t.Run("DeleteByID", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode("del01")
			require.NoError(t, err)

			ok, err := repo.DeleteByID(ctx, qr.ID)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.DeleteByID(ctx, qr.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestQRCodeRepositoryDriftRecords(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewQRCodeRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		now := utils.UTCNow()

		behind, err := fixtures.CreateTestQRCode("behind")
		require.NoError(t, err)
		require.NoError(t, fixtures.CreateTestScans(behind.ID, 5, now))
		require.NoError(t, fixtures.SetTotalScans(behind.ID, 3))

		empty, err := fixtures.CreateTestQRCode("empty")
		require.NoError(t, err)
		require.NoError(t, fixtures.SetTotalScans(empty.ID, 4))

		exact, err := fixtures.CreateTestQRCode("exact")
		require.NoError(t, err)
		require.NoError(t, fixtures.CreateTestScans(exact.ID, 2, now))
		require.NoError(t, fixtures.SetTotalScans(exact.ID, 2))

		t.Run("IncludesCodesWithoutScans", func(t *testing.T) {
			rows, err := repo.DriftRecords(ctx, nil)
			require.NoError(t, err)
			require.Len(t, rows, 3)

			byCode := map[string]*models.DriftRecord{}
			for _, row := range rows {
				byCode[row.ShortCode] = row
			}

			assert.Equal(t, int64(3), byCode["behind"].CachedCount)
			assert.Equal(t, int64(5), byCode["behind"].AuthoritativeCount)
			assert.Equal(t, int64(2), byCode["behind"].Difference)

			assert.Equal(t, int64(0), byCode["empty"].AuthoritativeCount)
			assert.Equal(t, int64(-4), byCode["empty"].Difference)

			assert.False(t, byCode["exact"].Drifted())
		})

		t.Run("SingleCode", func(t *testing.T) {
			code := "empty"
			rows, err := repo.DriftRecords(ctx, &code)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, empty.ID, rows[0].QRCodeID)
			assert.Equal(t, int64(4), rows[0].AbsDifference())
		})

		t.Run("UnknownCode", func(t *testing.T) {
			code := "nope"
			rows, err := repo.DriftRecords(ctx, &code)
			require.NoError(t, err)
			assert.Empty(t, rows)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestWithTransactionRollsBack(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewQRCodeRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		qr, err := fixtures.CreateTestQRCode("txn01")
		require.NoError(t, err)

		boom := errors.New("boom")
		txErr := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			if _, err := repo.SetTotalScans(txCtx, qr.ID, 10); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, txErr, boom)

		total, err := fixtures.TotalScans(qr.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)

		panicErr := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
			if _, err := repo.SetTotalScans(txCtx, qr.ID, 11); err != nil {
				return err
			}
			panic("unexpected")
		})
		assert.Error(t, panicErr)

		total, err = fixtures.TotalScans(qr.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		return nil
	})
	require.NoError(t, err)
}
