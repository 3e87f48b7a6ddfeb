package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-attendance/internal/models"
)

func TestAttendanceRepositoryListByClassAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "class_id", "student_id", "student_name", "date", "status"}).
		AddRow(int64(1), int64(5), int64(10), "Ada", date, "Absent").
		AddRow(int64(2), int64(5), int64(11), "Grace", date, "Present")
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendances a")).
		WithArgs(int64(5), date).
		WillReturnRows(rows)

	records, err := repo.ListByClassAndDate(context.Background(), 5, date)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Grace", records[1].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsertBatchSkipsConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, student_id, date) DO NOTHING")).
		WithArgs(int64(5), int64(10), date, "Absent").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, student_id, date) DO NOTHING")).
		WithArgs(int64(5), int64(11), date, "Absent").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.InsertBatch(context.Background(), []models.AttendanceRecord{
		{ClassID: 5, StudentID: 10, Date: date, Status: models.StatusAbsent},
		{ClassID: 5, StudentID: 11, Date: date, Status: models.StatusAbsent},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateStatusesRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendances SET status").
		WithArgs("Present", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE attendances SET status").
		WithArgs("Late", int64(2)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.UpdateStatuses(context.Background(), []models.AttendanceRecord{
		{ID: 1, Status: "Present"},
		{ID: 2, Status: "Late"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendances WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "student_id", "date", "status"}).
			AddRow(int64(3), int64(5), int64(10), date, "Absent"))

	records, err := repo.FindByIDs(context.Background(), []int64{3, 99})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].ID)

	none, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}
