package service

import (
	"os"
	"testing"

	"inkpad/internal/document/model"
	"inkpad/internal/document/repository"
	"inkpad/pkg/logger"
	"inkpad/socket"
	"inkpad/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func newTestService(t *testing.T) (*DocumentService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	svc := NewDocumentService(repository.NewDocumentRepository(db), socket.NewHub())
	return svc, mock, func() { db.Close() }
}

func TestShareRejectsSelfShare(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	owner := store.User{ID: "u1", Email: "owner@example.com"}
	err := svc.Share(owner, model.ShareRequest{DocumentID: "42", Email: "Owner@example.com"})
	assert.ErrorIs(t, err, ErrSelfShare)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareDefaultsToWritePermission(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	mock.ExpectQuery("SELECT owner_id FROM documents WHERE id = \\$1").
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("u1"))
	mock.ExpectQuery("SELECT id FROM users WHERE email = \\$1").
		WithArgs("friend@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u2"))
	mock.ExpectExec("INSERT INTO shares").
		WithArgs("u2", "42", store.PermissionWrite).
		WillReturnResult(sqlmock.NewResult(0, 1))

	owner := store.User{ID: "u1", Email: "owner@example.com"}
	err := svc.Share(owner, model.ShareRequest{DocumentID: "42", Email: "friend@example.com"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRejectsUnknownPermission(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	owner := store.User{ID: "u1", Email: "owner@example.com"}
	err := svc.Share(owner, model.ShareRequest{DocumentID: "42", Email: "friend@example.com", Permission: "admin"})
	assert.ErrorIs(t, err, ErrInvalidPermission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRequiresOwnership(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	mock.ExpectQuery("SELECT owner_id FROM documents WHERE id = \\$1").
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("somebody-else"))

	user := store.User{ID: "u1", Email: "user@example.com"}
	err := svc.Share(user, model.ShareRequest{DocumentID: "42", Email: "friend@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRequiresOwnership(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	mock.ExpectQuery("SELECT owner_id FROM documents WHERE id = \\$1").
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("somebody-else"))

	err := svc.Delete("42", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeniesWithoutGrant(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("42", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.Get("42", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDefaultsTitle(t *testing.T) {
	svc, mock, teardown := newTestService(t)
	defer teardown()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(sqlmock.AnyArg(), "u1", store.DefaultTitle, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := svc.Create("u1", "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultTitle, doc.Title)
	assert.NotEmpty(t, doc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
